package tool

import (
	"net"
	"testing"
)

func TestBlocksPrivateAndLoopbackIPv4(t *testing.T) {
	cases := []string{"127.0.0.1", "10.0.0.2", "192.168.1.1", "169.254.1.1", "100.64.0.1"}
	for _, c := range cases {
		if !isBlockedIP(net.ParseIP(c)) {
			t.Errorf("expected %s to be blocked", c)
		}
	}
}

func TestAllowsPublicIPv4(t *testing.T) {
	cases := []string{"8.8.8.8", "1.1.1.1"}
	for _, c := range cases {
		if isBlockedIP(net.ParseIP(c)) {
			t.Errorf("expected %s to be allowed", c)
		}
	}
}

func TestBlocksPrivateIPv6Ranges(t *testing.T) {
	cases := []string{"::1", "fc00::1", "fe80::1"}
	for _, c := range cases {
		if !isBlockedIP(net.ParseIP(c)) {
			t.Errorf("expected %s to be blocked", c)
		}
	}
}

func TestHostPatternMatchingHandlesWildcards(t *testing.T) {
	if !hostMatchesPattern("api.localhost", "*.localhost") {
		t.Fatal("expected api.localhost to match *.localhost")
	}
	if !hostMatchesPattern("192.168.1.10", "192.168.*") {
		t.Fatal("expected 192.168.1.10 to match 192.168.*")
	}
	if hostMatchesPattern("example.com", "*.localhost") {
		t.Fatal("expected example.com to not match *.localhost")
	}
}
