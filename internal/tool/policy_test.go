package tool

import "testing"

func TestCanonicalizeAliases(t *testing.T) {
	cases := map[string]string{
		"web_fetch":  "native_web_fetch",
		"fetch_url":  "native_web_fetch",
		"web_search": "native_search",
		"mcp:ping":   "ping",
	}
	for in, want := range cases {
		if got := Canonicalize(in); got != want {
			t.Errorf("Canonicalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPolicyAllowAllDefaultsWhenAllowedEmpty(t *testing.T) {
	p := NewPolicy(nil, nil, nil)
	if !p.AllowAll {
		t.Fatal("expected AllowAll to default true when allowed list is empty")
	}
	if !p.IsAllowed("anything") {
		t.Fatal("expected allow-all policy to allow an arbitrary tool")
	}
}

func TestPolicyDeniedOverridesAllowAll(t *testing.T) {
	p := NewPolicy(nil, []string{"web_fetch"}, nil)
	if p.IsAllowed("web_fetch") {
		t.Fatal("expected denied tool to be rejected even under allow-all")
	}
	if !p.IsAllowed("web_search") {
		t.Fatal("expected a non-denied tool to remain allowed")
	}
}

func TestPolicyAllowedListRestrictsMembership(t *testing.T) {
	p := NewPolicy([]string{"web_search"}, nil, nil)
	if p.AllowAll {
		t.Fatal("expected AllowAll false when an allowed list is given")
	}
	if !p.IsAllowed("web_search") {
		t.Fatal("expected web_search to be allowed")
	}
	if p.IsAllowed("web_fetch") {
		t.Fatal("expected web_fetch to be rejected, not in allowed list")
	}
}
