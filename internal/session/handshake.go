package session

import (
	"encoding/hex"
	"net/http"
	"strings"
)

// AppProtocol is the mandatory first entry in the client's subprotocol list.
const AppProtocol = "tepora.v1"

// tokenProtocolPrefix precedes the hex-encoded session token in the second
// subprotocol list entry, e.g. "tepora-token.<hex>".
const tokenProtocolPrefix = "tepora-token."

// ValidateOrigin reports whether the request's Origin header is acceptable.
// An absent header is only accepted outside production; a present header
// must exactly match an allowed entry or be a "<entry>/..." sub-path of one.
func ValidateOrigin(r *http.Request, allowed []string, production bool) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return !production
	}
	for _, a := range allowed {
		if origin == a || strings.HasPrefix(origin, a+"/") {
			return true
		}
	}
	return false
}

// ValidateToken reports whether the request advertises the expected session
// token via the Sec-WebSocket-Protocol header.
func ValidateToken(r *http.Request, expectedToken string) bool {
	token, ok := ExtractToken(r)
	return ok && token == expectedToken
}

// ExtractToken decodes the hex-encoded session token from the first
// "tepora-token.<hex>" entry in the client's requested subprotocol list.
func ExtractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Sec-WebSocket-Protocol")
	if header == "" {
		return "", false
	}
	for _, item := range strings.Split(header, ",") {
		protocol := strings.TrimSpace(item)
		encoded, ok := strings.CutPrefix(protocol, tokenProtocolPrefix)
		if !ok || encoded == "" {
			continue
		}
		decoded, err := hex.DecodeString(encoded)
		if err != nil {
			continue
		}
		if token := string(decoded); token != "" {
			return token, true
		}
	}
	return "", false
}
