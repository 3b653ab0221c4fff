package models

import (
	"fmt"
	"net/url"
	"strings"
)

// EvaluateDownloadPolicy runs the download policy gate against a candidate
// Hugging Face download: repoID's owner (the segment before "/") must be on
// the allowlist when require_allowlist is set (or only triggers a consent
// warning under warn_on_unlisted); a pinned revision and/or verified
// SHA256 may additionally be mandated.
func EvaluateDownloadPolicy(cfg DownloadPolicyConfig, repoID, revision, expectedSHA256 string) DownloadPolicy {
	owner := strings.ToLower(firstPathSegment(repoID))
	allowed := true
	requiresConsent := false
	var warnings []string

	allowset := make(map[string]bool, len(cfg.AllowRepoOwners))
	for _, o := range cfg.AllowRepoOwners {
		allowset[strings.ToLower(o)] = true
	}

	if owner != "" && !allowset[owner] {
		switch {
		case cfg.RequireAllowlist:
			allowed = false
			warnings = append(warnings, "Repository owner is not in allowlist")
		case cfg.WarnOnUnlisted:
			requiresConsent = true
			warnings = append(warnings, "Repository owner is not in allowlist")
		}
	}

	normalizedRevision := strings.TrimSpace(revision)
	if cfg.RequireRevision && normalizedRevision == "" {
		allowed = false
		warnings = append(warnings, "Revision pinning is required by policy (provide a revision)")
	}

	_, shaOK := NormalizeSHA256(expectedSHA256)
	switch {
	case cfg.RequireSHA256 && !shaOK:
		allowed = false
		warnings = append(warnings, "SHA256 verification is required by policy (provide expected sha256)")
	case !cfg.RequireSHA256 && expectedSHA256 != "" && !shaOK:
		allowed = false
		warnings = append(warnings, "Provided SHA256 value is not a valid 64-char hex string")
	}

	return DownloadPolicy{Allowed: allowed, RequiresConsent: requiresConsent, Warnings: warnings}
}

func firstPathSegment(repoID string) string {
	if i := strings.IndexByte(repoID, '/'); i >= 0 {
		return repoID[:i]
	}
	return ""
}

// NormalizeSHA256 reports whether value is a valid 64-char hex SHA256
// digest in either case, returning it lowercased and trimmed when valid.
func NormalizeSHA256(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || len(trimmed) != 64 {
		return "", false
	}
	for _, r := range trimmed {
		if !isHexDigit(r) {
			return "", false
		}
	}
	return strings.ToLower(trimmed), true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// HFResolveURL builds the Hugging Face resolve URL a download follows,
// defaulting revision to "main" and percent-encoding it.
func HFResolveURL(repoID, filename, revision string) string {
	rev := strings.TrimSpace(revision)
	if rev == "" {
		rev = "main"
	}
	return fmt.Sprintf("https://huggingface.co/%s/resolve/%s/%s?download=true", repoID, url.PathEscape(rev), filename)
}
