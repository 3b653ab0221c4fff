package tool

// Policy is the per-agent tool governance rule set. AllowAll defaults to
// true iff Allowed is empty.
type Policy struct {
	AllowAll            bool
	Allowed             map[string]bool
	Denied              map[string]bool
	RequireConfirmation map[string]bool
}

// NewPolicy builds a Policy from raw name lists, canonicalizing every entry
// and defaulting AllowAll to true when allowed is empty.
func NewPolicy(allowed, denied, requireConfirmation []string) Policy {
	p := Policy{
		Allowed:             toSet(allowed),
		Denied:              toSet(denied),
		RequireConfirmation: toSet(requireConfirmation),
	}
	p.AllowAll = len(p.Allowed) == 0
	return p
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[Canonicalize(n)] = true
	}
	return set
}

// IsAllowed reports whether tool t may be invoked under this policy:
// t ∉ denied ∧ (allow_all ∨ t ∈ allowed). The tool name is canonicalized
// before the membership checks.
func (p Policy) IsAllowed(t string) bool {
	t = Canonicalize(t)
	if p.Denied[t] {
		return false
	}
	return p.AllowAll || p.Allowed[t]
}

// RequiresConfirmation reports whether invoking t must first pass a
// human-approval round trip.
func (p Policy) RequiresConfirmation(t string) bool {
	return p.RequireConfirmation[Canonicalize(t)]
}
