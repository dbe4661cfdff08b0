// Package policy indexes raw policy rule lists and resolves them into
// normalized, fully-typed settings.
package policy

import "github.com/pimsight/go-core/pkg/types"

// ruleKey is the lookup triple a rule is authoritative for.
type ruleKey struct {
	Variant types.RuleVariant
	Caller  types.Caller
	Level   types.Level
}

// Index answers "which rule applies" for one resource's raw rule list.
// Raw lists may carry latent duplicates from upstream pagination; lookups are
// order-stable so repeated fetches of the same list resolve identically.
type Index struct {
	rules []types.PolicyRule
	byKey map[ruleKey][]types.PolicyRule
}

// BuildIndex groups a raw rule list by (variant, caller, level), preserving
// original list order within each group. Nil rules are skipped.
func BuildIndex(rules []types.PolicyRule) *Index {
	ix := &Index{
		rules: rules,
		byKey: make(map[ruleKey][]types.PolicyRule, len(rules)),
	}
	for _, r := range rules {
		if r == nil {
			continue
		}
		t := r.RuleTarget()
		k := ruleKey{Variant: r.Variant(), Caller: t.Caller, Level: t.Level}
		ix.byKey[k] = append(ix.byKey[k], r)
	}
	return ix
}

// Find returns the first rule in original list order matching the triple, or
// nil when none matches. First-wins is the documented tie-break for
// duplicate keys.
func (ix *Index) Find(v types.RuleVariant, c types.Caller, l types.Level) types.PolicyRule {
	matches := ix.byKey[ruleKey{Variant: v, Caller: c, Level: l}]
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// FilterByVariant returns all rules of one variant in original list order,
// regardless of target. The notification table needs every notification rule
// for a (caller, level) pair because recipientType disambiguates further.
func (ix *Index) FilterByVariant(v types.RuleVariant) []types.PolicyRule {
	var out []types.PolicyRule
	for _, r := range ix.rules {
		if r != nil && r.Variant() == v {
			out = append(out, r)
		}
	}
	return out
}

// Len reports the number of indexed rules.
func (ix *Index) Len() int {
	n := 0
	for _, r := range ix.rules {
		if r != nil {
			n++
		}
	}
	return n
}

// typed lookups used by the resolver; a nil result or a mismatched concrete
// type both come back as nil.

func (ix *Index) expiration(c types.Caller, l types.Level) *types.ExpirationRule {
	r, _ := ix.Find(types.VariantExpiration, c, l).(*types.ExpirationRule)
	return r
}

func (ix *Index) enablement(c types.Caller, l types.Level) *types.EnablementRule {
	r, _ := ix.Find(types.VariantEnablement, c, l).(*types.EnablementRule)
	return r
}

func (ix *Index) approval(c types.Caller, l types.Level) *types.ApprovalRule {
	r, _ := ix.Find(types.VariantApproval, c, l).(*types.ApprovalRule)
	return r
}

func (ix *Index) authContext(c types.Caller, l types.Level) *types.AuthenticationContextRule {
	r, _ := ix.Find(types.VariantAuthenticationContext, c, l).(*types.AuthenticationContextRule)
	return r
}
