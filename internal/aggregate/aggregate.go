// Package aggregate rolls assignment collections up into the counts,
// splits and orderings the dashboard, reports and exports consume. Every
// operation is a pure function of its inputs; nothing is cached between
// calls.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/pimsight/go-core/pkg/types"
)

// Collection is the read-only resource set an aggregation runs over.
type Collection struct {
	Roles  []types.RoleDetailData
	Groups []types.PimGroupData
}

// Visibility masks resources out of an aggregation. A nil predicate means
// every resource of that kind is visible; a masked resource contributes
// zero, not "unknown".
type Visibility struct {
	Role  func(types.RoleDetailData) bool
	Group func(types.PimGroupData) bool
}

// All is the unmasked visibility.
var All = Visibility{}

func (v Visibility) roleVisible(r types.RoleDetailData) bool {
	if v.Role == nil {
		return true
	}
	return v.Role(r)
}

func (v Visibility) groupVisible(g types.PimGroupData) bool {
	if v.Group == nil {
		return true
	}
	return v.Group(g)
}

// DeriveMemberType determines how a principal holds an assignment. Raw
// permanent records carry no memberType; it is derived from the principal
// kind (group principals hold assignments as "Group", everything else as
// "Direct"). An explicit memberType on the record is trusted as the richer
// shape.
func DeriveMemberType(a types.Assignment) types.MemberType {
	if a.MemberType != "" {
		return a.MemberType
	}
	if a.Principal.Kind == types.PrincipalGroup {
		return types.MemberTypeGroup
	}
	return types.MemberTypeDirect
}

// CountByCategory sums assignment-list lengths for one category across the
// visible resources of the collection.
func CountByCategory(col Collection, c types.AssignmentCategory, vis Visibility) int {
	n := 0
	for _, role := range col.Roles {
		if vis.roleVisible(role) {
			n += len(role.Assignments.Category(c))
		}
	}
	for _, g := range col.Groups {
		if !vis.groupVisible(g) {
			continue
		}
		for _, a := range g.Assignments {
			if a.AssignmentType == c {
				n++
			}
		}
	}
	return n
}

// MemberTypeSplit counts direct versus group-derived assignments.
type MemberTypeSplit struct {
	Direct int `json:"direct"`
	Group  int `json:"group"`
}

// SplitByMemberType counts assignments across all three categories by
// derived member type.
func SplitByMemberType(col Collection, vis Visibility) MemberTypeSplit {
	var split MemberTypeSplit
	tally := func(a types.Assignment) {
		if DeriveMemberType(a) == types.MemberTypeGroup {
			split.Group++
		} else {
			split.Direct++
		}
	}
	for _, role := range col.Roles {
		if !vis.roleVisible(role) {
			continue
		}
		for _, c := range types.Categories {
			for _, a := range role.Assignments.Category(c) {
				tally(a)
			}
		}
	}
	for _, g := range col.Groups {
		if !vis.groupVisible(g) {
			continue
		}
		for _, a := range g.Assignments {
			tally(a.Assignment)
		}
	}
	return split
}

// Stats is the per-category snapshot for one aggregation pass.
type Stats struct {
	Eligible  int `json:"eligible"`
	Active    int `json:"active"`
	Permanent int `json:"permanent"`
}

// Totals computes the per-category counts in one pass.
func Totals(col Collection, vis Visibility) Stats {
	return Stats{
		Eligible:  CountByCategory(col, types.CategoryEligible, vis),
		Active:    CountByCategory(col, types.CategoryActive, vis),
		Permanent: CountByCategory(col, types.CategoryPermanent, vis),
	}
}

// PimCoveragePercent is the share of privileged roles that have a management
// policy, rounded to whole percent. 0 when there are no privileged roles.
func PimCoveragePercent(roles []types.RoleDetailData) int {
	privileged, withPolicy := 0, 0
	for _, r := range roles {
		if !r.Definition.IsPrivileged {
			continue
		}
		privileged++
		if r.HasPolicy() {
			withPolicy++
		}
	}
	if privileged == 0 {
		return 0
	}
	return int(math.Round(100 * float64(withPolicy) / float64(privileged)))
}

// PrincipalVolume is one principal's total assignment count.
type PrincipalVolume struct {
	PrincipalID string `json:"principalId"`
	DisplayName string `json:"displayName,omitempty"`
	Count       int    `json:"count"`
}

// TopPrincipals groups assignments by principal across all categories and
// returns the top principals by descending count. Ties keep first-seen
// order, so repeated calls over identical input are byte-for-byte stable.
func TopPrincipals(col Collection, limit int, vis Visibility) []PrincipalVolume {
	counts := map[string]int{}
	names := map[string]string{}
	var seen []string

	record := func(a types.Assignment) {
		if a.PrincipalID == "" {
			return
		}
		if _, ok := counts[a.PrincipalID]; !ok {
			seen = append(seen, a.PrincipalID)
			names[a.PrincipalID] = a.Principal.DisplayName
		}
		counts[a.PrincipalID]++
	}

	for _, role := range col.Roles {
		if !vis.roleVisible(role) {
			continue
		}
		for _, c := range types.Categories {
			for _, a := range role.Assignments.Category(c) {
				record(a)
			}
		}
	}
	for _, g := range col.Groups {
		if !vis.groupVisible(g) {
			continue
		}
		for _, a := range g.Assignments {
			record(a.Assignment)
		}
	}

	out := make([]PrincipalVolume, 0, len(seen))
	for _, id := range seen {
		out = append(out, PrincipalVolume{PrincipalID: id, DisplayName: names[id], Count: counts[id]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ExpiringAssignment is one eligible or active assignment ending inside a
// lookahead window.
type ExpiringAssignment struct {
	ResourceName string                   `json:"resourceName"`
	Category     types.AssignmentCategory `json:"category"`
	PrincipalID  string                   `json:"principalId"`
	Principal    types.Principal          `json:"principal"`
	ExpiresAt    time.Time                `json:"expiresAt"`
}

// ExpiringWithin selects eligible and active assignments whose end time falls
// strictly after asOf and no later than asOf+windowDays, ordered by ascending
// expiry. Already-expired and non-expiring entries are excluded.
func ExpiringWithin(col Collection, windowDays int, asOf time.Time, vis Visibility) []ExpiringAssignment {
	deadline := asOf.AddDate(0, 0, windowDays)
	var out []ExpiringAssignment

	consider := func(resourceName string, c types.AssignmentCategory, a types.Assignment) {
		end, ok := a.ExpiresAt()
		if !ok || !end.After(asOf) || end.After(deadline) {
			return
		}
		out = append(out, ExpiringAssignment{
			ResourceName: resourceName,
			Category:     c,
			PrincipalID:  a.PrincipalID,
			Principal:    a.Principal,
			ExpiresAt:    end,
		})
	}

	for _, role := range col.Roles {
		if !vis.roleVisible(role) {
			continue
		}
		for _, a := range role.Assignments.Eligible {
			consider(role.Definition.DisplayName, types.CategoryEligible, a)
		}
		for _, a := range role.Assignments.Active {
			consider(role.Definition.DisplayName, types.CategoryActive, a)
		}
	}
	for _, g := range col.Groups {
		if !vis.groupVisible(g) {
			continue
		}
		for _, a := range g.Assignments {
			if a.AssignmentType == types.CategoryEligible || a.AssignmentType == types.CategoryActive {
				consider(g.Group.DisplayName, a.AssignmentType, a.Assignment)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}
