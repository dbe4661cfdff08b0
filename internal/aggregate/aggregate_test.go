package aggregate

import (
	"reflect"
	"testing"
	"time"

	"github.com/pimsight/go-core/pkg/types"
)

func user(id, name string) types.Assignment {
	return types.Assignment{
		PrincipalID: id,
		Principal:   types.Principal{DisplayName: name, Kind: types.PrincipalUser},
	}
}

func groupPrincipal(id, name string) types.Assignment {
	return types.Assignment{
		PrincipalID: id,
		Principal:   types.Principal{DisplayName: name, Kind: types.PrincipalGroup},
	}
}

func withEnd(a types.Assignment, end time.Time) types.Assignment {
	a.ScheduleInfo = &types.ScheduleInfo{
		Expiration: &types.ScheduleExpiration{Type: types.ExpirationAfterDateTime, EndDateTime: &end},
	}
	return a
}

func testCollection() Collection {
	return Collection{
		Roles: []types.RoleDetailData{
			{
				Definition: types.RoleDefinition{ID: "r1", DisplayName: "Global Administrator", IsPrivileged: true},
				Assignments: types.ResourceAssignments{
					Permanent: []types.Assignment{user("u1", "Alice"), groupPrincipal("g1", "Ops")},
					Eligible:  []types.Assignment{user("u2", "Bob")},
				},
			},
			{
				Definition: types.RoleDefinition{ID: "r2", DisplayName: "User Administrator"},
				Assignments: types.ResourceAssignments{
					Active: []types.Assignment{user("u1", "Alice")},
				},
			},
		},
		Groups: []types.PimGroupData{
			{
				Group: types.PimGroup{ID: "pg1", DisplayName: "Break Glass", IsAssignableToRole: true},
				Assignments: []types.GroupAssignment{
					{Assignment: user("u3", "Carol"), AccessType: types.AccessMember, AssignmentType: types.CategoryEligible},
					{Assignment: user("u1", "Alice"), AccessType: types.AccessOwner, AssignmentType: types.CategoryActive},
				},
			},
		},
	}
}

func TestDeriveMemberType(t *testing.T) {
	if got := DeriveMemberType(user("u1", "Alice")); got != types.MemberTypeDirect {
		t.Errorf("user principal must derive Direct, got %q", got)
	}
	if got := DeriveMemberType(groupPrincipal("g1", "Ops")); got != types.MemberTypeGroup {
		t.Errorf("group principal must derive Group, got %q", got)
	}

	explicit := user("u1", "Alice")
	explicit.MemberType = types.MemberTypeGroup
	if got := DeriveMemberType(explicit); got != types.MemberTypeGroup {
		t.Errorf("explicit memberType must be trusted, got %q", got)
	}
}

func TestCountByCategory(t *testing.T) {
	col := testCollection()

	if got := CountByCategory(col, types.CategoryPermanent, All); got != 2 {
		t.Errorf("permanent = %d, want 2", got)
	}
	if got := CountByCategory(col, types.CategoryEligible, All); got != 2 {
		t.Errorf("eligible = %d, want 2 (role + group)", got)
	}
	if got := CountByCategory(col, types.CategoryActive, All); got != 2 {
		t.Errorf("active = %d, want 2", got)
	}
}

func TestCountByCategory_VisibilityMask(t *testing.T) {
	col := testCollection()
	onlyPrivileged := Visibility{
		Role:  func(r types.RoleDetailData) bool { return r.Definition.IsPrivileged },
		Group: func(types.PimGroupData) bool { return false },
	}

	if got := CountByCategory(col, types.CategoryActive, onlyPrivileged); got != 0 {
		t.Errorf("masked resources must contribute 0, got %d", got)
	}
	if got := CountByCategory(col, types.CategoryPermanent, onlyPrivileged); got != 2 {
		t.Errorf("visible privileged role must still count, got %d", got)
	}
}

func TestSplitByMemberType(t *testing.T) {
	got := SplitByMemberType(testCollection(), All)
	want := MemberTypeSplit{Direct: 5, Group: 1}
	if got != want {
		t.Fatalf("split = %+v, want %+v", got, want)
	}
}

func TestTotals(t *testing.T) {
	got := Totals(testCollection(), All)
	want := Stats{Eligible: 2, Active: 2, Permanent: 2}
	if got != want {
		t.Fatalf("totals = %+v, want %+v", got, want)
	}
}

func TestPimCoveragePercent(t *testing.T) {
	if got := PimCoveragePercent(nil); got != 0 {
		t.Errorf("empty input must yield 0, got %d", got)
	}

	roles := make([]types.RoleDetailData, 0, 5)
	for i := 0; i < 5; i++ {
		r := types.RoleDetailData{Definition: types.RoleDefinition{IsPrivileged: true}}
		if i < 3 {
			r.Policy = &types.RolePolicy{Rules: []types.PolicyRule{
				&types.ExpirationRule{Target: types.RuleTarget{Caller: types.CallerEndUser, Level: types.LevelAssignment}},
			}}
		}
		roles = append(roles, r)
	}
	if got := PimCoveragePercent(roles); got != 60 {
		t.Errorf("3 of 5 privileged with policy = %d, want 60", got)
	}

	// non-privileged roles are invisible to coverage
	roles = append(roles, types.RoleDetailData{})
	if got := PimCoveragePercent(roles); got != 60 {
		t.Errorf("non-privileged role must not move coverage, got %d", got)
	}
}

func TestTopPrincipals(t *testing.T) {
	got := TopPrincipals(testCollection(), 2, All)

	// u1 appears three times (permanent r1, active r2, owner pg1)
	if len(got) != 2 {
		t.Fatalf("expected 2 principals, got %d", len(got))
	}
	if got[0].PrincipalID != "u1" || got[0].Count != 3 {
		t.Errorf("top principal = %+v, want u1 with 3", got[0])
	}
	// g1, u2, u3 all hold one; g1 was seen first and wins the tie
	if got[1].PrincipalID != "g1" || got[1].Count != 1 {
		t.Errorf("second principal = %+v, want g1 with 1 (first-seen tie-break)", got[1])
	}
}

func TestTopPrincipals_Stable(t *testing.T) {
	col := testCollection()
	a := TopPrincipals(col, 0, All)
	b := TopPrincipals(col, 0, All)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("repeated calls on identical input must be identical")
	}
}

func TestExpiringWithin(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	col := Collection{
		Roles: []types.RoleDetailData{{
			Definition: types.RoleDefinition{ID: "r1", DisplayName: "Global Administrator"},
			Assignments: types.ResourceAssignments{
				Eligible: []types.Assignment{
					withEnd(user("u1", "Alice"), asOf.AddDate(0, 0, 5)),
					withEnd(user("u2", "Bob"), asOf.AddDate(0, 0, 40)),   // beyond window
					withEnd(user("u3", "Carol"), asOf.AddDate(0, 0, -1)), // already expired
					user("u4", "Dave"), // no expiration
				},
				Active: []types.Assignment{
					withEnd(user("u5", "Erin"), asOf.AddDate(0, 0, 2)),
				},
				// permanent assignments never participate
				Permanent: []types.Assignment{user("u6", "Frank")},
			},
		}},
	}

	got := ExpiringWithin(col, 30, asOf, All)
	if len(got) != 2 {
		t.Fatalf("expected 2 expiring assignments, got %d: %+v", len(got), got)
	}
	if got[0].PrincipalID != "u5" || got[1].PrincipalID != "u1" {
		t.Errorf("expected ascending expiry order [u5 u1], got [%s %s]",
			got[0].PrincipalID, got[1].PrincipalID)
	}
}

func TestExpiringWithin_Boundaries(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	col := Collection{
		Roles: []types.RoleDetailData{{
			Definition: types.RoleDefinition{DisplayName: "Role"},
			Assignments: types.ResourceAssignments{
				Eligible: []types.Assignment{
					withEnd(user("at", "At"), asOf),                    // exactly asOf: excluded
					withEnd(user("edge", "Edge"), asOf.AddDate(0, 0, 7)), // exactly window end: included
				},
			},
		}},
	}

	got := ExpiringWithin(col, 7, asOf, All)
	if len(got) != 1 || got[0].PrincipalID != "edge" {
		t.Fatalf("window must be (asOf, asOf+window], got %+v", got)
	}
}
