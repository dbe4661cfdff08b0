package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pimsight/go-core/pkg/types"
)

func endUserAssignment() types.RuleTarget {
	return types.RuleTarget{Caller: types.CallerEndUser, Level: types.LevelAssignment}
}

func sampleRole() types.RoleDetailData {
	return types.RoleDetailData{
		Definition: types.RoleDefinition{
			ID:           "r1",
			DisplayName:  "Global Administrator",
			IsBuiltIn:    true,
			IsPrivileged: true,
		},
		Assignments: types.ResourceAssignments{
			Permanent: []types.Assignment{{
				PrincipalID: "u1",
				Principal:   types.Principal{DisplayName: "Alice", UserPrincipalName: "alice@contoso.com", Kind: types.PrincipalUser},
			}},
			Eligible: []types.Assignment{{
				PrincipalID: "u2",
				Principal:   types.Principal{DisplayName: "Bob", Kind: types.PrincipalUser},
			}},
		},
		Policy: &types.RolePolicy{Rules: []types.PolicyRule{
			&types.ExpirationRule{IsExpirationRequired: true, MaximumDuration: "PT4H", Target: endUserAssignment()},
			&types.EnablementRule{EnabledRules: []string{types.EnabledRuleMFA}, Target: endUserAssignment()},
			&types.ApprovalRule{
				Setting: types.ApprovalSettings{
					IsApprovalRequired: true,
					ApprovalStages: []types.ApprovalStage{
						{PrimaryApprovers: []types.ApproverRef{{ID: "a1", DisplayName: "Carol"}, {ID: "a2", DisplayName: "Dan"}}},
					},
				},
				Target: endUserAssignment(),
			},
		}},
	}
}

func sampleGroup() types.PimGroupData {
	return types.PimGroupData{
		Group: types.PimGroup{ID: "g1", DisplayName: "Break Glass", IsAssignableToRole: true},
		Assignments: []types.GroupAssignment{
			{
				Assignment:     types.Assignment{PrincipalID: "u3", Principal: types.Principal{DisplayName: "Erin", Kind: types.PrincipalUser}},
				AccessType:     types.AccessMember,
				AssignmentType: types.CategoryEligible,
			},
			{
				Assignment:     types.Assignment{PrincipalID: "u4", Principal: types.Principal{DisplayName: "Frank", Kind: types.PrincipalUser}},
				AccessType:     types.AccessOwner,
				AssignmentType: types.CategoryActive,
			},
		},
	}
}

func TestRoleSummaryRow(t *testing.T) {
	b := NewBuilder(nil)
	row := b.RoleSummaryRow(sampleRole(), nil)

	if len(row) != len(RoleSummaryHeader) {
		t.Fatalf("row width %d != header width %d", len(row), len(RoleSummaryHeader))
	}
	cols := map[string]string{}
	for i, h := range RoleSummaryHeader {
		cols[h] = row[i]
	}

	if cols["Role"] != "Global Administrator" {
		t.Errorf("Role = %q", cols["Role"])
	}
	if cols["MaxActivationDuration"] != "PT4H" {
		t.Errorf("duration must stay the raw ISO string, got %q", cols["MaxActivationDuration"])
	}
	if cols["ActivationAuthentication"] != "Azure MFA" {
		t.Errorf("ActivationAuthentication = %q", cols["ActivationAuthentication"])
	}
	if cols["Approvers"] != "Carol;Dan" {
		t.Errorf("approvers must join with semicolons, got %q", cols["Approvers"])
	}
	if cols["Permanent"] != "1" || cols["Eligible"] != "1" || cols["Active"] != "0" {
		t.Errorf("counts wrong: %+v", cols)
	}
}

func TestAssignmentDetailRows_CountAndGroupDisambiguation(t *testing.T) {
	b := NewBuilder(nil)
	role := sampleRole()
	group := sampleGroup()

	rows := b.AssignmentDetailRows([]types.RoleDetailData{role}, []types.PimGroupData{group})

	want := role.Assignments.Total() + len(group.Assignments)
	if len(rows) != want {
		t.Fatalf("row count %d, want %d (sum of all assignment lists)", len(rows), want)
	}

	var memberRow, ownerRow []string
	for _, r := range rows {
		switch r[0] {
		case "Break Glass (Member)":
			memberRow = r
		case "Break Glass (Owner)":
			ownerRow = r
		}
	}
	if memberRow == nil || ownerRow == nil {
		t.Fatalf("group rows must disambiguate member/owner, got %v", rows)
	}
	if memberRow[2] != "eligible" || ownerRow[2] != "active" {
		t.Errorf("categories wrong: member=%q owner=%q", memberRow[2], ownerRow[2])
	}
}

func TestWriteCSV_QuoteEscaping(t *testing.T) {
	table := Table{
		Header: []string{"Resource", "Principal"},
		Rows: [][]string{
			{`Helpdesk "L1", priority`, "Alice"},
		},
	}

	var buf bytes.Buffer
	meta, err := WriteCSV(&buf, table)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if meta.RowCount != 1 || meta.Format != FormatCSV || meta.ExportID == "" {
		t.Errorf("metadata wrong: %+v", meta)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %q", out)
	}
	if lines[0] != "Resource,Principal" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != `"Helpdesk ""L1"", priority",Alice` {
		t.Errorf("quotes must be doubled and the field quoted, got %q", lines[1])
	}
}

func TestBuildBulkExport(t *testing.T) {
	b := NewBuilder(nil)
	bulk := b.BuildBulkExport([]types.RoleDetailData{sampleRole()}, []types.PimGroupData{sampleGroup()})

	if len(bulk.Roles) != 1 || len(bulk.Groups) != 1 {
		t.Fatalf("bulk sections wrong: %+v", bulk)
	}
	r := bulk.Roles[0]
	if !r.HasPolicy || !r.Policy.Activation.ApprovalRequired {
		t.Errorf("role policy must be resolved in the export, got %+v", r.Policy.Activation)
	}
	if r.Counts.Permanent != 1 || r.Counts.Eligible != 1 || r.Counts.Active != 0 {
		t.Errorf("counts = %+v", r.Counts)
	}
	g := bulk.Groups[0]
	if g.HasPolicy {
		t.Error("group without policies must export hasPolicy=false")
	}
	if g.Assignments != 2 {
		t.Errorf("group assignment count = %d, want 2", g.Assignments)
	}
}

func TestBuildBulkExport_OmitsEmptyWorkloads(t *testing.T) {
	b := NewBuilder(nil)
	bulk := b.BuildBulkExport([]types.RoleDetailData{sampleRole()}, nil)

	var buf bytes.Buffer
	if _, err := WriteJSON(&buf, bulk); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid export json: %v", err)
	}
	if _, ok := decoded["roles"]; !ok {
		t.Error("roles section missing")
	}
	if _, ok := decoded["groups"]; ok {
		t.Error("empty groups section must be omitted")
	}
}

func TestAssignmentRow_Expiry(t *testing.T) {
	end := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	a := types.Assignment{
		PrincipalID:  "u1",
		Principal:    types.Principal{DisplayName: "Alice", Kind: types.PrincipalUser},
		ScheduleInfo: &types.ScheduleInfo{Expiration: &types.ScheduleExpiration{EndDateTime: &end}},
	}

	row := assignmentRow("Role", "role", types.CategoryEligible, a)
	if row[len(row)-1] != "2026-02-01T09:30:00Z" {
		t.Errorf("expiry column = %q", row[len(row)-1])
	}

	row = assignmentRow("Role", "role", types.CategoryPermanent, types.Assignment{Principal: types.Principal{Kind: types.PrincipalUser}})
	if row[len(row)-1] != "" {
		t.Errorf("non-expiring row must leave the expiry column empty, got %q", row[len(row)-1])
	}
}
