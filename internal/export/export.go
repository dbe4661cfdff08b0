// Package export flattens resolved policies and assignments into tabular
// rows for the CSV, JSON and PDF export pipelines.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pimsight/go-core/internal/aggregate"
	"github.com/pimsight/go-core/internal/policy"
	"github.com/pimsight/go-core/pkg/types"
)

// Format is the export output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Metadata describes one produced export.
type Metadata struct {
	ExportID  string    `json:"exportId"`
	Timestamp time.Time `json:"timestamp"`
	Format    Format    `json:"format"`
	RowCount  int       `json:"rowCount"`
}

// Table is a header plus rows with a stable column order, consumed by the
// CSV writer and by the PDF generator's table renderer.
type Table struct {
	Header []string
	Rows   [][]string
}

// Builder flattens collections into export tables. It resolves policies on
// demand and holds no state between calls.
type Builder struct {
	resolver *policy.Resolver
}

// NewBuilder creates an export row builder.
func NewBuilder(resolver *policy.Resolver) *Builder {
	if resolver == nil {
		resolver = policy.NewResolver(nil)
	}
	return &Builder{resolver: resolver}
}

// RoleSummaryHeader is the stable column order of the role summary table.
var RoleSummaryHeader = []string{
	"Role",
	"Privileged",
	"BuiltIn",
	"Permanent",
	"Eligible",
	"Active",
	"MaxActivationDuration",
	"ActivationAuthentication",
	"JustificationRequired",
	"TicketRequired",
	"ApprovalRequired",
	"Approvers",
	"ConfigError",
}

// RoleSummaryRow flattens one role into its summary row. The duration column
// keeps the raw ISO string so export consumers can re-bucket; approver names
// are joined with ";".
func (b *Builder) RoleSummaryRow(r types.RoleDetailData, authContexts map[string]string) []string {
	resolved := b.resolver.Resolve(types.ResourceRole, r.PolicyRules())
	act := resolved.Activation
	return []string{
		r.Definition.DisplayName,
		strconv.FormatBool(r.Definition.IsPrivileged),
		strconv.FormatBool(r.Definition.IsBuiltIn),
		strconv.Itoa(len(r.Assignments.Permanent)),
		strconv.Itoa(len(r.Assignments.Eligible)),
		strconv.Itoa(len(r.Assignments.Active)),
		act.MaxDuration,
		act.AuthenticationDisplay(authContexts),
		strconv.FormatBool(act.RequiresJustification),
		strconv.FormatBool(act.RequiresTicket),
		strconv.FormatBool(act.ApprovalRequired),
		strings.Join(act.Approvers, ";"),
		r.ConfigError,
	}
}

// RoleSummaryTable builds the summary table for a role set.
func (b *Builder) RoleSummaryTable(roles []types.RoleDetailData, authContexts map[string]string) Table {
	t := Table{Header: RoleSummaryHeader}
	for _, r := range roles {
		t.Rows = append(t.Rows, b.RoleSummaryRow(r, authContexts))
	}
	return t
}

// AssignmentDetailHeader is the stable column order of the per-assignment
// detail table.
var AssignmentDetailHeader = []string{
	"Resource",
	"ResourceType",
	"Category",
	"PrincipalName",
	"PrincipalAccount",
	"MemberType",
	"ExpiresAt",
}

// AssignmentDetailRows emits one row per individual assignment across all
// three categories of every role, then every group assignment. Group rows
// disambiguate the resource as "{groupName} (Member|Owner)".
func (b *Builder) AssignmentDetailRows(roles []types.RoleDetailData, groups []types.PimGroupData) [][]string {
	var rows [][]string

	for _, r := range roles {
		for _, c := range types.Categories {
			for _, a := range r.Assignments.Category(c) {
				rows = append(rows, assignmentRow(r.Definition.DisplayName, "role", c, a))
			}
		}
	}
	for _, g := range groups {
		for _, ga := range g.Assignments {
			name := fmt.Sprintf("%s (%s)", g.Group.DisplayName, accessLabel(ga.AccessType))
			rows = append(rows, assignmentRow(name, "group", ga.AssignmentType, ga.Assignment))
		}
	}
	return rows
}

func accessLabel(at types.GroupAccessType) string {
	if at == types.AccessOwner {
		return "Owner"
	}
	return "Member"
}

func assignmentRow(resource, resourceType string, c types.AssignmentCategory, a types.Assignment) []string {
	expires := ""
	if end, ok := a.ExpiresAt(); ok {
		expires = end.UTC().Format(time.RFC3339)
	}
	return []string{
		resource,
		resourceType,
		string(c),
		a.Principal.DisplayName,
		a.Principal.Identifier(),
		string(aggregate.DeriveMemberType(a)),
		expires,
	}
}

// AssignmentDetailTable builds the detail table for a collection.
func (b *Builder) AssignmentDetailTable(roles []types.RoleDetailData, groups []types.PimGroupData) Table {
	return Table{
		Header: AssignmentDetailHeader,
		Rows:   b.AssignmentDetailRows(roles, groups),
	}
}

// WriteCSV writes a table as RFC-4180 CSV: comma-joined with a header line,
// internal quotes doubled. Unescaped commas or quotes in display names would
// corrupt the file, so quoting is delegated to encoding/csv rather than
// string concatenation.
func WriteCSV(w io.Writer, t Table) (Metadata, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return Metadata{}, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return Metadata{}, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return Metadata{}, fmt.Errorf("failed to flush csv: %w", err)
	}
	return newMetadata(FormatCSV, len(t.Rows)), nil
}

// RoleSummaryJSON is the JSON export shape of one role.
type RoleSummaryJSON struct {
	Role       types.RoleDefinition `json:"role"`
	Counts     aggregate.Stats      `json:"counts"`
	Policy     types.ResolvedPolicy `json:"policy"`
	HasPolicy  bool                 `json:"hasPolicy"`
	FetchError string               `json:"fetchError,omitempty"`
}

// GroupSummaryJSON is the JSON export shape of one group.
type GroupSummaryJSON struct {
	Group        types.PimGroup       `json:"group"`
	MemberPolicy types.ResolvedPolicy `json:"memberPolicy"`
	OwnerPolicy  types.ResolvedPolicy `json:"ownerPolicy"`
	HasPolicy    bool                 `json:"hasPolicy"`
	Assignments  int                  `json:"assignments"`
}

// BulkExport is the JSON bulk export object. Either section may be absent
// when its workload is excluded.
type BulkExport struct {
	Roles  []RoleSummaryJSON  `json:"roles,omitempty"`
	Groups []GroupSummaryJSON `json:"groups,omitempty"`
}

// BuildBulkExport assembles the JSON export object for the included
// workloads.
func (b *Builder) BuildBulkExport(roles []types.RoleDetailData, groups []types.PimGroupData) BulkExport {
	var out BulkExport
	for _, r := range roles {
		out.Roles = append(out.Roles, RoleSummaryJSON{
			Role: r.Definition,
			Counts: aggregate.Stats{
				Eligible:  len(r.Assignments.Eligible),
				Active:    len(r.Assignments.Active),
				Permanent: len(r.Assignments.Permanent),
			},
			Policy:     b.resolver.Resolve(types.ResourceRole, r.PolicyRules()),
			HasPolicy:  r.HasPolicy(),
			FetchError: r.ConfigError,
		})
	}
	for _, g := range groups {
		out.Groups = append(out.Groups, GroupSummaryJSON{
			Group:        g.Group,
			MemberPolicy: b.resolver.Resolve(types.ResourceGroupMember, g.SurfaceRules(types.AccessMember)),
			OwnerPolicy:  b.resolver.Resolve(types.ResourceGroupOwner, g.SurfaceRules(types.AccessOwner)),
			HasPolicy:    g.HasPolicySettings(),
			Assignments:  len(g.Assignments),
		})
	}
	return out
}

// WriteJSON writes the bulk export object, pretty-printed.
func WriteJSON(w io.Writer, bulk BulkExport) (Metadata, error) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bulk); err != nil {
		return Metadata{}, fmt.Errorf("failed to encode export json: %w", err)
	}
	return newMetadata(FormatJSON, len(bulk.Roles)+len(bulk.Groups)), nil
}

func newMetadata(f Format, rows int) Metadata {
	return Metadata{
		ExportID:  uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Format:    f,
		RowCount:  rows,
	}
}
