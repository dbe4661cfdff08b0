package types

// RoleDefinition is the directory role definition a detail record describes.
type RoleDefinition struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description,omitempty"`
	IsBuiltIn    bool   `json:"isBuiltIn"`
	IsPrivileged bool   `json:"isPrivileged"`
}

// RolePolicy wraps the raw rule list of one role's management policy. It is
// immutable once fetched and replaced wholesale on refresh.
type RolePolicy struct {
	ID    string       `json:"id,omitempty"`
	Rules []PolicyRule `json:"rules,omitempty"`
}

// RoleDetailData is the already-fetched detail record for one directory role.
// ConfigError, when set, is the upstream fetch failure verbatim; the core
// passes it through without interpreting it.
type RoleDetailData struct {
	Definition  RoleDefinition      `json:"definition"`
	Assignments ResourceAssignments `json:"assignments"`
	Policy      *RolePolicy         `json:"policy,omitempty"`
	ConfigError string              `json:"configError,omitempty"`
}

// HasPolicy reports whether a management policy was fetched for the role.
func (r RoleDetailData) HasPolicy() bool {
	return r.Policy != nil && len(r.Policy.Rules) > 0
}

// PolicyRules returns the role's raw rule list, nil when no policy is
// present. Missing policy is valid data, not an error.
func (r RoleDetailData) PolicyRules() []PolicyRule {
	if r.Policy == nil {
		return nil
	}
	return r.Policy.Rules
}

// PimGroup is the directory group a PIM group record describes.
type PimGroup struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"displayName"`
	GroupType          string `json:"groupType,omitempty"`
	Description        string `json:"description,omitempty"`
	IsAssignableToRole bool   `json:"isAssignableToRole"`
}

// GroupAssignment is one group assignment record, tagged with the surface it
// belongs to (member or owner) and its assignment state.
type GroupAssignment struct {
	Assignment
	AccessType     GroupAccessType    `json:"accessType"`
	AssignmentType AssignmentCategory `json:"assignmentType"`
}

// GroupPolicies carries the raw rule lists of a group's two governance
// surfaces. Either list may be empty when the surface is unmanaged.
type GroupPolicies struct {
	Member []PolicyRule `json:"member,omitempty"`
	Owner  []PolicyRule `json:"owner,omitempty"`
}

// Surface returns the rule list for one access type.
func (g GroupPolicies) Surface(at GroupAccessType) []PolicyRule {
	if at == AccessOwner {
		return g.Owner
	}
	return g.Member
}

// PimGroupData is the already-fetched record for one role-assignable group.
// IsManaged is tri-state: nil means management state is unknown (not yet
// onboarded or not queryable), distinct from explicitly unmanaged.
type PimGroupData struct {
	Group       PimGroup          `json:"group"`
	Assignments []GroupAssignment `json:"assignments,omitempty"`
	Policies    *GroupPolicies    `json:"policies,omitempty"`
	IsManaged   *bool             `json:"isManaged,omitempty"`
}

// HasPolicySettings reports whether any policy rules were fetched for either
// surface of the group.
func (g PimGroupData) HasPolicySettings() bool {
	return g.Policies != nil && (len(g.Policies.Member) > 0 || len(g.Policies.Owner) > 0)
}

// SurfaceRules returns the raw rule list for one access type, nil when the
// group carries no policies.
func (g PimGroupData) SurfaceRules(at GroupAccessType) []PolicyRule {
	if g.Policies == nil {
		return nil
	}
	return g.Policies.Surface(at)
}

// AssignmentsOf returns the group's assignments for one access type and
// category, preserving input order.
func (g PimGroupData) AssignmentsOf(at GroupAccessType, c AssignmentCategory) []GroupAssignment {
	var out []GroupAssignment
	for _, a := range g.Assignments {
		if a.AccessType == at && a.AssignmentType == c {
			out = append(out, a)
		}
	}
	return out
}
