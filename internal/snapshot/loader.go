package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pimsight/go-core/pkg/types"
)

// Loader parses snapshot dump files into typed collections. Files are YAML
// or JSON (JSON parses as a YAML subset). Policy rules arrive polymorphic,
// discriminated by their @odata.type tag; unknown variants are skipped with
// a debug log, never an error.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a snapshot loader. A nil logger disables logging.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadFromFile loads one snapshot file.
func (l *Loader) LoadFromFile(path string) (*Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	snap, err := l.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return snap, nil
}

// LoadFromDirectory loads every snapshot file in a directory, merging their
// collections in file-name order. Unreadable files are skipped with a
// warning so one bad dump does not sink a reload.
func (l *Loader) LoadFromDirectory(path string) (*Snapshot, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	merged := &Snapshot{AuthContexts: map[string]string{}}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		filePath := filepath.Join(path, entry.Name())
		snap, err := l.LoadFromFile(filePath)
		if err != nil {
			l.logger.Warn("Failed to load snapshot file",
				zap.String("file", filePath),
				zap.Error(err),
			)
			continue
		}

		merged.Roles = append(merged.Roles, snap.Roles...)
		merged.Groups = append(merged.Groups, snap.Groups...)
		for id, name := range snap.AuthContexts {
			merged.AuthContexts[id] = name
		}
		if snap.FetchedAt.After(merged.FetchedAt) {
			merged.FetchedAt = snap.FetchedAt
		}
	}
	return merged, nil
}

// Parse decodes one snapshot payload.
func (l *Loader) Parse(content []byte) (*Snapshot, error) {
	var raw rawSnapshot
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	snap := &Snapshot{AuthContexts: map[string]string{}}
	if t, ok := parseTime(raw.FetchedAt); ok {
		snap.FetchedAt = t
	}
	for _, r := range raw.Roles {
		snap.Roles = append(snap.Roles, l.convertRole(r))
	}
	for _, g := range raw.Groups {
		snap.Groups = append(snap.Groups, l.convertGroup(g))
	}
	for _, ac := range raw.AuthenticationContexts {
		if ac.ID != "" {
			snap.AuthContexts[ac.ID] = ac.DisplayName
		}
	}
	return snap, nil
}

// wire shapes; tagged for both YAML and JSON sources

type rawSnapshot struct {
	FetchedAt              string           `json:"fetchedAt" yaml:"fetchedAt"`
	Roles                  []rawRole        `json:"roles" yaml:"roles"`
	Groups                 []rawGroup       `json:"groups" yaml:"groups"`
	AuthenticationContexts []rawAuthContext `json:"authenticationContexts" yaml:"authenticationContexts"`
}

type rawAuthContext struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
}

type rawRole struct {
	Definition  rawRoleDefinition  `json:"definition" yaml:"definition"`
	Assignments rawAssignmentLists `json:"assignments" yaml:"assignments"`
	Policy      *rawPolicy         `json:"policy" yaml:"policy"`
	ConfigError string             `json:"configError" yaml:"configError"`
}

// Domain types in pkg/types carry json tags only; yaml.v3 does not read
// those, so every wire position gets its own tagged struct here.
type rawRoleDefinition struct {
	ID           string `json:"id" yaml:"id"`
	DisplayName  string `json:"displayName" yaml:"displayName"`
	Description  string `json:"description" yaml:"description"`
	IsBuiltIn    bool   `json:"isBuiltIn" yaml:"isBuiltIn"`
	IsPrivileged bool   `json:"isPrivileged" yaml:"isPrivileged"`
}

type rawAssignmentLists struct {
	Permanent []rawAssignment `json:"permanent" yaml:"permanent"`
	Eligible  []rawAssignment `json:"eligible" yaml:"eligible"`
	Active    []rawAssignment `json:"active" yaml:"active"`
}

type rawPolicy struct {
	ID      string     `json:"id" yaml:"id"`
	Details rawDetails `json:"details" yaml:"details"`
}

type rawDetails struct {
	Rules []rawRule `json:"rules" yaml:"rules"`
}

type rawGroup struct {
	Group       rawPimGroup          `json:"group" yaml:"group"`
	Assignments []rawGroupAssignment `json:"assignments" yaml:"assignments"`
	Policies    *rawGroupPolicies    `json:"policies" yaml:"policies"`
	IsManaged   *bool                `json:"isManaged" yaml:"isManaged"`
}

type rawPimGroup struct {
	ID                 string `json:"id" yaml:"id"`
	DisplayName        string `json:"displayName" yaml:"displayName"`
	GroupType          string `json:"groupType" yaml:"groupType"`
	Description        string `json:"description" yaml:"description"`
	IsAssignableToRole bool   `json:"isAssignableToRole" yaml:"isAssignableToRole"`
}

type rawGroupPolicies struct {
	Member rawDetails `json:"member" yaml:"member"`
	Owner  rawDetails `json:"owner" yaml:"owner"`
}

type rawGroupAssignment struct {
	rawAssignment  `yaml:",inline"`
	AccessType     string `json:"accessType" yaml:"accessType"`
	AssignmentType string `json:"assignmentType" yaml:"assignmentType"`
}

type rawAssignment struct {
	PrincipalID  string           `json:"principalId" yaml:"principalId"`
	Principal    rawPrincipal     `json:"principal" yaml:"principal"`
	MemberType   string           `json:"memberType" yaml:"memberType"`
	ScheduleInfo *rawScheduleInfo `json:"scheduleInfo" yaml:"scheduleInfo"`
	ScopeInfo    *rawScopeInfo    `json:"scopeInfo" yaml:"scopeInfo"`
}

type rawScopeInfo struct {
	DirectoryScopeID string `json:"directoryScopeId" yaml:"directoryScopeId"`
	AppScopeID       string `json:"appScopeId" yaml:"appScopeId"`
}

type rawPrincipal struct {
	ODataType         string `json:"@odata.type" yaml:"@odata.type"`
	Kind              string `json:"kind" yaml:"kind"`
	DisplayName       string `json:"displayName" yaml:"displayName"`
	UserPrincipalName string `json:"userPrincipalName" yaml:"userPrincipalName"`
	Mail              string `json:"mail" yaml:"mail"`
}

type rawScheduleInfo struct {
	StartDateTime string         `json:"startDateTime" yaml:"startDateTime"`
	Expiration    *rawExpiration `json:"expiration" yaml:"expiration"`
}

type rawExpiration struct {
	Type        string `json:"type" yaml:"type"`
	EndDateTime string `json:"endDateTime" yaml:"endDateTime"`
	Duration    string `json:"duration" yaml:"duration"`
}

// rawRule is the union of every rule variant's fields; the @odata.type tag
// decides which subset is meaningful.
type rawRule struct {
	ODataType                  string              `json:"@odata.type" yaml:"@odata.type"`
	ID                         string              `json:"id" yaml:"id"`
	IsExpirationRequired       bool                `json:"isExpirationRequired" yaml:"isExpirationRequired"`
	MaximumDuration            string              `json:"maximumDuration" yaml:"maximumDuration"`
	EnabledRules               []string            `json:"enabledRules" yaml:"enabledRules"`
	Setting                    *rawApprovalSetting `json:"setting" yaml:"setting"`
	IsEnabled                  bool                `json:"isEnabled" yaml:"isEnabled"`
	ClaimValue                 string              `json:"claimValue" yaml:"claimValue"`
	RecipientType              string              `json:"recipientType" yaml:"recipientType"`
	NotificationLevel          string              `json:"notificationLevel" yaml:"notificationLevel"`
	IsDefaultRecipientsEnabled bool                `json:"isDefaultRecipientsEnabled" yaml:"isDefaultRecipientsEnabled"`
	NotificationRecipients     []string            `json:"notificationRecipients" yaml:"notificationRecipients"`
	Target                     rawTarget           `json:"target" yaml:"target"`
}

type rawTarget struct {
	Caller     string   `json:"caller" yaml:"caller"`
	Level      string   `json:"level" yaml:"level"`
	Operations []string `json:"operations" yaml:"operations"`
}

type rawApprovalSetting struct {
	IsApprovalRequired bool          `json:"isApprovalRequired" yaml:"isApprovalRequired"`
	ApprovalStages     []rawStage    `json:"approvalStages" yaml:"approvalStages"`
	PrimaryApprovers   []rawApprover `json:"primaryApprovers" yaml:"primaryApprovers"`
}

type rawStage struct {
	PrimaryApprovers []rawApprover `json:"primaryApprovers" yaml:"primaryApprovers"`
}

// rawApprover tolerates both the expanded shape (id/displayName) and the
// Graph subjectSet shape (userId/groupId/description).
type rawApprover struct {
	ID          string `json:"id" yaml:"id"`
	UserID      string `json:"userId" yaml:"userId"`
	GroupID     string `json:"groupId" yaml:"groupId"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Description string `json:"description" yaml:"description"`
}

func (l *Loader) convertRole(r rawRole) types.RoleDetailData {
	out := types.RoleDetailData{
		Definition: types.RoleDefinition{
			ID:           r.Definition.ID,
			DisplayName:  r.Definition.DisplayName,
			Description:  r.Definition.Description,
			IsBuiltIn:    r.Definition.IsBuiltIn,
			IsPrivileged: r.Definition.IsPrivileged,
		},
		ConfigError: r.ConfigError,
		Assignments: types.ResourceAssignments{
			Permanent: convertAssignments(r.Assignments.Permanent),
			Eligible:  convertAssignments(r.Assignments.Eligible),
			Active:    convertAssignments(r.Assignments.Active),
		},
	}
	if r.Policy != nil {
		out.Policy = &types.RolePolicy{
			ID:    r.Policy.ID,
			Rules: l.convertRules(r.Policy.Details.Rules),
		}
	}
	return out
}

func (l *Loader) convertGroup(g rawGroup) types.PimGroupData {
	out := types.PimGroupData{
		Group: types.PimGroup{
			ID:                 g.Group.ID,
			DisplayName:        g.Group.DisplayName,
			GroupType:          g.Group.GroupType,
			Description:        g.Group.Description,
			IsAssignableToRole: g.Group.IsAssignableToRole,
		},
		IsManaged: g.IsManaged,
	}
	for _, a := range g.Assignments {
		out.Assignments = append(out.Assignments, types.GroupAssignment{
			Assignment:     convertAssignment(a.rawAssignment),
			AccessType:     types.GroupAccessType(a.AccessType),
			AssignmentType: types.AssignmentCategory(a.AssignmentType),
		})
	}
	if g.Policies != nil {
		out.Policies = &types.GroupPolicies{
			Member: l.convertRules(g.Policies.Member.Rules),
			Owner:  l.convertRules(g.Policies.Owner.Rules),
		}
	}
	return out
}

func convertAssignments(raw []rawAssignment) []types.Assignment {
	var out []types.Assignment
	for _, a := range raw {
		out = append(out, convertAssignment(a))
	}
	return out
}

func convertAssignment(a rawAssignment) types.Assignment {
	out := types.Assignment{
		PrincipalID: a.PrincipalID,
		Principal: types.Principal{
			DisplayName:       a.Principal.DisplayName,
			UserPrincipalName: a.Principal.UserPrincipalName,
			Mail:              a.Principal.Mail,
			Kind:              principalKind(a.Principal),
		},
		MemberType: types.MemberType(a.MemberType),
	}
	if a.ScopeInfo != nil {
		out.ScopeInfo = &types.ScopeInfo{
			DirectoryScopeID: a.ScopeInfo.DirectoryScopeID,
			AppScopeID:       a.ScopeInfo.AppScopeID,
		}
	}
	if a.ScheduleInfo != nil {
		si := &types.ScheduleInfo{}
		if t, ok := parseTime(a.ScheduleInfo.StartDateTime); ok {
			si.StartDateTime = &t
		}
		if exp := a.ScheduleInfo.Expiration; exp != nil {
			se := &types.ScheduleExpiration{
				Type:     types.ExpirationType(exp.Type),
				Duration: exp.Duration,
			}
			if t, ok := parseTime(exp.EndDateTime); ok {
				se.EndDateTime = &t
			}
			si.Expiration = se
		}
		out.ScheduleInfo = si
	}
	return out
}

// principalKind prefers the explicit kind field and falls back to the
// @odata.type suffix.
func principalKind(p rawPrincipal) types.PrincipalKind {
	if p.Kind != "" {
		return types.PrincipalKind(p.Kind)
	}
	switch {
	case strings.HasSuffix(p.ODataType, ".group"):
		return types.PrincipalGroup
	case strings.HasSuffix(p.ODataType, ".servicePrincipal"):
		return types.PrincipalServicePrincipal
	case p.ODataType != "":
		return types.PrincipalUser
	}
	return ""
}

// parseTime tolerates absent and malformed timestamps; both read as "no
// time", matching the degrade-silently rule for schema variance.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (l *Loader) convertRules(raw []rawRule) []types.PolicyRule {
	var out []types.PolicyRule
	for _, r := range raw {
		rule := convertRule(r)
		if rule == nil {
			l.logger.Debug("Skipping unknown policy rule variant",
				zap.String("odataType", r.ODataType),
			)
			continue
		}
		out = append(out, rule)
	}
	return out
}

func convertRule(r rawRule) types.PolicyRule {
	target := types.RuleTarget{
		Caller:     types.Caller(r.Target.Caller),
		Level:      types.Level(r.Target.Level),
		Operations: r.Target.Operations,
	}

	switch types.RuleVariant(r.ODataType) {
	case types.VariantExpiration:
		return &types.ExpirationRule{
			ID:                   r.ID,
			IsExpirationRequired: r.IsExpirationRequired,
			MaximumDuration:      r.MaximumDuration,
			Target:               target,
		}
	case types.VariantEnablement:
		return &types.EnablementRule{
			ID:           r.ID,
			EnabledRules: r.EnabledRules,
			Target:       target,
		}
	case types.VariantApproval:
		rule := &types.ApprovalRule{ID: r.ID, Target: target}
		if r.Setting != nil {
			rule.Setting = types.ApprovalSettings{
				IsApprovalRequired: r.Setting.IsApprovalRequired,
				PrimaryApprovers:   convertApprovers(r.Setting.PrimaryApprovers),
			}
			for _, st := range r.Setting.ApprovalStages {
				rule.Setting.ApprovalStages = append(rule.Setting.ApprovalStages, types.ApprovalStage{
					PrimaryApprovers: convertApprovers(st.PrimaryApprovers),
				})
			}
		}
		return rule
	case types.VariantAuthenticationContext:
		return &types.AuthenticationContextRule{
			ID:         r.ID,
			IsEnabled:  r.IsEnabled,
			ClaimValue: r.ClaimValue,
			Target:     target,
		}
	case types.VariantNotification:
		return &types.NotificationRule{
			ID:                         r.ID,
			RecipientType:              types.RecipientType(r.RecipientType),
			NotificationLevel:          r.NotificationLevel,
			IsDefaultRecipientsEnabled: r.IsDefaultRecipientsEnabled,
			NotificationRecipients:     r.NotificationRecipients,
			Target:                     target,
		}
	}
	return nil
}

func convertApprovers(raw []rawApprover) []types.ApproverRef {
	var out []types.ApproverRef
	for _, a := range raw {
		ref := types.ApproverRef{DisplayName: a.DisplayName}
		if ref.DisplayName == "" {
			ref.DisplayName = a.Description
		}
		switch {
		case a.ID != "":
			ref.ID = a.ID
		case a.UserID != "":
			ref.ID = a.UserID
		default:
			ref.ID = a.GroupID
		}
		out = append(out, ref)
	}
	return out
}
