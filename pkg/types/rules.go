package types

// RuleVariant is the discriminant tag carried by every policy rule record.
// The values are the Graph API @odata.type identifiers for the
// unifiedRoleManagementPolicyRule resource types.
type RuleVariant string

const (
	VariantExpiration            RuleVariant = "#microsoft.graph.unifiedRoleManagementPolicyExpirationRule"
	VariantEnablement            RuleVariant = "#microsoft.graph.unifiedRoleManagementPolicyEnablementRule"
	VariantApproval              RuleVariant = "#microsoft.graph.unifiedRoleManagementPolicyApprovalRule"
	VariantAuthenticationContext RuleVariant = "#microsoft.graph.unifiedRoleManagementPolicyAuthenticationContextRule"
	VariantNotification          RuleVariant = "#microsoft.graph.unifiedRoleManagementPolicyNotificationRule"
)

// Enablement rule names carried in EnablementRule.EnabledRules.
const (
	EnabledRuleMFA           = "MultiFactorAuthentication"
	EnabledRuleJustification = "Justification"
	EnabledRuleTicketing     = "Ticketing"
)

// RecipientType identifies who a notification rule addresses.
type RecipientType string

const (
	RecipientAdmin     RecipientType = "Admin"
	RecipientRequestor RecipientType = "Requestor"
	RecipientApprover  RecipientType = "Approver"
)

// RecipientTypes lists the recipient types in display order.
var RecipientTypes = []RecipientType{RecipientAdmin, RecipientRequestor, RecipientApprover}

// RuleTarget keys a policy rule to the lifecycle event it governs.
type RuleTarget struct {
	Caller     Caller   `json:"caller" yaml:"caller"`
	Level      Level    `json:"level" yaml:"level"`
	Operations []string `json:"operations,omitempty" yaml:"operations,omitempty"`
}

// PolicyRule is the closed variant set of policy rule records. Concrete types
// are ExpirationRule, EnablementRule, ApprovalRule, AuthenticationContextRule
// and NotificationRule.
type PolicyRule interface {
	Variant() RuleVariant
	RuleTarget() RuleTarget
}

// ExpirationRule governs whether an assignment or activation must expire and
// how long it may last. MaximumDuration is the raw ISO-8601 duration string as
// received; an empty value means no limit is configured.
type ExpirationRule struct {
	ID                   string     `json:"id,omitempty"`
	IsExpirationRequired bool       `json:"isExpirationRequired"`
	MaximumDuration      string     `json:"maximumDuration,omitempty"`
	Target               RuleTarget `json:"target"`
}

func (r *ExpirationRule) Variant() RuleVariant   { return VariantExpiration }
func (r *ExpirationRule) RuleTarget() RuleTarget { return r.Target }

// EnablementRule lists the gates required on the targeted event
// (MultiFactorAuthentication, Justification, Ticketing).
type EnablementRule struct {
	ID           string     `json:"id,omitempty"`
	EnabledRules []string   `json:"enabledRules,omitempty"`
	Target       RuleTarget `json:"target"`
}

func (r *EnablementRule) Variant() RuleVariant   { return VariantEnablement }
func (r *EnablementRule) RuleTarget() RuleTarget { return r.Target }

// Requires reports whether a named gate is enabled.
func (r *EnablementRule) Requires(name string) bool {
	for _, er := range r.EnabledRules {
		if er == name {
			return true
		}
	}
	return false
}

// ApproverRef identifies one configured approver.
type ApproverRef struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Name returns the approver's display name, falling back to the id when the
// upstream record carries no name.
func (a ApproverRef) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.ID
}

// ApprovalStage is one stage of an approval chain.
type ApprovalStage struct {
	PrimaryApprovers []ApproverRef `json:"primaryApprovers,omitempty"`
}

// ApprovalSettings carries the approval configuration of an ApprovalRule.
// Upstream payloads come in two shapes: staged (ApprovalStages populated) and
// flat (PrimaryApprovers at the top level). Both are retained; consumers use
// PrimaryApproverRefs.
type ApprovalSettings struct {
	IsApprovalRequired bool            `json:"isApprovalRequired"`
	ApprovalStages     []ApprovalStage `json:"approvalStages,omitempty"`
	PrimaryApprovers   []ApproverRef   `json:"primaryApprovers,omitempty"`
}

// PrimaryApproverRefs returns the first stage's primary approvers, falling
// back to the flat top-level list when no stages are present.
func (s ApprovalSettings) PrimaryApproverRefs() []ApproverRef {
	if len(s.ApprovalStages) > 0 {
		return s.ApprovalStages[0].PrimaryApprovers
	}
	return s.PrimaryApprovers
}

// ApprovalRule governs whether the targeted event needs approval and by whom.
type ApprovalRule struct {
	ID      string           `json:"id,omitempty"`
	Setting ApprovalSettings `json:"setting"`
	Target  RuleTarget       `json:"target"`
}

func (r *ApprovalRule) Variant() RuleVariant   { return VariantApproval }
func (r *ApprovalRule) RuleTarget() RuleTarget { return r.Target }

// AuthenticationContextRule attaches a conditional-access authentication
// context to the targeted event. ClaimValue is the context identifier; a
// display label is resolved separately via the authentication-context lookup.
type AuthenticationContextRule struct {
	ID         string     `json:"id,omitempty"`
	IsEnabled  bool       `json:"isEnabled"`
	ClaimValue string     `json:"claimValue,omitempty"`
	Target     RuleTarget `json:"target"`
}

func (r *AuthenticationContextRule) Variant() RuleVariant   { return VariantAuthenticationContext }
func (r *AuthenticationContextRule) RuleTarget() RuleTarget { return r.Target }

// NotificationRule routes notifications for the targeted event to one
// recipient type.
type NotificationRule struct {
	ID                         string        `json:"id,omitempty"`
	RecipientType              RecipientType `json:"recipientType"`
	NotificationLevel          string        `json:"notificationLevel,omitempty"`
	IsDefaultRecipientsEnabled bool          `json:"isDefaultRecipientsEnabled"`
	NotificationRecipients     []string      `json:"notificationRecipients,omitempty"`
	Target                     RuleTarget    `json:"target"`
}

func (r *NotificationRule) Variant() RuleVariant   { return VariantNotification }
func (r *NotificationRule) RuleTarget() RuleTarget { return r.Target }
