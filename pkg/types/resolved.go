package types

// ActivationSettings is the normalized activation block of a resolved policy:
// what an end user must satisfy to activate eligible access.
type ActivationSettings struct {
	// MaxDurationHours is 0 when no expiration rule limits activation.
	MaxDurationHours int `json:"maxDurationHours"`
	// MaxDuration is the raw ISO-8601 duration string for export consumers.
	MaxDuration string `json:"maxDuration,omitempty"`
	// MaxDurationDisplay is the dashboard rendering of the limit ("8h", "2d");
	// empty when no duration is configured.
	MaxDurationDisplay    string   `json:"maxDurationDisplay,omitempty"`
	RequiresMFA           bool     `json:"requiresMfa"`
	RequiresJustification bool     `json:"requiresJustification"`
	RequiresTicket        bool     `json:"requiresTicket"`
	// AuthenticationContextClaim is the conditional-access context id when an
	// enabled authentication-context rule applies, empty otherwise.
	AuthenticationContextClaim string   `json:"authenticationContextClaim,omitempty"`
	ApprovalRequired           bool     `json:"approvalRequired"`
	Approvers                  []string `json:"approvers,omitempty"`
}

// AuthenticationDisplay renders the activation authentication requirement.
// Conditional access takes precedence over MFA when both apply; the lookup
// maps authentication-context ids to display names and falls back to the raw
// claim id on a miss.
func (a ActivationSettings) AuthenticationDisplay(lookup map[string]string) string {
	if a.AuthenticationContextClaim != "" {
		label := a.AuthenticationContextClaim
		if name, ok := lookup[a.AuthenticationContextClaim]; ok && name != "" {
			label = name
		}
		return "Conditional Access: " + label
	}
	if a.RequiresMFA {
		return "Azure MFA"
	}
	return "None"
}

// AssignmentSettings is the normalized assignment block of a resolved policy:
// what an administrator may configure when assigning access.
type AssignmentSettings struct {
	EligibleAllowsPermanent  bool   `json:"eligibleAllowsPermanent"`
	EligibleMaxDurationHours int    `json:"eligibleMaxDurationHours"`
	EligibleMaxDuration      string `json:"eligibleMaxDuration,omitempty"`
	ActiveAllowsPermanent    bool   `json:"activeAllowsPermanent"`
	ActiveMaxDurationHours   int    `json:"activeMaxDurationHours"`
	ActiveMaxDuration        string `json:"activeMaxDuration,omitempty"`
	ActiveRequiresMFA        bool   `json:"activeRequiresMfa"`
	ActiveRequiresJust       bool   `json:"activeRequiresJustification"`
}

// NotificationKey addresses one notification setting within a resolved
// policy.
type NotificationKey struct {
	Caller    Caller
	Level     Level
	Recipient RecipientType
}

// NotificationSetting is the normalized routing for one notification key.
type NotificationSetting struct {
	DefaultRecipientsEnabled bool     `json:"defaultRecipientsEnabled"`
	AdditionalRecipients     []string `json:"additionalRecipients,omitempty"`
	Level                    string   `json:"level,omitempty"`
}

// ResolvedPolicy is the fully-typed settings object derived from one raw rule
// list. It is recomputed on demand and never persisted. The zero value is the
// valid "no policy configured" shape (every flag false, durations zero).
type ResolvedPolicy struct {
	Kind          ResourceKind                            `json:"kind"`
	Activation    ActivationSettings                      `json:"activation"`
	Assignment    AssignmentSettings                      `json:"assignment"`
	Notifications map[NotificationKey]NotificationSetting `json:"-"`
}

// Notification returns the setting for one key, reporting whether one was
// resolved.
func (p ResolvedPolicy) Notification(c Caller, l Level, r RecipientType) (NotificationSetting, bool) {
	s, ok := p.Notifications[NotificationKey{Caller: c, Level: l, Recipient: r}]
	return s, ok
}
