package policy

import (
	"go.uber.org/zap"

	"github.com/pimsight/go-core/internal/duration"
	"github.com/pimsight/go-core/pkg/types"
)

// Resolver normalizes raw rule lists into ResolvedPolicy values. It is pure
// and stateless; the same input always yields the same output.
//
// The target keys it reads are fixed by the upstream policy schema:
// activation settings live under {EndUser, Assignment}, assignment settings
// under {Admin, Eligibility} and {Admin, Assignment}.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a resolver. A nil logger disables logging.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve derives the normalized settings for one governance surface. An
// empty or nil rule list is valid input and yields the zero "no policy
// configured" shape; distinguishing that from a fetch failure is the
// caller's concern.
func (r *Resolver) Resolve(kind types.ResourceKind, rules []types.PolicyRule) types.ResolvedPolicy {
	resolved := types.ResolvedPolicy{
		Kind:          kind,
		Notifications: map[types.NotificationKey]types.NotificationSetting{},
	}
	if len(rules) == 0 {
		return resolved
	}

	ix := BuildIndex(rules)
	resolved.Activation = r.resolveActivation(ix)
	resolved.Assignment = r.resolveAssignment(ix)
	resolved.Notifications = resolveNotifications(ix)

	r.logger.Debug("resolved policy",
		zap.String("kind", string(kind)),
		zap.Int("rules", ix.Len()),
		zap.Bool("approvalRequired", resolved.Activation.ApprovalRequired),
	)
	return resolved
}

func (r *Resolver) resolveActivation(ix *Index) types.ActivationSettings {
	var act types.ActivationSettings

	if exp := ix.expiration(types.CallerEndUser, types.LevelAssignment); exp != nil {
		act.MaxDuration = exp.MaximumDuration
		act.MaxDurationHours = duration.ParseHours(exp.MaximumDuration)
		if exp.MaximumDuration != "" {
			act.MaxDurationDisplay = duration.CompactLabel(act.MaxDurationHours)
		}
	}
	if en := ix.enablement(types.CallerEndUser, types.LevelAssignment); en != nil {
		act.RequiresMFA = en.Requires(types.EnabledRuleMFA)
		act.RequiresJustification = en.Requires(types.EnabledRuleJustification)
		act.RequiresTicket = en.Requires(types.EnabledRuleTicketing)
	}
	if ap := ix.approval(types.CallerEndUser, types.LevelAssignment); ap != nil {
		act.ApprovalRequired = ap.Setting.IsApprovalRequired
		for _, ref := range ap.Setting.PrimaryApproverRefs() {
			act.Approvers = append(act.Approvers, ref.Name())
		}
	}
	if ac := ix.authContext(types.CallerEndUser, types.LevelAssignment); ac != nil {
		if ac.IsEnabled && ac.ClaimValue != "" {
			act.AuthenticationContextClaim = ac.ClaimValue
		}
	}
	return act
}

func (r *Resolver) resolveAssignment(ix *Index) types.AssignmentSettings {
	var as types.AssignmentSettings

	if exp := ix.expiration(types.CallerAdmin, types.LevelEligibility); exp != nil {
		as.EligibleAllowsPermanent = !exp.IsExpirationRequired
		as.EligibleMaxDuration = exp.MaximumDuration
		as.EligibleMaxDurationHours = duration.ParseHours(exp.MaximumDuration)
	}
	if exp := ix.expiration(types.CallerAdmin, types.LevelAssignment); exp != nil {
		as.ActiveAllowsPermanent = !exp.IsExpirationRequired
		as.ActiveMaxDuration = exp.MaximumDuration
		as.ActiveMaxDurationHours = duration.ParseHours(exp.MaximumDuration)
	}
	if en := ix.enablement(types.CallerAdmin, types.LevelAssignment); en != nil {
		as.ActiveRequiresMFA = en.Requires(types.EnabledRuleMFA)
		as.ActiveRequiresJust = en.Requires(types.EnabledRuleJustification)
	}
	return as
}

// notificationTargets are the three (caller, level) pairs the notification
// table reads. Each pair is matched against all three recipient types.
var notificationTargets = []struct {
	Caller types.Caller
	Level  types.Level
}{
	{types.CallerAdmin, types.LevelEligibility},
	{types.CallerAdmin, types.LevelAssignment},
	{types.CallerEndUser, types.LevelAssignment},
}

func resolveNotifications(ix *Index) map[types.NotificationKey]types.NotificationSetting {
	out := map[types.NotificationKey]types.NotificationSetting{}
	for _, raw := range ix.FilterByVariant(types.VariantNotification) {
		n, ok := raw.(*types.NotificationRule)
		if !ok {
			continue
		}
		for _, tgt := range notificationTargets {
			t := n.RuleTarget()
			if t.Caller != tgt.Caller || t.Level != tgt.Level {
				continue
			}
			key := types.NotificationKey{Caller: t.Caller, Level: t.Level, Recipient: n.RecipientType}
			if _, exists := out[key]; exists {
				// first rule in list order wins for duplicate keys
				continue
			}
			out[key] = types.NotificationSetting{
				DefaultRecipientsEnabled: n.IsDefaultRecipientsEnabled,
				AdditionalRecipients:     n.NotificationRecipients,
				Level:                    n.NotificationLevel,
			}
		}
	}
	return out
}
