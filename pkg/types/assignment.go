package types

import "time"

// PrincipalKind is the directory object type of an assignment's principal.
type PrincipalKind string

const (
	PrincipalUser             PrincipalKind = "user"
	PrincipalGroup            PrincipalKind = "group"
	PrincipalServicePrincipal PrincipalKind = "servicePrincipal"
)

// Principal is the expanded directory object an assignment points at.
type Principal struct {
	DisplayName       string        `json:"displayName,omitempty"`
	UserPrincipalName string        `json:"userPrincipalName,omitempty"`
	Mail              string        `json:"mail,omitempty"`
	Kind              PrincipalKind `json:"kind,omitempty"`
}

// Identifier returns the best human-readable account identifier available.
func (p Principal) Identifier() string {
	if p.UserPrincipalName != "" {
		return p.UserPrincipalName
	}
	return p.Mail
}

// ExpirationType is the schedule expiration mode of a non-permanent
// assignment.
type ExpirationType string

const (
	ExpirationNone          ExpirationType = "noExpiration"
	ExpirationAfterDateTime ExpirationType = "afterDateTime"
	ExpirationAfterDuration ExpirationType = "afterDuration"
)

// ScheduleExpiration describes when a scheduled assignment ends.
type ScheduleExpiration struct {
	Type        ExpirationType `json:"type,omitempty"`
	EndDateTime *time.Time     `json:"endDateTime,omitempty"`
	Duration    string         `json:"duration,omitempty"`
}

// ScheduleInfo carries the activation window of an eligible or active
// assignment. Permanent records have none.
type ScheduleInfo struct {
	StartDateTime *time.Time          `json:"startDateTime,omitempty"`
	Expiration    *ScheduleExpiration `json:"expiration,omitempty"`
}

// ScopeInfo records the directory scope an assignment applies at.
type ScopeInfo struct {
	DirectoryScopeID string `json:"directoryScopeId,omitempty"`
	AppScopeID       string `json:"appScopeId,omitempty"`
}

// Assignment is one individual role or group assignment record.
//
// MemberType is absent on raw permanent records; consumers must derive it
// from the principal kind instead of reading the field directly (group
// principals hold assignments as "Group", everything else as "Direct").
type Assignment struct {
	PrincipalID  string        `json:"principalId"`
	Principal    Principal     `json:"principal"`
	MemberType   MemberType    `json:"memberType,omitempty"`
	ScheduleInfo *ScheduleInfo `json:"scheduleInfo,omitempty"`
	ScopeInfo    *ScopeInfo    `json:"scopeInfo,omitempty"`
}

// ExpiresAt returns the assignment's end time, or false when it has no
// datetime-bound expiration.
func (a Assignment) ExpiresAt() (time.Time, bool) {
	if a.ScheduleInfo == nil || a.ScheduleInfo.Expiration == nil {
		return time.Time{}, false
	}
	exp := a.ScheduleInfo.Expiration
	if exp.EndDateTime == nil {
		return time.Time{}, false
	}
	return *exp.EndDateTime, true
}

// ResourceAssignments holds the three assignment lists of one role or one
// (group, accessType) surface.
type ResourceAssignments struct {
	Permanent []Assignment `json:"permanent,omitempty"`
	Eligible  []Assignment `json:"eligible,omitempty"`
	Active    []Assignment `json:"active,omitempty"`
}

// Category returns the list for one assignment category.
func (ra ResourceAssignments) Category(c AssignmentCategory) []Assignment {
	switch c {
	case CategoryPermanent:
		return ra.Permanent
	case CategoryEligible:
		return ra.Eligible
	case CategoryActive:
		return ra.Active
	}
	return nil
}

// Total is the assignment count across all three categories.
func (ra ResourceAssignments) Total() int {
	return len(ra.Permanent) + len(ra.Eligible) + len(ra.Active)
}
