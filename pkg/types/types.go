// Package types provides shared types for the governance reporting core
package types

// ResourceKind identifies the governance surface a policy applies to.
// Directory roles carry one policy; role-assignable groups carry one per
// access type (member, owner).
type ResourceKind string

const (
	ResourceRole        ResourceKind = "role"
	ResourceGroupMember ResourceKind = "groupMember"
	ResourceGroupOwner  ResourceKind = "groupOwner"
)

// Caller identifies who triggers a policy rule's lifecycle event.
type Caller string

const (
	CallerEndUser Caller = "EndUser"
	CallerAdmin   Caller = "Admin"
)

// Level identifies the lifecycle stage a rule governs.
type Level string

const (
	LevelEligibility Level = "Eligibility"
	LevelAssignment  Level = "Assignment"
)

// AssignmentCategory is one of the three assignment states.
type AssignmentCategory string

const (
	CategoryPermanent AssignmentCategory = "permanent"
	CategoryEligible  AssignmentCategory = "eligible"
	CategoryActive    AssignmentCategory = "active"
)

// Categories lists the assignment categories in display order.
var Categories = []AssignmentCategory{CategoryPermanent, CategoryEligible, CategoryActive}

// MemberType records whether a principal holds an assignment directly or
// through group membership.
type MemberType string

const (
	MemberTypeDirect MemberType = "Direct"
	MemberTypeGroup  MemberType = "Group"
)

// GroupAccessType distinguishes the two governance surfaces of a group.
type GroupAccessType string

const (
	AccessMember GroupAccessType = "member"
	AccessOwner  GroupAccessType = "owner"
)

// ChartPoint is one named slice of a chart series. Color is a presentation
// hint for the rendering layer, not semantic.
type ChartPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color,omitempty"`
}
