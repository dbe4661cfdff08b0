package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimsight/go-core/pkg/types"
)

const roleSnapshotJSON = `{
  "fetchedAt": "2026-01-15T08:00:00Z",
  "roles": [
    {
      "definition": {
        "id": "r1",
        "displayName": "Global Administrator",
        "isBuiltIn": true,
        "isPrivileged": true
      },
      "assignments": {
        "permanent": [
          {
            "principalId": "u1",
            "principal": {"@odata.type": "#microsoft.graph.user", "displayName": "Alice", "userPrincipalName": "alice@contoso.com"}
          },
          {
            "principalId": "g1",
            "principal": {"@odata.type": "#microsoft.graph.group", "displayName": "Ops Team"}
          }
        ],
        "eligible": [
          {
            "principalId": "u2",
            "principal": {"kind": "user", "displayName": "Bob"},
            "memberType": "Direct",
            "scheduleInfo": {"expiration": {"type": "afterDateTime", "endDateTime": "2026-06-01T00:00:00Z"}},
            "scopeInfo": {"directoryScopeId": "/"}
          }
        ]
      },
      "policy": {
        "details": {
          "rules": [
            {
              "@odata.type": "#microsoft.graph.unifiedRoleManagementPolicyExpirationRule",
              "id": "Expiration_EndUser_Assignment",
              "isExpirationRequired": true,
              "maximumDuration": "PT4H",
              "target": {"caller": "EndUser", "level": "Assignment"}
            },
            {
              "@odata.type": "#microsoft.graph.unifiedRoleManagementPolicyApprovalRule",
              "setting": {
                "isApprovalRequired": true,
                "approvalStages": [
                  {"primaryApprovers": [{"userId": "a1", "description": "Carol"}]}
                ]
              },
              "target": {"caller": "EndUser", "level": "Assignment"}
            },
            {
              "@odata.type": "#microsoft.graph.someFutureRule",
              "target": {"caller": "EndUser", "level": "Assignment"}
            }
          ]
        }
      }
    }
  ],
  "authenticationContexts": [
    {"id": "c1", "displayName": "Require compliant device"}
  ]
}`

func TestLoader_Parse_JSON(t *testing.T) {
	snap, err := NewLoader(nil).Parse([]byte(roleSnapshotJSON))
	require.NoError(t, err)
	require.Len(t, snap.Roles, 1)

	role := snap.Roles[0]
	// camelCase keys must survive the YAML-path decode
	assert.Equal(t, "r1", role.Definition.ID)
	assert.Equal(t, "Global Administrator", role.Definition.DisplayName)
	assert.True(t, role.Definition.IsBuiltIn)
	assert.True(t, role.Definition.IsPrivileged)

	require.Len(t, role.Assignments.Permanent, 2)
	assert.Equal(t, types.PrincipalUser, role.Assignments.Permanent[0].Principal.Kind)
	assert.Equal(t, types.PrincipalGroup, role.Assignments.Permanent[1].Principal.Kind)

	require.Len(t, role.Assignments.Eligible, 1)
	end, ok := role.Assignments.Eligible[0].ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, "2026-06-01T00:00:00Z", end.UTC().Format("2006-01-02T15:04:05Z"))
	require.NotNil(t, role.Assignments.Eligible[0].ScopeInfo)
	assert.Equal(t, "/", role.Assignments.Eligible[0].ScopeInfo.DirectoryScopeID)

	// unknown rule variant is skipped, the two known ones survive
	require.NotNil(t, role.Policy)
	require.Len(t, role.Policy.Rules, 2)

	exp, ok := role.Policy.Rules[0].(*types.ExpirationRule)
	require.True(t, ok)
	assert.Equal(t, "PT4H", exp.MaximumDuration)
	assert.Equal(t, types.CallerEndUser, exp.Target.Caller)

	ap, ok := role.Policy.Rules[1].(*types.ApprovalRule)
	require.True(t, ok)
	refs := ap.Setting.PrimaryApproverRefs()
	require.Len(t, refs, 1)
	assert.Equal(t, "a1", refs[0].ID)
	assert.Equal(t, "Carol", refs[0].Name())

	assert.Equal(t, "Require compliant device", snap.AuthContexts["c1"])
}

const groupSnapshotYAML = `
groups:
  - group:
      id: g1
      displayName: Break Glass
      isAssignableToRole: true
    isManaged: true
    assignments:
      - principalId: u1
        principal:
          kind: user
          displayName: Alice
        accessType: member
        assignmentType: eligible
      - principalId: u2
        principal:
          kind: user
          displayName: Bob
        accessType: owner
        assignmentType: active
    policies:
      member:
        rules:
          - "@odata.type": "#microsoft.graph.unifiedRoleManagementPolicyEnablementRule"
            enabledRules: [MultiFactorAuthentication]
            target: {caller: EndUser, level: Assignment}
      owner:
        rules: []
`

func TestLoader_Parse_YAMLGroup(t *testing.T) {
	snap, err := NewLoader(nil).Parse([]byte(groupSnapshotYAML))
	require.NoError(t, err)
	require.Len(t, snap.Groups, 1)

	g := snap.Groups[0]
	assert.Equal(t, "Break Glass", g.Group.DisplayName)
	assert.True(t, g.Group.IsAssignableToRole)
	require.NotNil(t, g.IsManaged)
	assert.True(t, *g.IsManaged)

	require.Len(t, g.Assignments, 2)
	assert.Equal(t, types.AccessMember, g.Assignments[0].AccessType)
	assert.Equal(t, types.CategoryEligible, g.Assignments[0].AssignmentType)
	assert.Equal(t, types.AccessOwner, g.Assignments[1].AccessType)

	assert.True(t, g.HasPolicySettings())
	require.Len(t, g.SurfaceRules(types.AccessMember), 1)
	assert.Empty(t, g.SurfaceRules(types.AccessOwner))
}

func TestLoader_Parse_Malformed(t *testing.T) {
	_, err := NewLoader(nil).Parse([]byte("roles: [not a mapping"))
	assert.Error(t, err)
}

func TestLoader_Parse_MalformedTimestampsDegrade(t *testing.T) {
	payload := `{
  "roles": [{
    "definition": {"id": "r1", "displayName": "Role"},
    "assignments": {
      "eligible": [{
        "principalId": "u1",
        "principal": {"kind": "user"},
        "scheduleInfo": {"expiration": {"type": "afterDateTime", "endDateTime": "not-a-date"}}
      }]
    }
  }]
}`
	snap, err := NewLoader(nil).Parse([]byte(payload))
	require.NoError(t, err)
	_, ok := snap.Roles[0].Assignments.Eligible[0].ExpiresAt()
	assert.False(t, ok, "malformed endDateTime must read as no expiration")
}

func TestLoader_LoadFromDirectory_MergesAndSkipsBad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01-roles.json"), []byte(roleSnapshotJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02-groups.yaml"), []byte(groupSnapshotYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "03-broken.yaml"), []byte("roles: [oops"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("not a snapshot"), 0o644))

	snap, err := NewLoader(nil).LoadFromDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, snap.Roles, 1)
	assert.Len(t, snap.Groups, 1)
	assert.Equal(t, "Require compliant device", snap.AuthContexts["c1"])
	assert.Equal(t, 2026, snap.FetchedAt.Year())
}
