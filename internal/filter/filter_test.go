package filter

import (
	"testing"

	"github.com/pimsight/go-core/pkg/types"
)

func TestRoleVisibility(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	visible, err := e.RoleVisibility("resource.isPrivileged && !resource.isBuiltIn")
	if err != nil {
		t.Fatalf("RoleVisibility: %v", err)
	}

	custom := types.RoleDetailData{Definition: types.RoleDefinition{IsPrivileged: true}}
	builtin := types.RoleDetailData{Definition: types.RoleDefinition{IsPrivileged: true, IsBuiltIn: true}}

	if !visible(custom) {
		t.Error("privileged custom role must be visible")
	}
	if visible(builtin) {
		t.Error("built-in role must be masked")
	}
}

func TestGroupVisibility_ManagedTriState(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	visible, err := e.GroupVisibility("resource.managedKnown && resource.isManaged")
	if err != nil {
		t.Fatalf("GroupVisibility: %v", err)
	}

	managed := true
	unknown := types.PimGroupData{Group: types.PimGroup{ID: "g1"}}
	onboarded := types.PimGroupData{Group: types.PimGroup{ID: "g2"}, IsManaged: &managed}

	if visible(unknown) {
		t.Error("unknown management state must not pass an isManaged filter")
	}
	if !visible(onboarded) {
		t.Error("managed group must pass")
	}
}

func TestCompile_Errors(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if _, err := e.Compile("resource.isPrivileged &&"); err == nil {
		t.Error("syntax error must fail compilation")
	}
	if _, err := e.Compile("1 + 1"); err == nil {
		t.Error("statically non-bool expression must be rejected")
	}
	if _, err := e.Compile(`"admin"`); err == nil {
		t.Error("string expression must be rejected")
	}
}

func TestCompile_DynFieldSelects(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// a bare field select types as dyn and must compile
	if _, err := e.Compile("resource.isPrivileged"); err != nil {
		t.Fatalf("dyn field select must compile: %v", err)
	}

	visible, err := e.RoleVisibility("resource.isPrivileged")
	if err != nil {
		t.Fatalf("RoleVisibility: %v", err)
	}
	if !visible(types.RoleDetailData{Definition: types.RoleDefinition{IsPrivileged: true}}) {
		t.Error("privileged role must pass a bare isPrivileged filter")
	}
	if visible(types.RoleDetailData{}) {
		t.Error("non-privileged role must be masked")
	}

	// dyn that evaluates to a non-bool value hides the resource
	named, err := e.RoleVisibility("resource.displayName")
	if err != nil {
		t.Fatalf("RoleVisibility: %v", err)
	}
	if named(types.RoleDetailData{Definition: types.RoleDefinition{DisplayName: "Reader"}}) {
		t.Error("non-bool evaluation result must mask the resource")
	}
}

func TestCompile_CachesPrograms(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	first, err := e.Compile("resource.hasPolicy")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	second, err := e.Compile("resource.hasPolicy")
	if err != nil {
		t.Fatalf("Compile (cached): %v", err)
	}
	if first != second {
		t.Error("identical expressions must reuse the cached program")
	}
}
