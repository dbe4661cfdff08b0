// Package filter compiles CEL visibility expressions into the resource
// predicates the aggregator consumes. Expressions see one variable,
// "resource", a map of the resource's display-relevant attributes, e.g.
//
//	resource.isPrivileged && !resource.isBuiltIn
package filter

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/pimsight/go-core/pkg/types"
)

// Engine compiles and caches filter programs. Safe for concurrent use.
type Engine struct {
	env      *cel.Env
	programs sync.Map // expression -> cel.Program
}

// NewEngine creates a filter engine.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("resource", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cel environment: %w", err)
	}
	return &Engine{env: env}, nil
}

// Compile compiles an expression, caching the program by source text.
func (e *Engine) Compile(expr string) (cel.Program, error) {
	if cached, ok := e.programs.Load(expr); ok {
		return cached.(cel.Program), nil
	}

	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", expr, iss.Err())
	}
	// Field selects on the dyn-valued resource map type as dyn, so dyn passes
	// here and evalBool rejects non-bool values at evaluation time.
	if out := ast.OutputType(); out != cel.BoolType && out != cel.DynType {
		return nil, fmt.Errorf("filter expression %q must evaluate to bool, got %s", expr, out)
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter program: %w", err)
	}
	e.programs.Store(expr, prg)
	return prg, nil
}

// RoleVisibility compiles an expression into a role predicate. Evaluation
// errors hide the resource rather than failing the aggregation.
func (e *Engine) RoleVisibility(expr string) (func(types.RoleDetailData) bool, error) {
	prg, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}
	return func(r types.RoleDetailData) bool {
		return evalBool(prg, roleAttributes(r))
	}, nil
}

// GroupVisibility compiles an expression into a group predicate.
func (e *Engine) GroupVisibility(expr string) (func(types.PimGroupData) bool, error) {
	prg, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}
	return func(g types.PimGroupData) bool {
		return evalBool(prg, groupAttributes(g))
	}, nil
}

func evalBool(prg cel.Program, resource map[string]any) bool {
	out, _, err := prg.Eval(map[string]any{"resource": resource})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// roleAttributes is the attribute map a role filter expression sees.
func roleAttributes(r types.RoleDetailData) map[string]any {
	return map[string]any{
		"kind":         "role",
		"id":           r.Definition.ID,
		"displayName":  r.Definition.DisplayName,
		"isBuiltIn":    r.Definition.IsBuiltIn,
		"isPrivileged": r.Definition.IsPrivileged,
		"hasPolicy":    r.HasPolicy(),
		"hasError":     r.ConfigError != "",
		"assignments":  r.Assignments.Total(),
	}
}

// groupAttributes is the attribute map a group filter expression sees.
// isManaged is false for unknown management state; expressions that need the
// distinction test managedKnown.
func groupAttributes(g types.PimGroupData) map[string]any {
	managed := g.IsManaged != nil && *g.IsManaged
	return map[string]any{
		"kind":               "group",
		"id":                 g.Group.ID,
		"displayName":        g.Group.DisplayName,
		"groupType":          g.Group.GroupType,
		"isAssignableToRole": g.Group.IsAssignableToRole,
		"isManaged":          managed,
		"managedKnown":       g.IsManaged != nil,
		"hasPolicy":          g.HasPolicySettings(),
		"assignments":        len(g.Assignments),
	}
}
