package approval

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Policy decides whether a request can be approved without a reviewer.
type Policy interface {
	AutoApprove(a *Approval) (bool, string, error)
}

// NoAutoApproval sends every request to a reviewer.
type NoAutoApproval struct{}

func (NoAutoApproval) AutoApprove(*Approval) (bool, string, error) { return false, "", nil }

// CELPolicy evaluates one CEL expression per entity type. Expressions see
// entity_type, total_value, line_count, location_id and requested_by, and
// must yield a bool.
type CELPolicy struct {
	rules map[EntityType]compiledRule
}

type compiledRule struct {
	source  string
	program cel.Program
}

// NewCELPolicy compiles rules keyed by entity type name.
func NewCELPolicy(rules map[string]string) (*CELPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("entity_type", cel.StringType),
		cel.Variable("total_value", cel.DoubleType),
		cel.Variable("line_count", cel.IntType),
		cel.Variable("location_id", cel.StringType),
		cel.Variable("requested_by", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	p := &CELPolicy{rules: make(map[EntityType]compiledRule, len(rules))}
	for name, expr := range rules {
		et := EntityType(name)
		if !et.Valid() {
			return nil, fmt.Errorf("auto-approve rule for unknown entity type %q", name)
		}
		if expr == "" {
			continue
		}

		ast, iss := env.Compile(expr)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("compile rule for %s: %w", name, iss.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule for %s must evaluate to bool, got %s", name, ast.OutputType())
		}

		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program rule for %s: %w", name, err)
		}
		p.rules[et] = compiledRule{source: expr, program: prg}
	}
	return p, nil
}

// AutoApprove evaluates the rule registered for the approval's entity type.
func (p *CELPolicy) AutoApprove(a *Approval) (bool, string, error) {
	rule, ok := p.rules[a.EntityType]
	if !ok {
		return false, "", nil
	}

	vars := map[string]any{
		"entity_type":  string(a.EntityType),
		"total_value":  0.0,
		"line_count":   int64(0),
		"location_id":  "",
		"requested_by": a.RequestedBy,
	}
	if v, ok := a.Context["total_value"].(float64); ok {
		vars["total_value"] = v
	}
	switch v := a.Context["line_count"].(type) {
	case int:
		vars["line_count"] = int64(v)
	case float64:
		vars["line_count"] = int64(v)
	}
	if v, ok := a.Context["location_id"].(string); ok {
		vars["location_id"] = v
	}

	out, _, err := rule.program.Eval(vars)
	if err != nil {
		return false, rule.source, fmt.Errorf("evaluate rule for %s: %w", a.EntityType, err)
	}
	approved, ok := out.Value().(bool)
	if !ok {
		return false, rule.source, fmt.Errorf("rule for %s returned %T", a.EntityType, out.Value())
	}
	return approved, rule.source, nil
}
