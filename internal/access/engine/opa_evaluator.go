package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

const defaultQuery = "data.afriquize.access.allow"

// DefaultPolicy admits anyone to non-admin routes and only admins to /api/admin/.
// The prefix match ignores case.
const DefaultPolicy = `package afriquize.access

default allow := false

admin_route if {
	startswith(lower(input.path), "/api/admin/")
}

allow if {
	not admin_route
}

allow if {
	admin_route
	input.authenticated
	input.role == "admin"
}
`

// OPAEvaluator evaluates a prepared Rego query for each request.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (DefaultPolicy when empty) and prepares the allow query.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	pq, err := rego.New(
		rego.Query(defaultQuery),
		rego.Module("access.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile access policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// Allow evaluates the policy for in. An undefined result is a deny.
func (e *OPAEvaluator) Allow(ctx context.Context, in Input) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(toInput(in)))
	if err != nil {
		return false, fmt.Errorf("eval access policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("access policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}

// HealthCheck evaluates the prepared policy against a fixed anonymous request.
// Does not touch the database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(toInput(Input{Method: "GET", Path: "/api/health"})))
	if err != nil {
		return fmt.Errorf("eval access policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return errors.New("access policy query returned no result")
	}
	return nil
}

func toInput(in Input) map[string]interface{} {
	return map[string]interface{}{
		"authenticated": in.Authenticated,
		"account_id":    in.AccountID,
		"role":          in.Role,
		"method":        in.Method,
		"path":          in.Path,
	}
}
