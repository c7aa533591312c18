// Package engine decides whether a request may reach a route, evaluating a Rego policy in-process with OPA.
package engine

import "context"

// Input is the request context a policy decides on.
type Input struct {
	Authenticated bool
	AccountID     string
	Role          string
	Method        string
	Path          string
}

// Evaluator authorizes route access.
type Evaluator interface {
	Allow(ctx context.Context, in Input) (bool, error)
}
