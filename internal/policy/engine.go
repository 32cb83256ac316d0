// Package policy maps (role, action) pairs to permit/deny decisions. The
// engine is a pure function over a static pattern table so the same input
// always yields the same decision.
package policy

import (
	"fmt"
	"strings"

	"conduit/internal/domain"
)

// Wildcards understood by the pattern table. "workspace:*" is kept as an
// alias for the blanket wildcard because older policies used it.
const (
	wildcardAll       = "*"
	wildcardWorkspace = "workspace:*"
)

// rolePatterns is the permission table. Patterns are either the blanket
// wildcard, a "resource:*" resource wildcard, or an exact "resource:verb".
// No regex, no prefix matching.
var rolePatterns = map[domain.Role][]string{
	domain.RoleManager: {wildcardAll},
	domain.RoleContributor: {
		"tasks:*",
		"schedules:*",
		"logs:*",
		"files:create",
		"files:read",
	},
	domain.RoleViewer: {
		"tasks:read",
		"schedules:read",
		"logs:read",
		"files:read",
	},
}

// Engine evaluates role permissions. It holds no state and performs no I/O;
// keeping it a struct mirrors the rest of the services and leaves room for
// table injection in tests.
type Engine struct {
	patterns map[domain.Role][]string
}

// NewEngine returns an engine backed by the default permission table.
func NewEngine() *Engine {
	return &Engine{patterns: rolePatterns}
}

// NewEngineWithTable returns an engine with a caller-supplied table.
func NewEngineWithTable(patterns map[domain.Role][]string) *Engine {
	return &Engine{patterns: patterns}
}

// Evaluate decides whether role may perform action. The action is split on
// the first ':' into resource and verb; the role permits it when its
// pattern set contains the blanket wildcard, "{resource}:*", or the exact
// action string.
func (e *Engine) Evaluate(role domain.Role, action string) domain.PolicyDecision {
	patterns, ok := e.patterns[role]
	if !ok {
		return domain.PolicyDecision{
			Permitted: false,
			Reason:    fmt.Sprintf("Unknown role %q", role),
		}
	}

	resource, _, found := strings.Cut(action, ":")
	if !found || resource == "" {
		return domain.PolicyDecision{
			Permitted: false,
			Reason:    fmt.Sprintf("Malformed action %q", action),
		}
	}
	resourceWildcard := resource + ":*"

	for _, p := range patterns {
		if p == wildcardAll || p == wildcardWorkspace || p == resourceWildcard || p == action {
			return domain.PolicyDecision{Permitted: true}
		}
	}

	return domain.PolicyDecision{
		Permitted: false,
		Reason:    fmt.Sprintf("Role %q is not permitted to perform %q", role, action),
	}
}
