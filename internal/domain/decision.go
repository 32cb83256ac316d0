package domain

// ScopeDecision is the scope guard's answer to "may this actor touch this
// workspace, and with what role". It is produced once per command and never
// cached across commands.
type ScopeDecision struct {
	Allowed bool
	Role    Role
	Reason  string
}

// Allow builds a permitting decision carrying the actor's effective role.
func Allow(role Role) ScopeDecision {
	return ScopeDecision{Allowed: true, Role: role}
}

// Deny builds a refusing decision with a human-readable reason.
func Deny(reason string) ScopeDecision {
	return ScopeDecision{Allowed: false, Reason: reason}
}

// PolicyDecision is the policy engine's answer to "does this role permit
// this action".
type PolicyDecision struct {
	Permitted bool
	Reason    string
}
