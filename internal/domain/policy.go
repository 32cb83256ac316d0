package domain

import "time"

// PolicyChangeType classifies a policy-change notification.
type PolicyChangeType string

const (
	PolicyCreated PolicyChangeType = "created"
	PolicyUpdated PolicyChangeType = "updated"
	PolicyDeleted PolicyChangeType = "deleted"
)

// PolicyChange is the notification payload emitted when an authorization
// policy changes elsewhere in the system.
type PolicyChange struct {
	PolicyID   string           `json:"policyId"`
	ScopeID    string           `json:"scopeId,omitempty"`
	ChangeType PolicyChangeType `json:"changeType"`
	ChangedBy  string           `json:"changedBy,omitempty"`
}

// PolicyCacheEntry is a process-local copy of an externally-changed policy.
// Entries live only as long as the process; the cache is rebuildable from
// the notification stream that fed it.
type PolicyCacheEntry struct {
	PolicyID   string
	ScopeID    string
	ChangeType PolicyChangeType
	ChangedBy  string
	CachedAt   time.Time
}
