package domain

import "time"

// ProjectionVersionRecord is the checkpoint a projection consumer writes
// after processing a batch of events. One record exists per named
// projection; upserts with the same offset and version are observational
// no-ops.
type ProjectionVersionRecord struct {
	ProjectionName   string    `json:"projectionName"`
	LastEventOffset  int64     `json:"lastEventOffset"`
	ReadModelVersion string    `json:"readModelVersion"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
