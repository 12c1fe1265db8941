// internal/domain/models/lifecycle.go
package models

import "time"

// Lifecycle is the single soft-delete shape shared by every collection that
// supports ending a record without removing it. Active starts true; ending a
// record sets Active=false and stamps EndedAt exactly once.
type Lifecycle struct {
	Active  bool       `bson:"active" json:"active"`
	EndedAt *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}

// NewLifecycle returns an active lifecycle.
func NewLifecycle() Lifecycle {
	return Lifecycle{Active: true}
}

// End marks the lifecycle inactive. Calling End on an already-ended
// lifecycle keeps the original EndedAt.
func (l *Lifecycle) End(at time.Time) {
	if !l.Active {
		return
	}
	l.Active = false
	l.EndedAt = &at
}
