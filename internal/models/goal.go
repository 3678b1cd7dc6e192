// Package models defines the domain types for Waypoint.
package models

import "github.com/starford/waypoint/internal/identity"

// Goal is a tracked objective owned by one caller.
type Goal struct {
	Owner       identity.Principal `json:"owner"`
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	StartDate   string             `json:"start_date"`
	TargetDate  string             `json:"target_date"`
	// Progress is a fraction in [0, 1].
	Progress float64 `json:"progress"`
	// Milestones holds copies taken at embed time, not live records.
	Milestones []Milestone `json:"milestones"`
	CreatedAt  uint64      `json:"created_at"`
	UpdatedAt  *uint64     `json:"updated_at,omitempty"`
}

// Milestone is a sub-unit of progress, optionally tied to a Goal by id.
type Milestone struct {
	ID          string  `json:"id"`
	GoalID      string  `json:"goal_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TargetDate  string  `json:"target_date"`
	IsCompleted bool    `json:"is_completed"`
	CreatedAt   uint64  `json:"created_at"`
	UpdatedAt   *uint64 `json:"updated_at,omitempty"`
}

// GoalPayload holds the caller-editable Goal fields.
type GoalPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	TargetDate  string `json:"target_date"`
}

// MilestonePayload holds the caller-editable Milestone fields.
type MilestonePayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetDate  string `json:"target_date"`
}

// Clone returns a copy of m that shares no pointers with it. Goals embed
// milestones through Clone.
func (m Milestone) Clone() Milestone {
	out := m
	if m.UpdatedAt != nil {
		ts := *m.UpdatedAt
		out.UpdatedAt = &ts
	}
	return out
}
