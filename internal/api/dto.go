package api

import "github.com/starford/waypoint/internal/models"

// GoalRequest is the request body for creating or updating a goal. On
// update, empty fields keep their stored value, so a field cannot be
// cleared once set.
type GoalRequest struct {
	Title       string `json:"title" example:"Learn Go"`
	Description string `json:"description" example:"Work through the tour and a book"`
	StartDate   string `json:"start_date" example:"2024-01-01"`
	TargetDate  string `json:"target_date" example:"2024-12-31"`
}

func (r GoalRequest) payload() models.GoalPayload {
	return models.GoalPayload{
		Title:       r.Title,
		Description: r.Description,
		StartDate:   r.StartDate,
		TargetDate:  r.TargetDate,
	}
}

// MilestoneRequest is the request body for updating a milestone. As with
// goals, empty fields keep their stored value and cannot be cleared.
type MilestoneRequest struct {
	Title       string `json:"title" example:"Chapter 1"`
	Description string `json:"description" example:"Read and do the exercises"`
	TargetDate  string `json:"target_date" example:"2024-02-01"`
}

func (r MilestoneRequest) payload() models.MilestonePayload {
	return models.MilestonePayload{
		Title:       r.Title,
		Description: r.Description,
		TargetDate:  r.TargetDate,
	}
}

// AddMilestoneRequest is the request body for creating a milestone.
type AddMilestoneRequest struct {
	GoalID string `json:"goal_id" example:"2f1c..."`
	MilestoneRequest
}

// Goal is the goal response type (aliased from the domain layer).
type Goal = models.Goal

// Milestone is the milestone response type (aliased from the domain layer).
type Milestone = models.Milestone
