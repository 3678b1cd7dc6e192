package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/waypoint/internal/apperr"
	"github.com/starford/waypoint/internal/identity"
	"github.com/starford/waypoint/internal/models"
	"github.com/starford/waypoint/internal/storage"
)

const goalRecord = "Goal"

// GoalStore owns the Goal collection. Single-record operations are gated on
// the caller carried by ctx matching the stored owner.
type GoalStore struct {
	goals      *storage.Map[models.Goal]
	milestones *storage.Map[models.Milestone]
	*deps
}

// AddGoal creates a Goal owned by the caller.
func (s *GoalStore) AddGoal(ctx context.Context, p models.GoalPayload) (*models.Goal, error) {
	if err := validateGoalPayload(p); err != nil {
		return nil, err
	}
	g := models.Goal{
		Owner:       identity.FromContext(ctx),
		ID:          s.newID(),
		Title:       p.Title,
		Description: p.Description,
		StartDate:   p.StartDate,
		TargetDate:  p.TargetDate,
		Progress:    0,
		Milestones:  []models.Milestone{},
		CreatedAt:   s.clock.Now(),
	}
	if err := s.goals.Insert(g.ID, g); err != nil {
		return nil, s.writeErr("create goal", goalRecord, g.ID, err)
	}
	s.logger.Debug("goal created", slog.String("id", g.ID), slog.String("owner", g.Owner.String()))
	s.publish(GoalsCollection, EventCreated, g.ID)
	return &g, nil
}

// UpdateGoal overwrites the editable fields that are set in p.
func (s *GoalStore) UpdateGoal(ctx context.Context, id string, p models.GoalPayload) (*models.Goal, error) {
	g, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Title = mergeString(g.Title, p.Title)
	g.Description = mergeString(g.Description, p.Description)
	g.StartDate = mergeString(g.StartDate, p.StartDate)
	g.TargetDate = mergeString(g.TargetDate, p.TargetDate)
	return s.save(g)
}

// DeleteGoal removes the Goal and returns it as it was before deletion.
func (s *GoalStore) DeleteGoal(ctx context.Context, id string) (*models.Goal, error) {
	g, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.goals.Remove(id); err != nil {
		return nil, fmt.Errorf("tracker: remove goal %s: %w", id, err)
	}
	s.logger.Debug("goal deleted", slog.String("id", id))
	s.publish(GoalsCollection, EventDeleted, id)
	return &g, nil
}

// GetGoal returns the Goal if the caller owns it.
func (s *GoalStore) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	g, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGoals returns every Goal regardless of owner.
func (s *GoalStore) GetGoals(_ context.Context) ([]models.Goal, error) {
	return s.goals.Values()
}

// SearchGoal returns Goals whose title or description contains text,
// ignoring case. An empty text matches every Goal.
func (s *GoalStore) SearchGoal(_ context.Context, text string) ([]models.Goal, error) {
	all, err := s.goals.Values()
	if err != nil {
		return nil, fmt.Errorf("tracker: search goals: %w", err)
	}
	needle := strings.ToLower(text)
	return filter(all, func(g models.Goal) bool {
		return containsFold(needle, g.Title, g.Description)
	}), nil
}

// GetGoalsByUser returns the Goals owned by owner.
func (s *GoalStore) GetGoalsByUser(_ context.Context, owner identity.Principal) ([]models.Goal, error) {
	all, err := s.goals.Values()
	if err != nil {
		return nil, err
	}
	return filter(all, func(g models.Goal) bool {
		return g.Owner.Equal(owner)
	}), nil
}

// InsertMilestoneIntoGoal appends a copy of the Milestone's current state to
// the Goal. Later changes to the Milestone do not reach the copy, and the
// same Milestone may be embedded more than once.
func (s *GoalStore) InsertMilestoneIntoGoal(ctx context.Context, goalID, milestoneID string) (*models.Goal, error) {
	g, err := s.owned(ctx, goalID)
	if err != nil {
		return nil, err
	}
	m, ok, err := s.milestones.Get(milestoneID)
	if err != nil {
		return nil, fmt.Errorf("tracker: get milestone %s: %w", milestoneID, err)
	}
	if !ok {
		return nil, apperr.NotFound(milestoneRecord, milestoneID)
	}
	g.Milestones = append(g.Milestones, m.Clone())
	return s.save(g)
}

// RemoveMilestoneFromGoal drops every embedded copy with milestoneID. It
// succeeds even when nothing matches.
func (s *GoalStore) RemoveMilestoneFromGoal(ctx context.Context, goalID, milestoneID string) (*models.Goal, error) {
	g, err := s.owned(ctx, goalID)
	if err != nil {
		return nil, err
	}
	g.Milestones = filter(g.Milestones, func(m models.Milestone) bool {
		return m.ID != milestoneID
	})
	return s.save(g)
}

// owned loads the Goal and checks the caller against its owner.
func (s *GoalStore) owned(ctx context.Context, id string) (models.Goal, error) {
	g, ok, err := s.goals.Get(id)
	if err != nil {
		return g, fmt.Errorf("tracker: get goal %s: %w", id, err)
	}
	if !ok {
		return g, apperr.NotFound(goalRecord, id)
	}
	if !g.Owner.Equal(identity.FromContext(ctx)) {
		return g, apperr.Unauthorized(goalRecord)
	}
	return g, nil
}

// save stamps updated_at and writes g back.
func (s *GoalStore) save(g models.Goal) (*models.Goal, error) {
	now := s.clock.Now()
	g.UpdatedAt = &now
	if err := s.goals.Insert(g.ID, g); err != nil {
		return nil, s.writeErr("save goal", goalRecord, g.ID, err)
	}
	s.logger.Debug("goal updated", slog.String("id", g.ID), slog.Int("milestones", len(g.Milestones)))
	s.publish(GoalsCollection, EventUpdated, g.ID)
	return &g, nil
}
