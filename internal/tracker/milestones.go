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

const milestoneRecord = "Milestone"

// MilestoneStore owns the Milestone collection. Milestones carry no owner;
// only GetMilestone and DeleteMilestone apply an access check.
type MilestoneStore struct {
	milestones *storage.Map[models.Milestone]
	*deps
}

// AddMilestone creates a Milestone pointing at goalID. The Goal is not
// required to exist.
func (s *MilestoneStore) AddMilestone(_ context.Context, goalID string, p models.MilestonePayload) (*models.Milestone, error) {
	if err := validateMilestonePayload(p); err != nil {
		return nil, err
	}
	m := models.Milestone{
		ID:          s.newID(),
		GoalID:      goalID,
		Title:       p.Title,
		Description: p.Description,
		TargetDate:  p.TargetDate,
		IsCompleted: false,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.milestones.Insert(m.ID, m); err != nil {
		return nil, s.writeErr("create milestone", milestoneRecord, m.ID, err)
	}
	s.logger.Debug("milestone created", slog.String("id", m.ID), slog.String("goal_id", goalID))
	s.publish(MilestonesCollection, EventCreated, m.ID)
	return &m, nil
}

// UpdateMilestone overwrites the editable fields that are set in p.
func (s *MilestoneStore) UpdateMilestone(_ context.Context, id string, p models.MilestonePayload) (*models.Milestone, error) {
	m, err := s.find(id)
	if err != nil {
		return nil, err
	}
	m.Title = mergeString(m.Title, p.Title)
	m.Description = mergeString(m.Description, p.Description)
	m.TargetDate = mergeString(m.TargetDate, p.TargetDate)
	return s.save(m)
}

// DeleteMilestone removes the Milestone if the access check passes.
func (s *MilestoneStore) DeleteMilestone(ctx context.Context, id string) (*models.Milestone, error) {
	m, err := s.guarded(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.milestones.Remove(id); err != nil {
		return nil, fmt.Errorf("tracker: remove milestone %s: %w", id, err)
	}
	s.logger.Debug("milestone deleted", slog.String("id", id))
	s.publish(MilestonesCollection, EventDeleted, id)
	return &m, nil
}

// GetMilestone returns the Milestone if the access check passes.
func (s *MilestoneStore) GetMilestone(ctx context.Context, id string) (*models.Milestone, error) {
	m, err := s.guarded(ctx, id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMilestones returns every Milestone.
func (s *MilestoneStore) GetMilestones(_ context.Context) ([]models.Milestone, error) {
	return s.milestones.Values()
}

// SearchMilestone returns Milestones whose title or description contains
// text, ignoring case.
func (s *MilestoneStore) SearchMilestone(_ context.Context, text string) ([]models.Milestone, error) {
	all, err := s.milestones.Values()
	if err != nil {
		return nil, fmt.Errorf("tracker: search milestones: %w", err)
	}
	needle := strings.ToLower(text)
	return filter(all, func(m models.Milestone) bool {
		return containsFold(needle, m.Title, m.Description)
	}), nil
}

// GetMilestonesByGoal returns the Milestones whose goal_id equals goalID.
func (s *MilestoneStore) GetMilestonesByGoal(_ context.Context, goalID string) ([]models.Milestone, error) {
	all, err := s.milestones.Values()
	if err != nil {
		return nil, err
	}
	return filter(all, func(m models.Milestone) bool {
		return m.GoalID == goalID
	}), nil
}

// MarkMilestoneAsCompleted sets is_completed.
func (s *MilestoneStore) MarkMilestoneAsCompleted(_ context.Context, id string) (*models.Milestone, error) {
	return s.setCompleted(id, true)
}

// MarkMilestoneAsIncomplete clears is_completed.
func (s *MilestoneStore) MarkMilestoneAsIncomplete(_ context.Context, id string) (*models.Milestone, error) {
	return s.setCompleted(id, false)
}

func (s *MilestoneStore) setCompleted(id string, done bool) (*models.Milestone, error) {
	m, err := s.find(id)
	if err != nil {
		return nil, err
	}
	m.IsCompleted = done
	return s.save(m)
}

func (s *MilestoneStore) find(id string) (models.Milestone, error) {
	m, ok, err := s.milestones.Get(id)
	if err != nil {
		return m, fmt.Errorf("tracker: get milestone %s: %w", id, err)
	}
	if !ok {
		return m, apperr.NotFound(milestoneRecord, id)
	}
	return m, nil
}

// guarded loads the Milestone and applies the legacy access check, which
// compares the milestone's goal id with the caller's textual identity.
// Goal ids and principals come from different value spaces, so in practice
// every caller is denied. Existing clients depend on this behaviour.
func (s *MilestoneStore) guarded(ctx context.Context, id string) (models.Milestone, error) {
	m, err := s.find(id)
	if err != nil {
		return m, err
	}
	if m.GoalID != identity.FromContext(ctx).String() {
		return m, apperr.Unauthorized(milestoneRecord)
	}
	return m, nil
}

func (s *MilestoneStore) save(m models.Milestone) (*models.Milestone, error) {
	now := s.clock.Now()
	m.UpdatedAt = &now
	if err := s.milestones.Insert(m.ID, m); err != nil {
		return nil, s.writeErr("save milestone", milestoneRecord, m.ID, err)
	}
	s.logger.Debug("milestone updated", slog.String("id", m.ID), slog.Bool("completed", m.IsCompleted))
	s.publish(MilestonesCollection, EventUpdated, m.ID)
	return &m, nil
}
