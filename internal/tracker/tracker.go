// Package tracker implements the Goal and Milestone record stores: owner
// checks, snapshot embedding, and linear-scan queries over the substrate.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/starford/waypoint/internal/apperr"
	"github.com/starford/waypoint/internal/clock"
	"github.com/starford/waypoint/internal/models"
	"github.com/starford/waypoint/internal/storage"
)

// Collection names in the substrate.
const (
	GoalsCollection      = "goals"
	MilestonesCollection = "milestones"
)

// Event kinds passed to Notifier.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Notifier receives a call after every successful mutation.
type Notifier interface {
	PublishRecordEvent(collection, kind, id string)
}

// IDFunc generates collision-free record ids.
type IDFunc func() string

// Option configures the stores created by New.
type Option func(*deps)

type deps struct {
	clock    clock.Clock
	newID    IDFunc
	notifier Notifier
	logger   *slog.Logger
}

// WithClock sets the timestamp source.
func WithClock(c clock.Clock) Option {
	return func(d *deps) { d.clock = c }
}

// WithIDs sets the id generator.
func WithIDs(f IDFunc) Option {
	return func(d *deps) { d.newID = f }
}

// WithNotifier registers a mutation listener.
func WithNotifier(n Notifier) Option {
	return func(d *deps) { d.notifier = n }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *deps) { d.logger = l }
}

// writeErr wraps a failed write of record id. Size limit failures also carry
// a ValidationError so callers see them as bad input.
func (d *deps) writeErr(op, record, id string, err error) error {
	if errors.Is(err, storage.ErrValueTooLarge) || errors.Is(err, storage.ErrKeyTooLarge) {
		d.logger.Warn("record exceeds size limit",
			slog.String("record", record),
			slog.String("id", id),
			slog.String("error", err.Error()))
		return fmt.Errorf("tracker: %s %s: %w: %w", op, id, apperr.TooLarge(record), err)
	}
	return fmt.Errorf("tracker: %s %s: %w", op, id, err)
}

func (d *deps) publish(collection, kind, id string) {
	if d.notifier != nil {
		d.notifier.PublishRecordEvent(collection, kind, id)
	}
}

// Tracker bundles the two stores sharing one backend.
type Tracker struct {
	Goals      *GoalStore
	Milestones *MilestoneStore
}

// New opens both collections on backend and returns the stores.
func New(backend storage.Backend, limits storage.Limits, opts ...Option) (*Tracker, error) {
	d := &deps{
		clock:  clock.NewSystem(),
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	gp, err := backend.Collection(GoalsCollection)
	if err != nil {
		return nil, fmt.Errorf("tracker: open goals: %w", err)
	}
	mp, err := backend.Collection(MilestonesCollection)
	if err != nil {
		return nil, fmt.Errorf("tracker: open milestones: %w", err)
	}

	goals := storage.NewMap[models.Goal](gp, limits)
	milestones := storage.NewMap[models.Milestone](mp, limits)

	return &Tracker{
		Goals:      &GoalStore{goals: goals, milestones: milestones, deps: d},
		Milestones: &MilestoneStore{milestones: milestones, deps: d},
	}, nil
}
