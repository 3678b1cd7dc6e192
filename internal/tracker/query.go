package tracker

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/waypoint/internal/apperr"
	"github.com/starford/waypoint/internal/models"
)

// containsFold reports whether any field contains needle, ignoring case.
// needle must already be lower-cased.
func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func validateGoalPayload(p models.GoalPayload) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Description, validation.Required),
		validation.Field(&p.StartDate, validation.Required),
		validation.Field(&p.TargetDate, validation.Required),
	)
	if err != nil {
		return apperr.Invalid()
	}
	return nil
}

func validateMilestonePayload(p models.MilestonePayload) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Description, validation.Required),
		validation.Field(&p.TargetDate, validation.Required),
	)
	if err != nil {
		return apperr.Invalid()
	}
	return nil
}

// mergeString returns v when set, otherwise keeps cur.
func mergeString(cur, v string) string {
	if v == "" {
		return cur
	}
	return v
}
