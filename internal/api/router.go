package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/waypoint/internal/tracker"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(tr *tracker.Tracker, auth Auth, sseHandler http.Handler) chi.Router {
	h := NewHandler(tr)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))

	r.Route("/goals", func(r chi.Router) {
		r.Post("/", h.AddGoal)
		r.Get("/", h.GetGoals)
		r.Get("/search", h.SearchGoal)
		r.Get("/{id}", h.GetGoal)
		r.Put("/{id}", h.UpdateGoal)
		r.Delete("/{id}", h.DeleteGoal)
		r.Get("/{id}/milestones", h.GetMilestonesByGoal)
		r.Post("/{id}/milestones/{milestoneID}", h.InsertMilestoneIntoGoal)
		r.Delete("/{id}/milestones/{milestoneID}", h.RemoveMilestoneFromGoal)
	})

	r.Get("/users/{owner}/goals", h.GetGoalsByUser)

	r.Route("/milestones", func(r chi.Router) {
		r.Post("/", h.AddMilestone)
		r.Get("/", h.GetMilestones)
		r.Get("/search", h.SearchMilestone)
		r.Get("/{id}", h.GetMilestone)
		r.Put("/{id}", h.UpdateMilestone)
		r.Delete("/{id}", h.DeleteMilestone)
		r.Post("/{id}/complete", h.CompleteMilestone)
		r.Post("/{id}/incomplete", h.ReopenMilestone)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
