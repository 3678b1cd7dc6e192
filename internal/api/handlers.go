package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/waypoint/internal/identity"
	"github.com/starford/waypoint/internal/tracker"
)

// Handler holds API route handlers.
type Handler struct {
	tr *tracker.Tracker
}

// NewHandler creates a new Handler.
func NewHandler(tr *tracker.Tracker) *Handler {
	return &Handler{tr: tr}
}

// AddGoal handles POST /api/goals.
//
//	@Summary		Create a goal owned by the caller
//	@Tags			goals
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GoalRequest	true	"Goal to create"
//	@Success		201		{object}	Goal
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals [post]
func (h *Handler) AddGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := h.tr.Goals.AddGoal(r.Context(), req.payload())
	if err != nil {
		writeError(w, "add goal", err)
		return
	}
	writeRecord(w, r, http.StatusCreated, g)
}

// GetGoals handles GET /api/goals.
//
//	@Summary		List every goal
//	@Tags			goals
//	@Produce		json
//	@Success		200	{array}	Goal
//	@Security		BearerAuth
//	@Router			/goals [get]
func (h *Handler) GetGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.tr.Goals.GetGoals(r.Context())
	if err != nil {
		writeError(w, "list goals", err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// SearchGoal handles GET /api/goals/search.
//
//	@Summary		Case-insensitive substring search over title and description
//	@Tags			goals
//	@Produce		json
//	@Param			q	query	string	false	"Search text; empty matches all"
//	@Success		200	{array}	Goal
//	@Security		BearerAuth
//	@Router			/goals/search [get]
func (h *Handler) SearchGoal(w http.ResponseWriter, r *http.Request) {
	goals, err := h.tr.Goals.SearchGoal(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "search goals", err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// GetGoal handles GET /api/goals/{id}.
//
//	@Summary		Get a goal owned by the caller
//	@Tags			goals
//	@Produce		json
//	@Param			id	path		string	true	"Goal id"
//	@Success		200	{object}	Goal
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id} [get]
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := h.tr.Goals.GetGoal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get goal", err)
		return
	}
	writeRecord(w, r, http.StatusOK, g)
}

// UpdateGoal handles PUT /api/goals/{id}.
//
//	@Summary		Update a goal owned by the caller
//	@Tags			goals
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Goal id"
//	@Param			body	body		GoalRequest	true	"Fields to change"
//	@Success		200		{object}	Goal
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id} [put]
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := h.tr.Goals.UpdateGoal(r.Context(), chi.URLParam(r, "id"), req.payload())
	if err != nil {
		writeError(w, "update goal", err)
		return
	}
	writeRecord(w, r, http.StatusOK, g)
}

// DeleteGoal handles DELETE /api/goals/{id}. The deleted goal is returned.
//
//	@Summary		Delete a goal owned by the caller
//	@Tags			goals
//	@Produce		json
//	@Param			id	path		string	true	"Goal id"
//	@Success		200	{object}	Goal
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id} [delete]
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	g, err := h.tr.Goals.DeleteGoal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete goal", err)
		return
	}
	writeRecord(w, r, http.StatusOK, g)
}

// GetGoalsByUser handles GET /api/users/{owner}/goals.
//
//	@Summary		List goals owned by a principal
//	@Tags			goals
//	@Produce		json
//	@Param			owner	path	string	true	"Owner principal"
//	@Success		200		{array}	Goal
//	@Security		BearerAuth
//	@Router			/users/{owner}/goals [get]
func (h *Handler) GetGoalsByUser(w http.ResponseWriter, r *http.Request) {
	owner := identity.New(chi.URLParam(r, "owner"))
	goals, err := h.tr.Goals.GetGoalsByUser(r.Context(), owner)
	if err != nil {
		writeError(w, "list goals by user", err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// InsertMilestoneIntoGoal handles POST /api/goals/{id}/milestones/{milestoneID}.
//
//	@Summary		Embed a snapshot of a milestone into a goal
//	@Tags			goals
//	@Produce		json
//	@Param			id			path		string	true	"Goal id"
//	@Param			milestoneID	path		string	true	"Milestone id"
//	@Success		200			{object}	Goal
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id}/milestones/{milestoneID} [post]
func (h *Handler) InsertMilestoneIntoGoal(w http.ResponseWriter, r *http.Request) {
	g, err := h.tr.Goals.InsertMilestoneIntoGoal(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "milestoneID"))
	if err != nil {
		writeError(w, "insert milestone", err)
		return
	}
	writeRecord(w, r, http.StatusOK, g)
}

// RemoveMilestoneFromGoal handles DELETE /api/goals/{id}/milestones/{milestoneID}.
//
//	@Summary		Drop embedded milestone snapshots from a goal
//	@Tags			goals
//	@Produce		json
//	@Param			id			path		string	true	"Goal id"
//	@Param			milestoneID	path		string	true	"Milestone id"
//	@Success		200			{object}	Goal
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id}/milestones/{milestoneID} [delete]
func (h *Handler) RemoveMilestoneFromGoal(w http.ResponseWriter, r *http.Request) {
	g, err := h.tr.Goals.RemoveMilestoneFromGoal(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "milestoneID"))
	if err != nil {
		writeError(w, "remove milestone", err)
		return
	}
	writeRecord(w, r, http.StatusOK, g)
}

// GetMilestonesByGoal handles GET /api/goals/{id}/milestones.
//
//	@Summary		List milestones pointing at a goal
//	@Tags			milestones
//	@Produce		json
//	@Param			id	path	string	true	"Goal id"
//	@Success		200	{array}	Milestone
//	@Security		BearerAuth
//	@Router			/goals/{id}/milestones [get]
func (h *Handler) GetMilestonesByGoal(w http.ResponseWriter, r *http.Request) {
	ms, err := h.tr.Milestones.GetMilestonesByGoal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "list milestones by goal", err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// AddMilestone handles POST /api/milestones.
//
//	@Summary		Create a milestone
//	@Tags			milestones
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddMilestoneRequest	true	"Milestone to create"
//	@Success		201		{object}	Milestone
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/milestones [post]
func (h *Handler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	var req AddMilestoneRequest
	if !decodeBody(w, r, &req) {
		return
	}
	m, err := h.tr.Milestones.AddMilestone(r.Context(), req.GoalID, req.payload())
	if err != nil {
		writeError(w, "add milestone", err)
		return
	}
	writeRecord(w, r, http.StatusCreated, m)
}

// GetMilestones handles GET /api/milestones.
func (h *Handler) GetMilestones(w http.ResponseWriter, r *http.Request) {
	ms, err := h.tr.Milestones.GetMilestones(r.Context())
	if err != nil {
		writeError(w, "list milestones", err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// SearchMilestone handles GET /api/milestones/search.
func (h *Handler) SearchMilestone(w http.ResponseWriter, r *http.Request) {
	ms, err := h.tr.Milestones.SearchMilestone(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "search milestones", err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// GetMilestone handles GET /api/milestones/{id}.
func (h *Handler) GetMilestone(w http.ResponseWriter, r *http.Request) {
	m, err := h.tr.Milestones.GetMilestone(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get milestone", err)
		return
	}
	writeRecord(w, r, http.StatusOK, m)
}

// UpdateMilestone handles PUT /api/milestones/{id}.
func (h *Handler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	var req MilestoneRequest
	if !decodeBody(w, r, &req) {
		return
	}
	m, err := h.tr.Milestones.UpdateMilestone(r.Context(), chi.URLParam(r, "id"), req.payload())
	if err != nil {
		writeError(w, "update milestone", err)
		return
	}
	writeRecord(w, r, http.StatusOK, m)
}

// DeleteMilestone handles DELETE /api/milestones/{id}.
func (h *Handler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	m, err := h.tr.Milestones.DeleteMilestone(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete milestone", err)
		return
	}
	writeRecord(w, r, http.StatusOK, m)
}

// CompleteMilestone handles POST /api/milestones/{id}/complete.
func (h *Handler) CompleteMilestone(w http.ResponseWriter, r *http.Request) {
	m, err := h.tr.Milestones.MarkMilestoneAsCompleted(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "complete milestone", err)
		return
	}
	writeRecord(w, r, http.StatusOK, m)
}

// ReopenMilestone handles POST /api/milestones/{id}/incomplete.
func (h *Handler) ReopenMilestone(w http.ResponseWriter, r *http.Request) {
	m, err := h.tr.Milestones.MarkMilestoneAsIncomplete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "reopen milestone", err)
		return
	}
	writeRecord(w, r, http.StatusOK, m)
}
