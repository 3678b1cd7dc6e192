// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the goal and milestone stores as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/waypoint/internal/apperr"
	"github.com/starford/waypoint/internal/identity"
	"github.com/starford/waypoint/internal/models"
	"github.com/starford/waypoint/internal/tracker"
)

// RecordFormatURI is the resource carrying RecordFormatContract.
const RecordFormatURI = "waypoint://record-format"

// Server wraps the MCP server with the Waypoint tools. Every call runs as
// the configured principal.
type Server struct {
	mcp       *server.MCPServer
	tr        *tracker.Tracker
	principal identity.Principal
	handlers  map[string]server.ToolHandlerFunc
}

// New creates a new MCP server with all tools registered.
func New(tr *tracker.Tracker, principal identity.Principal) *Server {
	if principal.IsZero() {
		principal = identity.Anonymous
	}
	s := &Server{tr: tr, principal: principal, handlers: map[string]server.ToolHandlerFunc{}}

	s.mcp = server.NewMCPServer(
		"Waypoint",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	goalFields := []mcp.ToolOption{
		mcp.WithString("title", mcp.Description("Short goal title")),
		mcp.WithString("description", mcp.Description("What the goal is about")),
		mcp.WithString("start_date", mcp.Description("Free-form start date, e.g. 2024-01-01")),
		mcp.WithString("target_date", mcp.Description("Free-form target date")),
	}
	milestoneFields := []mcp.ToolOption{
		mcp.WithString("title", mcp.Description("Short milestone title")),
		mcp.WithString("description", mcp.Description("What completing it means")),
		mcp.WithString("target_date", mcp.Description("Free-form target date")),
	}
	id := func(desc string) mcp.ToolOption {
		return mcp.WithString("id", mcp.Required(), mcp.Description(desc))
	}

	s.add(mcp.NewTool("add_goal", append([]mcp.ToolOption{
		mcp.WithDescription("Create a goal owned by the caller. All four fields are required."),
	}, goalFields...)...), s.addGoal)
	s.add(mcp.NewTool("update_goal", append([]mcp.ToolOption{
		mcp.WithDescription("Update a goal you own. Omitted or empty fields keep their value; fields cannot be cleared."),
		id("Goal id"),
	}, goalFields...)...), s.updateGoal)
	s.add(mcp.NewTool("delete_goal",
		mcp.WithDescription("Delete a goal you own and return it."),
		id("Goal id"),
	), s.deleteGoal)
	s.add(mcp.NewTool("get_goal",
		mcp.WithDescription("Read a goal you own."),
		id("Goal id"),
	), s.getGoal)
	s.add(mcp.NewTool("get_goals",
		mcp.WithDescription("List every goal."),
	), s.getGoals)
	s.add(mcp.NewTool("search_goal",
		mcp.WithDescription("Case-insensitive search over goal titles and descriptions."),
		mcp.WithString("text", mcp.Description("Text to look for; empty matches all")),
	), s.searchGoal)
	s.add(mcp.NewTool("get_goals_by_user",
		mcp.WithDescription("List goals owned by a principal."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Owner principal")),
	), s.getGoalsByUser)
	s.add(mcp.NewTool("insert_milestone_into_goal",
		mcp.WithDescription("Append a copy of a milestone to a goal you own."),
		mcp.WithString("goal_id", mcp.Required(), mcp.Description("Goal id")),
		mcp.WithString("milestone_id", mcp.Required(), mcp.Description("Milestone id")),
	), s.insertMilestoneIntoGoal)
	s.add(mcp.NewTool("remove_milestone_from_goal",
		mcp.WithDescription("Remove every copy of a milestone from a goal you own."),
		mcp.WithString("goal_id", mcp.Required(), mcp.Description("Goal id")),
		mcp.WithString("milestone_id", mcp.Required(), mcp.Description("Milestone id")),
	), s.removeMilestoneFromGoal)

	s.add(mcp.NewTool("add_milestone", append([]mcp.ToolOption{
		mcp.WithDescription("Create a milestone for a goal. The goal is not checked."),
		mcp.WithString("goal_id", mcp.Required(), mcp.Description("Goal id")),
	}, milestoneFields...)...), s.addMilestone)
	s.add(mcp.NewTool("update_milestone", append([]mcp.ToolOption{
		mcp.WithDescription("Update a milestone. Omitted or empty fields keep their value; fields cannot be cleared."),
		id("Milestone id"),
	}, milestoneFields...)...), s.updateMilestone)
	s.add(mcp.NewTool("delete_milestone",
		mcp.WithDescription("Delete a milestone and return it."),
		id("Milestone id"),
	), s.deleteMilestone)
	s.add(mcp.NewTool("get_milestone",
		mcp.WithDescription("Read a milestone."),
		id("Milestone id"),
	), s.getMilestone)
	s.add(mcp.NewTool("get_milestones",
		mcp.WithDescription("List every milestone."),
	), s.getMilestones)
	s.add(mcp.NewTool("search_milestone",
		mcp.WithDescription("Case-insensitive search over milestone titles and descriptions."),
		mcp.WithString("text", mcp.Description("Text to look for; empty matches all")),
	), s.searchMilestone)
	s.add(mcp.NewTool("get_milestones_by_goal",
		mcp.WithDescription("List milestones created for a goal."),
		mcp.WithString("goal_id", mcp.Required(), mcp.Description("Goal id")),
	), s.getMilestonesByGoal)
	s.add(mcp.NewTool("mark_milestone_completed",
		mcp.WithDescription("Mark a milestone as completed."),
		id("Milestone id"),
	), s.markCompleted)
	s.add(mcp.NewTool("mark_milestone_incomplete",
		mcp.WithDescription("Mark a milestone as not completed."),
		id("Milestone id"),
	), s.markIncomplete)

	s.add(mcp.NewTool("get_record_contract",
		mcp.WithDescription("Returns the goal and milestone record format. "+
			"Call this before creating records to learn the fields and rules."),
	), s.getRecordContract)

	s.mcp.AddResource(
		mcp.NewResource(RecordFormatURI, "Record Format Contract",
			mcp.WithResourceDescription("Goal and milestone record shapes and rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

func (s *Server) add(tool mcp.Tool, h server.ToolHandlerFunc) {
	s.handlers[tool.Name] = h
	s.mcp.AddTool(tool, h)
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// caller attaches the configured principal to ctx.
func (s *Server) caller(ctx context.Context) context.Context {
	return identity.WithPrincipal(ctx, s.principal)
}

// result renders a store outcome as a tool result. Store errors become
// tool errors prefixed with their kind tag.
func result(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		tag := apperr.Tag(err)
		if tag == "internal" {
			slog.Error("mcp tool failed", slog.String("error", err.Error()))
		}
		return mcp.NewToolResultError(tag + ": " + err.Error()), nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("internal: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func goalPayload(req mcp.CallToolRequest) models.GoalPayload {
	return models.GoalPayload{
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		StartDate:   req.GetString("start_date", ""),
		TargetDate:  req.GetString("target_date", ""),
	}
}

func milestonePayload(req mcp.CallToolRequest) models.MilestonePayload {
	return models.MilestonePayload{
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		TargetDate:  req.GetString("target_date", ""),
	}
}

func (s *Server) addGoal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.tr.Goals.AddGoal(s.caller(ctx), goalPayload(req)))
}

func (s *Server) updateGoal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Goals.UpdateGoal(s.caller(ctx), id, goalPayload(req)))
}

func (s *Server) deleteGoal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Goals.DeleteGoal(s.caller(ctx), id))
}

func (s *Server) getGoal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Goals.GetGoal(s.caller(ctx), id))
}

func (s *Server) getGoals(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.tr.Goals.GetGoals(s.caller(ctx)))
}

func (s *Server) searchGoal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.tr.Goals.SearchGoal(s.caller(ctx), req.GetString("text", "")))
}

func (s *Server) getGoalsByUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Goals.GetGoalsByUser(s.caller(ctx), identity.New(owner)))
}

func (s *Server) insertMilestoneIntoGoal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, milestoneID, err := goalAndMilestone(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Goals.InsertMilestoneIntoGoal(s.caller(ctx), goalID, milestoneID))
}

func (s *Server) removeMilestoneFromGoal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, milestoneID, err := goalAndMilestone(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Goals.RemoveMilestoneFromGoal(s.caller(ctx), goalID, milestoneID))
}

func goalAndMilestone(req mcp.CallToolRequest) (string, string, error) {
	goalID, err := req.RequireString("goal_id")
	if err != nil {
		return "", "", err
	}
	milestoneID, err := req.RequireString("milestone_id")
	if err != nil {
		return "", "", err
	}
	return goalID, milestoneID, nil
}

func (s *Server) addMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, err := req.RequireString("goal_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Milestones.AddMilestone(s.caller(ctx), goalID, milestonePayload(req)))
}

func (s *Server) updateMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Milestones.UpdateMilestone(s.caller(ctx), id, milestonePayload(req)))
}

func (s *Server) deleteMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Milestones.DeleteMilestone(s.caller(ctx), id))
}

func (s *Server) getMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Milestones.GetMilestone(s.caller(ctx), id))
}

func (s *Server) getMilestones(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.tr.Milestones.GetMilestones(s.caller(ctx)))
}

func (s *Server) searchMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.tr.Milestones.SearchMilestone(s.caller(ctx), req.GetString("text", "")))
}

func (s *Server) getMilestonesByGoal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, err := req.RequireString("goal_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Milestones.GetMilestonesByGoal(s.caller(ctx), goalID))
}

func (s *Server) markCompleted(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Milestones.MarkMilestoneAsCompleted(s.caller(ctx), id))
}

func (s *Server) markIncomplete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.tr.Milestones.MarkMilestoneAsIncomplete(s.caller(ctx), id))
}

func (s *Server) getRecordContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RecordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
