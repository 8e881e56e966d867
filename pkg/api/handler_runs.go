package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/astra-ai/kernel/pkg/chat"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/intent"
	"github.com/astra-ai/kernel/pkg/store"
)

const (
	kindChat    = "chat"
	kindClarify = "clarify"
	kindAct     = "act"
)

// createRunHandler implements POST /api/v1/projects/{id}/runs. It creates
// the Run row, routes the message through the Intent Router, resolves the
// run's mode, and then branches: CHAT dispatches straight to the Chat Loop
// (which handles its own system prompt, soft retry, and memory interpreter
// kickoff internally); a needs-clarification decision returns the
// classifier's questions without building anything; ACT builds a plan via
// the Run Engine and returns it for the caller to POST .../start.
func (s *Server) createRunHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	projectID := c.Param("id")

	if _, err := s.deps.Store.GetProject(ctx, projectID); err != nil {
		return mapError(err)
	}

	var req runCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.QueryText == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query_text is required")
	}
	if req.Mode == "" {
		req.Mode = store.ModePlanOnly
	}

	run := &store.Run{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		QueryText:   req.QueryText,
		Mode:        req.Mode,
		Purpose:     req.Purpose,
		ParentRunID: req.ParentRunID,
		Status:      store.RunStatusCreated,
	}
	if err := s.deps.Store.CreateRun(ctx, run); err != nil {
		return mapError(err)
	}
	s.deps.Bus.Emit(ctx, run.ID, events.TypeRunCreated, "run created", map[string]any{"mode": run.Mode}, store.LevelInfo, nil, nil)

	rootStepID := uuid.NewString()
	decision := s.deps.Intent.Decide(ctx, run.ID, rootStepID, req.QueryText, nil, nil)
	intent.ResolveRunMode(decision, run.Mode, run.Purpose)

	meta := map[string]any{
		"intent":     decision.Intent,
		"confidence": decision.Confidence,
		"reasons":    decision.Reasons,
	}
	if err := s.deps.Store.UpdateRunMetaAndMode(ctx, run.ID, meta, decision.ResolvedRunMode, decision.ResolvedPurpose); err != nil {
		return mapError(err)
	}
	run.Mode = decision.ResolvedRunMode
	run.Purpose = decision.ResolvedPurpose
	run.Meta = meta

	if decision.NeedsClarification {
		s.deps.Bus.Emit(ctx, run.ID, events.TypeClarifyRequested, "clarification needed", map[string]any{"questions": decision.Questions}, store.LevelInfo, nil, nil)
		if err := s.deps.Store.UpdateRunStatus(ctx, run.ID, store.RunStatusDone); err != nil {
			return mapError(err)
		}
		return c.JSON(http.StatusOK, runCreateResponse{
			Kind:      kindClarify,
			Intent:    decision,
			Run:       run,
			Questions: decision.Questions,
		})
	}

	switch decision.Intent {
	case intent.IntentAct:
		plan, err := s.deps.Engine.CreatePlan(ctx, run, req.QueryText, decision)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(http.StatusOK, runCreateResponse{
			Kind:   kindAct,
			Intent: decision,
			Run:    run,
			Plan:   plan,
		})

	default: // IntentChat and IntentAsk both resolve to a synchronous reply.
		memories, err := s.deps.Store.ListUserMemories(ctx, 20)
		if err != nil {
			return mapError(err)
		}
		result := s.deps.Chat.Run(ctx, chat.Turn{
			RunID:       run.ID,
			StepID:      rootStepID,
			UserMessage: req.QueryText,
			Memories:    toPersonaMemories(memories),
		})
		if err := s.deps.Store.UpdateRunStatus(ctx, run.ID, store.RunStatusDone); err != nil {
			return mapError(err)
		}
		return c.JSON(http.StatusOK, runCreateResponse{
			Kind:         kindChat,
			Intent:       decision,
			Run:          run,
			ChatResponse: result.Text,
		})
	}
}

// planHandler implements POST /api/v1/runs/{id}/plan: builds (or rebuilds)
// a plan for a run that already exists, using its persisted query text and
// resolved mode/purpose. Unlike run creation, no fresh intent classification
// happens here — the run's Meta/Mode already reflect an ACT decision.
func (s *Server) planHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	run, err := s.deps.Store.GetRun(ctx, c.Param("id"))
	if err != nil {
		return mapError(err)
	}

	decision := &intent.Decision{
		Intent:          intent.IntentAct,
		ResolvedRunMode: run.Mode,
		ResolvedPurpose: run.Purpose,
	}
	plan, err := s.deps.Engine.CreatePlan(ctx, run, run.QueryText, decision)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (s *Server) startRunHandler(c *echo.Context) error {
	if err := s.deps.Engine.StartRun(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "started"})
}

func (s *Server) pauseRunHandler(c *echo.Context) error {
	if err := s.deps.Engine.PauseRun(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "paused"})
}

func (s *Server) resumeRunHandler(c *echo.Context) error {
	if err := s.deps.Engine.ResumeRun(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "resumed"})
}

func (s *Server) cancelRunHandler(c *echo.Context) error {
	if err := s.deps.Engine.CancelRun(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "canceled"})
}

func (s *Server) retryTaskHandler(c *echo.Context) error {
	if err := s.deps.Engine.RetryTask(c.Request().Context(), c.Param("id"), c.Param("task_id")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "retrying"})
}

func (s *Server) retryStepHandler(c *echo.Context) error {
	if err := s.deps.Engine.RetryStep(c.Request().Context(), c.Param("id"), c.Param("step_id")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "retrying"})
}

func (s *Server) listPlanHandler(c *echo.Context) error {
	plan, err := s.deps.Store.ListPlanSteps(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (s *Server) listTasksHandler(c *echo.Context) error {
	tasks, err := s.deps.Store.ListTasks(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) listSourcesHandler(c *echo.Context) error {
	sources, err := s.deps.Store.ListSources(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sources)
}

func (s *Server) listFactsHandler(c *echo.Context) error {
	facts, err := s.deps.Store.ListFacts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, facts)
}

func (s *Server) listConflictsHandler(c *echo.Context) error {
	conflicts, err := s.deps.Store.ListConflicts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, conflicts)
}

func (s *Server) listArtifactsHandler(c *echo.Context) error {
	artifacts, err := s.deps.Store.ListArtifacts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, artifacts)
}

func (s *Server) listApprovalsHandler(c *echo.Context) error {
	approvals, err := s.deps.Store.ListApprovals(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, approvals)
}

func (s *Server) snapshotHandler(c *echo.Context) error {
	snap, err := s.deps.Snapshots.Build(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

// snapshotDownloadHandler implements GET /api/v1/runs/{id}/snapshot/download:
// the same aggregate as snapshotHandler, delivered with a Content-Disposition
// header so browsers save it as a file instead of rendering it inline.
func (s *Server) snapshotDownloadHandler(c *echo.Context) error {
	runID := c.Param("id")
	snap, err := s.deps.Snapshots.Build(c.Request().Context(), runID)
	if err != nil {
		return mapError(err)
	}
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+runID+`-snapshot.json"`)
	return c.JSON(http.StatusOK, snap)
}

// resolveConflictHandler implements POST
// /api/v1/runs/{id}/conflicts/{conflict_id}/resolve: marks the conflict
// resolved and spawns a child run scoped to reconciling it, mirroring how
// parent_run_id chains runs elsewhere in this package.
func (s *Server) resolveConflictHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("id")
	conflictID := c.Param("conflict_id")

	parent, err := s.deps.Store.GetRun(ctx, runID)
	if err != nil {
		return mapError(err)
	}

	if err := s.deps.Store.ResolveConflict(ctx, conflictID); err != nil {
		return mapError(err)
	}

	child := &store.Run{
		ID:          uuid.NewString(),
		ProjectID:   parent.ProjectID,
		QueryText:   "Reconcile conflict " + conflictID,
		Mode:        store.ModeResearch,
		ParentRunID: &runID,
		Status:      store.RunStatusCreated,
	}
	if err := s.deps.Store.CreateRun(ctx, child); err != nil {
		return mapError(err)
	}
	s.deps.Bus.Emit(ctx, child.ID, events.TypeRunCreated, "run created to resolve conflict", map[string]any{"conflict_id": conflictID, "parent_run_id": runID}, store.LevelInfo, nil, nil)

	return c.JSON(http.StatusOK, child)
}
