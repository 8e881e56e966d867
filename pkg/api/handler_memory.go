package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/astra-ai/kernel/pkg/store"
)

const defaultMemoryListLimit = 50

// createMemoryHandler implements POST /api/v1/memory/create. Memories
// created directly through this endpoint are user-authored, not
// LLM-interpreted, so Meta carries no facts/preferences/confidence.
func (s *Server) createMemoryHandler(c *echo.Context) error {
	var req memoryCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	mem, err := s.deps.Store.CreateUserMemory(c.Request().Context(), req.Title, req.Content, req.Tags, "user", store.MemoryMeta{})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, mem)
}

// listMemoryHandler implements GET /api/v1/memory/list?query=…: a plain
// listing when query is empty, a search when it isn't.
func (s *Server) listMemoryHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	query := c.QueryParam("query")

	var (
		memories []*store.UserMemory
		err      error
	)
	if query == "" {
		memories, err = s.deps.Store.ListUserMemories(ctx, defaultMemoryListLimit)
	} else {
		memories, err = s.deps.Store.SearchUserMemories(ctx, query, defaultMemoryListLimit)
	}
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, memories)
}

func (s *Server) deleteMemoryHandler(c *echo.Context) error {
	if err := s.deps.Store.DeleteUserMemory(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
