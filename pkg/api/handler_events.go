package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// eventsHandler implements GET /api/v1/runs/{id}/events: a Server-Sent
// Events stream of every event appended for the run. With ?once=1 it
// replays up to events.ReplayLimit buffered events and closes instead of
// holding the connection open — used by clients that just want a snapshot
// of recent activity without a long-lived connection.
func (s *Server) eventsHandler(c *echo.Context) error {
	runID := c.Param("id")
	req := c.Request()
	res := c.Response()

	if _, err := s.deps.Store.GetRun(req.Context(), runID); err != nil {
		return mapError(err)
	}

	res.Header().Set("Content-Type", "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	if c.QueryParam("once") == "1" {
		events, err := s.deps.Bus.Replay(req.Context(), runID, 0)
		if err != nil {
			return mapError(err)
		}
		for _, e := range events {
			if err := writeSSEEvent(res, e); err != nil {
				return nil
			}
		}
		res.Flush()
		return nil
	}

	ch, unsubscribe := s.deps.Bus.Subscribe(runID)
	defer unsubscribe()

	for {
		select {
		case <-req.Context().Done():
			return nil
		case e, open := <-ch:
			if !open {
				return nil
			}
			if err := writeSSEEvent(res, e); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeSSEEvent(res *echo.Response, e any) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "data: %s\n\n", b); err != nil {
		return err
	}
	return nil
}
