package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/astra-ai/kernel/pkg/version"
)

// bodyLimit caps request bodies Echo accepts before handlers even run — well
// above any legitimate run/memory payload, to reject accidental multi-MB
// uploads early.
const bodyLimit = 2 * 1024 * 1024

// Server is the kernel's HTTP API surface.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	deps       Deps
}

// NewServer constructs a Server wired to deps and registers every route.
func NewServer(deps Deps) *Server {
	e := echo.New()
	s := &Server{echo: e, deps: deps}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(bodyLimit))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")

	v1.GET("/auth/status", s.authStatusHandler)
	v1.POST("/auth/bootstrap", s.authBootstrapHandler)

	guarded := v1.Group("", s.deps.Auth.Middleware())

	guarded.POST("/projects/:id/runs", s.createRunHandler)

	guarded.POST("/runs/:id/plan", s.planHandler)
	guarded.POST("/runs/:id/start", s.startRunHandler)
	guarded.POST("/runs/:id/pause", s.pauseRunHandler)
	guarded.POST("/runs/:id/resume", s.resumeRunHandler)
	guarded.POST("/runs/:id/cancel", s.cancelRunHandler)

	guarded.POST("/runs/:id/tasks/:task_id/retry", s.retryTaskHandler)
	guarded.POST("/runs/:id/steps/:step_id/retry", s.retryStepHandler)

	// Static sub-paths before the bare :id GET so /snapshot/download never
	// matches an ambiguous earlier route.
	guarded.GET("/runs/:id/plan", s.listPlanHandler)
	guarded.GET("/runs/:id/tasks", s.listTasksHandler)
	guarded.GET("/runs/:id/sources", s.listSourcesHandler)
	guarded.GET("/runs/:id/facts", s.listFactsHandler)
	guarded.GET("/runs/:id/conflicts", s.listConflictsHandler)
	guarded.GET("/runs/:id/artifacts", s.listArtifactsHandler)
	guarded.GET("/runs/:id/approvals", s.listApprovalsHandler)
	guarded.GET("/runs/:id/snapshot/download", s.snapshotDownloadHandler)
	guarded.GET("/runs/:id/snapshot", s.snapshotHandler)
	guarded.GET("/runs/:id/events", s.eventsHandler)

	guarded.POST("/runs/:id/conflicts/:conflict_id/resolve", s.resolveConflictHandler)

	guarded.POST("/approvals/:id/approve", s.approveApprovalHandler)
	guarded.POST("/approvals/:id/reject", s.rejectApprovalHandler)

	guarded.POST("/memory/create", s.createMemoryHandler)
	guarded.GET("/memory/list", s.listMemoryHandler)
	guarded.DELETE("/memory/:id", s.deleteMemoryHandler)

	guarded.POST("/secrets/unlock", s.unlockSecretsHandler)
	guarded.POST("/secrets/openai", s.setOpenAIKeyHandler)
	guarded.GET("/secrets/status", s.secretsStatusHandler)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "healthy", Version: version.Full()})
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener —
// used by tests to bind a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
