package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/astra-ai/kernel/pkg/approval"
)

func (s *Server) decideApproval(c *echo.Context, approve bool) error {
	var req approvalDecisionRequest
	_ = c.Bind(&req) // body is optional; a malformed one just leaves decidedBy empty

	decidedBy := req.DecidedBy
	if decidedBy == "" {
		decidedBy = "user"
	}

	a, err := approval.Resolve(c.Request().Context(), s.deps.Store, s.deps.Bus, c.Param("id"), approve, decidedBy)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) approveApprovalHandler(c *echo.Context) error {
	return s.decideApproval(c, true)
}

func (s *Server) rejectApprovalHandler(c *echo.Context) error {
	return s.decideApproval(c, false)
}
