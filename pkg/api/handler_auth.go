package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

type authStatusResponse struct {
	Initialized   bool   `json:"initialized"`
	AuthMode      string `json:"auth_mode"`
	TokenRequired bool   `json:"token_required"`
}

type bootstrapRequest struct {
	Token string `json:"token"`
}

func (s *Server) authStatusHandler(c *echo.Context) error {
	initialized, mode, required, err := s.deps.Auth.Status(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, authStatusResponse{Initialized: initialized, AuthMode: mode, TokenRequired: required})
}

func (s *Server) authBootstrapHandler(c *echo.Context) error {
	var req bootstrapRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	status, err := s.deps.Auth.Bootstrap(c.Request().Context(), req.Token)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: status})
}
