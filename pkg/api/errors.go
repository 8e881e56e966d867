package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/store"
)

// mapError maps a domain-layer error from the store or any subsystem it
// wraps into the HTTP status the original Python service returned for the
// same condition.
func mapError(err error) *echo.HTTPError {
	var valErr *config.ValidationError
	if errors.As(err, &valErr) {
		return echo.NewHTTPError(http.StatusBadRequest, valErr.Error())
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrContentTooLong):
		return echo.NewHTTPError(http.StatusBadRequest, "content_too_long")
	case errors.Is(err, store.ErrDuplicateSourceURL):
		return echo.NewHTTPError(http.StatusConflict, "duplicate_source_url")
	case errors.Is(err, store.ErrApprovalTerminal):
		return echo.NewHTTPError(http.StatusConflict, "approval_terminal")
	case errors.Is(err, ErrTokenConflict):
		return echo.NewHTTPError(http.StatusConflict, "token_already_initialized")
	case errors.Is(err, ErrVaultLocked):
		return echo.NewHTTPError(http.StatusBadRequest, "vault_locked")
	}

	slog.Error("unexpected api error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
