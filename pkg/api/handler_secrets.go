package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

type unlockRequest struct {
	Passphrase string `json:"passphrase"`
}

type openAIKeyRequest struct {
	APIKey string `json:"api_key"`
}

type vaultStatusResponse struct {
	VaultUnlocked bool `json:"vault_unlocked"`
}

// unlockSecretsHandler implements POST /api/v1/secrets/unlock: records the
// passphrase for this process's Vault. It never touches disk — a wrong
// passphrase only surfaces as a decrypt failure on later reads.
func (s *Server) unlockSecretsHandler(c *echo.Context) error {
	var req unlockRequest
	if err := c.Bind(&req); err != nil || req.Passphrase == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "passphrase is required")
	}
	s.deps.Vault.Unlock(req.Passphrase)
	return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

// setOpenAIKeyHandler implements POST /api/v1/secrets/openai: persists the
// OpenAI API key into the vault. 400 if the vault hasn't been unlocked yet.
func (s *Server) setOpenAIKeyHandler(c *echo.Context) error {
	var req openAIKeyRequest
	if err := c.Bind(&req); err != nil || req.APIKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "api_key is required")
	}
	if err := s.deps.Vault.SetSecret("OPENAI_API_KEY", req.APIKey); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) secretsStatusHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, vaultStatusResponse{VaultUnlocked: s.deps.Vault.Unlocked()})
}
