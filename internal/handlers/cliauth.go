package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/middleware"
	"github.com/openbootdotdev/openboot.dev/internal/services"
)

type CLIAuthHandler struct {
	cliAuth *services.CLIAuthService
	config  *config.Config
	metrics metrics.Recorder
}

func NewCLIAuthHandler(
	cliAuth *services.CLIAuthService,
	cfg *config.Config,
	m metrics.Recorder,
) *CLIAuthHandler {
	return &CLIAuthHandler{cliAuth: cliAuth, config: cfg, metrics: m}
}

// Start handles POST /api/auth/cli/start
// Called by the CLI to begin the authorization flow. The server mints the
// code itself; any code the client suggests in the body is ignored.
func (h *CLIAuthHandler) Start(c *gin.Context) {
	authCode, err := h.cliAuth.Start()
	if err != nil {
		log.Printf("[CLIAuth] start failed: %v", err)
		h.metrics.RecordCLIAuthCodeStarted(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create auth code"})
		return
	}
	h.metrics.RecordCLIAuthCodeStarted(true)

	c.JSON(http.StatusOK, gin.H{
		"code_id":    authCode.ID,
		"code":       authCode.Code,
		"expires_in": int(h.config.CLIAuthCodeExpiration.Seconds()),
	})
}

// Approve handles POST /api/auth/cli/approve
// Called by the logged-in browser with the code the human typed. Every
// failure mode (unknown, expired, already claimed, already redeemed) gets
// the same response so the endpoint cannot be used to probe code state.
func (h *CLIAuthHandler) Approve(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code is required"})
		return
	}

	userID := middleware.UserIDFrom(c)
	if err := h.cliAuth.Approve(req.Code, userID); err != nil {
		if errors.Is(err, services.ErrInvalidOrExpiredCode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"})
			return
		}
		log.Printf("[CLIAuth] approve failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve code"})
		return
	}

	h.metrics.RecordCLIAuthCodeApproved()
	h.metrics.RecordTokenIssued()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Poll handles GET /api/auth/cli/poll?code_id=...
// Called by the CLI until the code resolves. Unknown and expired ids both
// answer 200 {"status":"expired"}; the poll endpoint never turns code state
// into a 4xx, so a CLI retry loop stays a dumb loop.
func (h *CLIAuthHandler) Poll(c *gin.Context) {
	codeID := c.Query("code_id")
	if codeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code_id is required"})
		return
	}

	result, err := h.cliAuth.Poll(codeID)
	if err != nil {
		log.Printf("[CLIAuth] poll failed for code %s: %v", codeID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to poll code"})
		return
	}
	h.metrics.RecordCLIAuthPoll(string(result.Status))

	if result.Status != services.PollApproved {
		c.JSON(http.StatusOK, gin.H{"status": string(result.Status)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     string(services.PollApproved),
		"token":      result.Token.Token,
		"username":   result.User.Username,
		"expires_at": result.Token.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
