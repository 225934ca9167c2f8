package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbootdotdev/openboot.dev/internal/brewfile"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/registry"
)

// ToolsHandler serves the stateless helper endpoints behind the config
// editor: Brewfile import and package catalog search.
type ToolsHandler struct {
	registry *registry.Service
	metrics  metrics.Recorder
}

func NewToolsHandler(reg *registry.Service, m metrics.Recorder) *ToolsHandler {
	return &ToolsHandler{registry: reg, metrics: m}
}

// ParseBrewfile handles POST /api/brewfile/parse
func (h *ToolsHandler) ParseBrewfile(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Brewfile content required"})
		return
	}

	c.JSON(http.StatusOK, brewfile.Parse(req.Content))
}

// SearchHomebrew handles GET /api/homebrew/search?q=...
func (h *ToolsHandler) SearchHomebrew(c *gin.Context) {
	h.search(c, "homebrew", h.registry.SearchHomebrew)
}

// SearchNpm handles GET /api/npm/search?q=...
func (h *ToolsHandler) SearchNpm(c *gin.Context) {
	h.search(c, "npm", h.registry.SearchNpm)
}

func (h *ToolsHandler) search(
	c *gin.Context,
	name string,
	fn func(ctx context.Context, query string) ([]registry.SearchResult, error),
) {
	results, err := fn(c.Request.Context(), c.Query("q"))
	if err != nil {
		if errors.Is(err, registry.ErrQueryTooShort) {
			h.metrics.RecordRegistrySearch(name, "too_short")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[Registry] %s search failed: %v", name, err)
		h.metrics.RecordRegistrySearch(name, "error")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Search is temporarily unavailable"})
		return
	}

	h.metrics.RecordRegistrySearch(name, "success")
	c.JSON(http.StatusOK, gin.H{"results": results})
}
