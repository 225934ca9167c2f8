package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/middleware"
	"github.com/openbootdotdev/openboot.dev/internal/models"
	"github.com/openbootdotdev/openboot.dev/internal/services"
	"github.com/openbootdotdev/openboot.dev/internal/store"
	"github.com/openbootdotdev/openboot.dev/internal/validation"
)

type ConfigHandler struct {
	configs *services.ConfigService
	access  *services.AccessService
	config  *config.Config
	metrics metrics.Recorder
}

func NewConfigHandler(
	configs *services.ConfigService,
	access *services.AccessService,
	cfg *config.Config,
	m metrics.Recorder,
) *ConfigHandler {
	return &ConfigHandler{configs: configs, access: access, config: cfg, metrics: m}
}

// configRequest is the JSON body for create and update.
type configRequest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	BasePreset   string            `json:"base_preset"`
	Packages     []models.Package  `json:"packages"`
	CustomScript string            `json:"custom_script"`
	DotfilesRepo string            `json:"dotfiles_repo"`
	Snapshot     string            `json:"snapshot"`
	Alias        *string           `json:"alias"`
	Visibility   models.Visibility `json:"visibility"`
	ForkedFrom   string            `json:"forked_from"`
}

func (r *configRequest) toInput() services.ConfigInput {
	alias := r.Alias
	// An empty alias means "no alias", not the empty string.
	if alias != nil && strings.TrimSpace(*alias) == "" {
		alias = nil
	}
	return services.ConfigInput{
		Name:         r.Name,
		Description:  r.Description,
		BasePreset:   r.BasePreset,
		Packages:     r.Packages,
		CustomScript: r.CustomScript,
		DotfilesRepo: r.DotfilesRepo,
		Snapshot:     r.Snapshot,
		Alias:        alias,
		Visibility:   r.Visibility,
		ForkedFrom:   r.ForkedFrom,
	}
}

// List handles GET /api/configs
func (h *ConfigHandler) List(c *gin.Context) {
	userID := middleware.UserIDFrom(c)

	configs, err := h.configs.ListOwn(userID)
	if err != nil {
		log.Printf("[Config] failed to list configs for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list configs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"configs":  configs,
		"username": c.GetString(middleware.ContextUsername),
	})
}

// Create handles POST /api/configs
func (h *ConfigHandler) Create(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID := middleware.UserIDFrom(c)
	cfg, err := h.configs.Create(userID, req.toInput())
	if err != nil {
		h.metrics.RecordConfigWrite("create", false)
		h.writeConfigError(c, err)
		return
	}
	h.metrics.RecordConfigWrite("create", true)

	username := c.GetString(middleware.ContextUsername)
	c.JSON(http.StatusCreated, gin.H{
		"id":          cfg.ID,
		"slug":        cfg.Slug,
		"alias":       cfg.Alias,
		"install_url": h.installURL(cfg, username),
	})
}

// Get handles GET /api/configs/:slug
func (h *ConfigHandler) Get(c *gin.Context) {
	userID := middleware.UserIDFrom(c)

	cfg, err := h.configs.GetOwn(userID, c.Param("slug"))
	if err != nil {
		h.writeConfigError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"config":      cfg,
		"install_url": h.installURL(cfg, c.GetString(middleware.ContextUsername)),
	})
}

// Update handles PUT /api/configs/:slug
// The slug never changes, even when the name does, so install URLs already
// shared keep working.
func (h *ConfigHandler) Update(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID := middleware.UserIDFrom(c)
	cfg, err := h.configs.Update(userID, c.Param("slug"), req.toInput())
	if err != nil {
		h.metrics.RecordConfigWrite("update", false)
		h.writeConfigError(c, err)
		return
	}
	h.metrics.RecordConfigWrite("update", true)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"slug":        cfg.Slug,
		"alias":       cfg.Alias,
		"install_url": h.installURL(cfg, c.GetString(middleware.ContextUsername)),
	})
}

// Delete handles DELETE /api/configs/:slug
func (h *ConfigHandler) Delete(c *gin.Context) {
	userID := middleware.UserIDFrom(c)

	if err := h.configs.Delete(userID, c.Param("slug")); err != nil {
		h.metrics.RecordConfigWrite("delete", false)
		h.writeConfigError(c, err)
		return
	}
	h.metrics.RecordConfigWrite("delete", true)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Public handles GET /api/configs/public
// Public configs only; unlisted ones are reachable but never listed.
func (h *ConfigHandler) Public(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	sort := store.PublicConfigSort(c.DefaultQuery("sort", string(store.SortRecent)))

	configs, total, err := h.configs.ListPublic(c.Query("username"), sort, limit, offset)
	if err != nil {
		log.Printf("[Config] failed to list public configs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list configs"})
		return
	}

	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, gin.H{
		"configs": configs,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Alias handles GET /api/configs/alias/:alias
// The machine-readable install plan the CLI consumes. Private configs answer
// 403 unless the requester is the owner; this is a machine endpoint, so the
// deny is explicit rather than a 404.
func (h *ConfigHandler) Alias(c *gin.Context) {
	cfg, owner, err := h.configs.GetByAlias(c.Param("alias"))
	if err != nil {
		if errors.Is(err, services.ErrConfigNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alias not found"})
			return
		}
		log.Printf("[Config] failed to resolve alias %q: %v", c.Param("alias"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve alias"})
		return
	}

	if err := h.access.Authorize(cfg, middleware.RequesterFrom(c)); err != nil {
		if errors.Is(err, services.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Config is private"})
			return
		}
		log.Printf("[Config] authorize failed for alias %q: %v", c.Param("alias"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve alias"})
		return
	}

	c.JSON(http.StatusOK, buildInstallPlan(cfg, owner.Username))
}

func (h *ConfigHandler) installURL(cfg *models.Config, username string) string {
	if cfg.Alias != nil {
		return fmt.Sprintf("%s/%s", h.config.BaseURL, *cfg.Alias)
	}
	return fmt.Sprintf("%s/%s/%s/install", h.config.BaseURL, username, cfg.Slug)
}

func (h *ConfigHandler) writeConfigError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrConfigNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Config not found"})
	case errors.Is(err, store.ErrSlugConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Config with this name already exists"})
	case errors.Is(err, store.ErrAliasConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "This alias is already taken"})
	case errors.Is(err, services.ErrConfigLimitReached):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Maximum %d configs per user", h.config.MaxConfigsPerUser),
		})
	case errors.Is(err, services.ErrInvalidName),
		errors.Is(err, services.ErrInvalidVisibility),
		errors.Is(err, validation.ErrScriptTooLong),
		errors.Is(err, validation.ErrScriptInvalidChars),
		errors.Is(err, validation.ErrInvalidDotfiles),
		errors.Is(err, validation.ErrTooManyPackages),
		errors.Is(err, validation.ErrInvalidPackage),
		errors.Is(err, validation.ErrInvalidAlias),
		errors.Is(err, validation.ErrReservedAlias):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[Config] operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}

// snapshotPackages is the slice of a machine snapshot the install plan needs.
type snapshotPackages struct {
	Packages struct {
		Taps  []string `json:"taps"`
		Casks []string `json:"casks"`
	} `json:"packages"`
}

// buildInstallPlan flattens a config into the shape the CLI executes: brew
// packages and casks split out, taps derived from the snapshot and from
// three-part package names, npm packages separate, and the custom script as
// post-install lines.
func buildInstallPlan(cfg *models.Config, username string) gin.H {
	tapsSet := map[string]bool{}
	var taps []string
	addTap := func(tap string) {
		if !tapsSet[tap] {
			tapsSet[tap] = true
			taps = append(taps, tap)
		}
	}

	if cfg.Snapshot != "" {
		var snap snapshotPackages
		if err := json.Unmarshal([]byte(cfg.Snapshot), &snap); err == nil {
			for _, tap := range snap.Packages.Taps {
				addTap(tap)
			}
		}
	}

	packages := []string{}
	casks := []string{}
	npm := []string{}
	for _, pkg := range cfg.Packages {
		switch pkg.Type {
		case "npm":
			npm = append(npm, pkg.Name)
		case "cask":
			packages = append(packages, pkg.Name)
			casks = append(casks, pkg.Name)
		default:
			packages = append(packages, pkg.Name)
		}
	}

	// user/repo/formula names imply their tap.
	for _, name := range packages {
		if parts := strings.Split(name, "/"); len(parts) == 3 {
			addTap(parts[0] + "/" + parts[1])
		}
	}
	if taps == nil {
		taps = []string{}
	}

	postInstall := []string{}
	for _, line := range strings.Split(cfg.CustomScript, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			postInstall = append(postInstall, line)
		}
	}

	return gin.H{
		"username":      username,
		"slug":          cfg.Slug,
		"name":          cfg.Name,
		"preset":        cfg.BasePreset,
		"packages":      packages,
		"casks":         casks,
		"taps":          taps,
		"npm":           npm,
		"dotfiles_repo": cfg.DotfilesRepo,
		"post_install":  postInstall,
	}
}
