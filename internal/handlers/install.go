package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/installscript"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/middleware"
	"github.com/openbootdotdev/openboot.dev/internal/models"
	"github.com/openbootdotdev/openboot.dev/internal/services"
)

// installerScriptURL is the generic CLI installer served for a bare /install.
const installerScriptURL = "https://raw.githubusercontent.com/openbootdotdev/openboot/main/scripts/install.sh"

type InstallHandler struct {
	configs *services.ConfigService
	access  *services.AccessService
	config  *config.Config
	metrics metrics.Recorder
}

func NewInstallHandler(
	configs *services.ConfigService,
	access *services.AccessService,
	cfg *config.Config,
	m metrics.Recorder,
) *InstallHandler {
	return &InstallHandler{configs: configs, access: access, config: cfg, metrics: m}
}

// Script handles GET /:username/:slug/install
// Serves the bash install script for `curl | bash`. A private config answers
// an anonymous curl with a bootstrap script that walks the human through CLI
// authorization and re-fetches with the minted token; a request that carried
// credentials and still failed gets a plain 403.
func (h *InstallHandler) Script(c *gin.Context) {
	username, slug := c.Param("username"), c.Param("slug")

	cfg, owner, err := h.configs.GetByPath(username, slug)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}

	req := middleware.RequesterFrom(c)
	if err := h.access.Authorize(cfg, req); err != nil {
		if !errors.Is(err, services.ErrAccessDenied) {
			log.Printf("[Install] authorize failed for %s/%s: %v", username, slug, err)
			c.String(http.StatusInternalServerError, "Internal error")
			return
		}
		if req.SessionUserID == "" && req.BearerToken == "" {
			// Anonymous curl of a private config: hand out the auth
			// bootstrap instead of a dead end.
			h.metrics.RecordInstallServed("bootstrap")
			h.serveScript(c, installscript.GeneratePrivateBootstrap(
				h.config.BaseURL, owner.Username, cfg.Slug))
			return
		}
		c.String(http.StatusForbidden, "Config is private")
		return
	}

	h.recordInstall(cfg)
	h.serveScript(c, installscript.Generate(
		owner.Username, cfg.Slug, cfg.CustomScript, cfg.DotfilesRepo))
}

// ConfigJSON handles GET /:username/:slug/config
// The compact config document the CLI fetches after authorization.
func (h *InstallHandler) ConfigJSON(c *gin.Context) {
	username, slug := c.Param("username"), c.Param("slug")

	cfg, owner, err := h.configs.GetByPath(username, slug)
	if err != nil {
		if errors.Is(err, services.ErrConfigNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Config not found"})
			return
		}
		log.Printf("[Install] failed to load %s/%s: %v", username, slug, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	if err := h.access.Authorize(cfg, middleware.RequesterFrom(c)); err != nil {
		if errors.Is(err, services.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Config is private"})
			return
		}
		log.Printf("[Install] authorize failed for %s/%s: %v", username, slug, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":      owner.Username,
		"slug":          cfg.Slug,
		"name":          cfg.Name,
		"preset":        cfg.BasePreset,
		"packages":      cfg.Packages,
		"dotfiles_repo": cfg.DotfilesRepo,
	})
}

// AliasScript handles GET /:alias
// The short install URL. Aliases live in a global, guessable namespace, so a
// private config a requester may not read answers 404, indistinguishable
// from an alias that was never claimed.
func (h *InstallHandler) AliasScript(c *gin.Context) {
	// gin allows only one wildcard name per tree position, and the root
	// segment is :username for the /:username/:slug routes. Here it carries
	// the alias.
	alias := c.Param("username")

	cfg, owner, err := h.configs.GetByAlias(alias)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}

	if err := h.access.Authorize(cfg, middleware.RequesterFrom(c)); err != nil {
		if errors.Is(err, services.ErrAccessDenied) {
			c.String(http.StatusNotFound, "Not found")
			return
		}
		log.Printf("[Install] authorize failed for alias %q: %v", alias, err)
		c.String(http.StatusInternalServerError, "Internal error")
		return
	}

	h.recordInstall(cfg)
	h.serveScript(c, installscript.Generate(
		owner.Username, cfg.Slug, cfg.CustomScript, cfg.DotfilesRepo))
}

// InstallerRedirect handles GET /install
func (h *InstallHandler) InstallerRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, installerScriptURL)
}

func (h *InstallHandler) serveScript(c *gin.Context, script string) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(script))
}

// recordInstall bumps the counter after the script is on its way out; the
// installer never waits on, or hears about, a failed count.
func (h *InstallHandler) recordInstall(cfg *models.Config) {
	h.metrics.RecordInstallServed(string(cfg.Visibility))
	if err := h.configs.RecordInstall(cfg.ID); err != nil {
		log.Printf("[Install] failed to record install for config %s: %v", cfg.ID, err)
	}
}

func (h *InstallHandler) writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrConfigNotFound) {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	log.Printf("[Install] lookup failed: %v", err)
	c.String(http.StatusInternalServerError, "Internal error")
}
