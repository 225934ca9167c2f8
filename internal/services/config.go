package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/models"
	"github.com/openbootdotdev/openboot.dev/internal/store"
	"github.com/openbootdotdev/openboot.dev/internal/validation"
)

// ConfigInput is the mutable surface of a config. The slug is derived from
// the name at creation and never changes afterwards, so install URLs stay
// stable across renames.
type ConfigInput struct {
	Name         string
	Description  string
	BasePreset   string
	Packages     []models.Package
	CustomScript string
	DotfilesRepo string
	Snapshot     string
	Alias        *string
	Visibility   models.Visibility
	ForkedFrom   string
}

type ConfigService struct {
	store  *store.Store
	config *config.Config
}

func NewConfigService(s *store.Store, cfg *config.Config) *ConfigService {
	return &ConfigService{store: s, config: cfg}
}

var (
	ErrInvalidName       = errors.New("config name is required")
	ErrInvalidVisibility = errors.New("invalid visibility")
)

// Create validates the input, derives the slug and enforces the per-user cap.
func (s *ConfigService) Create(userID string, input ConfigInput) (*models.Config, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	count, err := s.store.CountConfigsByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count configs: %w", err)
	}
	if count >= int64(s.config.MaxConfigsPerUser) {
		return nil, ErrConfigLimitReached
	}

	slug := Slugify(input.Name)
	taken, err := s.store.SlugTaken(userID, slug, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if taken {
		return nil, store.ErrSlugConflict
	}

	if input.Alias != nil {
		if err := s.checkAlias(*input.Alias, ""); err != nil {
			return nil, err
		}
	}

	cfg := &models.Config{
		ID:           uuid.New().String(),
		UserID:       userID,
		Slug:         slug,
		Name:         input.Name,
		Description:  input.Description,
		BasePreset:   input.BasePreset,
		Packages:     models.PackageList(input.Packages),
		CustomScript: input.CustomScript,
		DotfilesRepo: input.DotfilesRepo,
		Snapshot:     input.Snapshot,
		Alias:        input.Alias,
		Visibility:   input.Visibility,
		ForkedFrom:   input.ForkedFrom,
	}
	if cfg.BasePreset == "" {
		cfg.BasePreset = "developer"
	}
	if cfg.Packages == nil {
		cfg.Packages = models.PackageList{}
	}

	if err := s.store.CreateConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to create config: %w", err)
	}
	return cfg, nil
}

// Update rewrites the mutable fields of an owned config. The slug stays as
// created even when the name changes.
func (s *ConfigService) Update(userID, slug string, input ConfigInput) (*models.Config, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	cfg, err := s.GetOwn(userID, slug)
	if err != nil {
		return nil, err
	}

	if input.Alias != nil {
		if err := s.checkAlias(*input.Alias, cfg.ID); err != nil {
			return nil, err
		}
	}

	cfg.Name = input.Name
	cfg.Description = input.Description
	cfg.Packages = models.PackageList(input.Packages)
	cfg.CustomScript = input.CustomScript
	cfg.DotfilesRepo = input.DotfilesRepo
	cfg.Snapshot = input.Snapshot
	cfg.Alias = input.Alias
	cfg.Visibility = input.Visibility
	if input.BasePreset != "" {
		cfg.BasePreset = input.BasePreset
	}
	if cfg.Packages == nil {
		cfg.Packages = models.PackageList{}
	}

	if err := s.store.UpdateConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to update config: %w", err)
	}
	return cfg, nil
}

func (s *ConfigService) Delete(userID, slug string) error {
	if _, err := s.GetOwn(userID, slug); err != nil {
		return err
	}
	return s.store.DeleteConfig(userID, slug)
}

// GetOwn fetches a config the caller owns.
func (s *ConfigService) GetOwn(userID, slug string) (*models.Config, error) {
	cfg, err := s.store.GetConfig(userID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (s *ConfigService) ListOwn(userID string) ([]models.Config, error) {
	return s.store.ListConfigsByUserID(userID)
}

// GetByPath resolves /<username>/<slug> to a config and its owner. Access is
// NOT checked here; callers run the result through AccessService.Authorize.
func (s *ConfigService) GetByPath(username, slug string) (*models.Config, *models.User, error) {
	if !validation.ValidUsername(username) {
		return nil, nil, ErrConfigNotFound
	}

	owner, err := s.store.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrConfigNotFound
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	cfg, err := s.store.GetConfig(owner.ID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrConfigNotFound
		}
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, owner, nil
}

// GetByAlias resolves a global alias. Reserved words never resolve even if a
// row somehow carries one.
func (s *ConfigService) GetByAlias(alias string) (*models.Config, *models.User, error) {
	if validation.ValidateAlias(alias) != nil {
		return nil, nil, ErrConfigNotFound
	}

	cfg, err := s.store.GetConfigByAlias(alias)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrConfigNotFound
		}
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	owner, err := s.store.GetUserByID(cfg.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config owner: %w", err)
	}
	return cfg, owner, nil
}

func (s *ConfigService) ListPublic(
	username string,
	sort store.PublicConfigSort,
	limit, offset int,
) ([]models.Config, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if sort != store.SortInstalls {
		sort = store.SortRecent
	}
	return s.store.ListPublicConfigs(username, sort, limit, offset)
}

// RecordInstall bumps the install counter. Failures are not surfaced to the
// installer; the script was already served.
func (s *ConfigService) RecordInstall(configID string) error {
	return s.store.IncrementInstallCount(configID)
}

func (s *ConfigService) checkAlias(alias, excludeID string) error {
	if err := validation.ValidateAlias(alias); err != nil {
		return err
	}
	taken, err := s.store.AliasTaken(alias, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check alias: %w", err)
	}
	if taken {
		return store.ErrAliasConflict
	}
	return nil
}

func validateInput(input *ConfigInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || len(input.Name) > validation.MaxNameLength {
		return ErrInvalidName
	}
	if len(input.Description) > validation.MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", validation.MaxDescriptionLength)
	}
	if input.Visibility == "" {
		input.Visibility = models.VisibilityPublic
	}
	if !input.Visibility.Valid() {
		return ErrInvalidVisibility
	}
	if err := validation.ValidateCustomScript(input.CustomScript); err != nil {
		return err
	}
	if err := validation.ValidateDotfilesRepo(input.DotfilesRepo); err != nil {
		return err
	}
	packages := make([]validation.PackageInput, len(input.Packages))
	for i, p := range input.Packages {
		packages[i] = validation.PackageInput{Name: p.Name, Type: p.Type}
	}
	return validation.ValidatePackages(packages)
}

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9]+`)
	slugCollapse = regexp.MustCompile(`-{2,}`)
)

// Slugify turns a display name into a URL slug: lowercase, runs of anything
// but [a-z0-9] become single hyphens, capped at 50 chars.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalid.ReplaceAllString(slug, "-")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}
	if slug == "" {
		slug = "config"
	}
	return slug
}
