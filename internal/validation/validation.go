package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	MaxCustomScriptLength = 10000
	MaxPackages           = 500
	MaxNameLength         = 100
	MaxDescriptionLength  = 500
	MinAliasLength        = 2
	MaxAliasLength        = 20
)

var (
	ErrScriptTooLong      = fmt.Errorf("custom script exceeds %d characters", MaxCustomScriptLength)
	ErrScriptInvalidChars = errors.New("custom script contains invalid characters")
	ErrInvalidDotfiles    = errors.New("dotfiles repo must be an HTTPS URL on a known git host")
	ErrTooManyPackages    = fmt.Errorf("package list exceeds %d entries", MaxPackages)
	ErrInvalidPackage     = errors.New("invalid package entry")
	ErrInvalidAlias       = errors.New("alias must be 2-20 lowercase letters, digits or hyphens")
	ErrReservedAlias      = errors.New("alias is reserved")
)

// allowedDotfilesHosts are the git hosts install scripts will clone from.
var allowedDotfilesHosts = map[string]bool{
	"github.com":    true,
	"gitlab.com":    true,
	"bitbucket.org": true,
	"codeberg.org":  true,
}

// allowedPackageTypes mirrors the package managers the install script knows
// how to drive.
var allowedPackageTypes = map[string]bool{
	"formula": true,
	"cask":    true,
	"tap":     true,
	"mas":     true,
	"npm":     true,
	"pip":     true,
	"gem":     true,
	"cargo":   true,
	"go":      true,
}

// reservedWords are path segments and product names that may never become an
// alias or a username: they would shadow routes like /install and /api.
var reservedWords = map[string]bool{
	"api":       true,
	"install":   true,
	"auth":      true,
	"login":     true,
	"logout":    true,
	"admin":     true,
	"config":    true,
	"configs":   true,
	"settings":  true,
	"dashboard": true,
	"docs":      true,
	"health":    true,
	"metrics":   true,
	"about":     true,
	"static":    true,
	"assets":    true,
	"public":    true,
	"private":   true,
	"user":      true,
	"users":     true,
	"www":       true,
	"openboot":  true,
	"new":       true,
	"explore":   true,
}

// IsReservedWord reports whether s collides with a route or product name.
func IsReservedWord(s string) bool {
	return reservedWords[strings.ToLower(s)]
}

var (
	aliasPattern       = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9@/._+-]+$`)
	usernamePattern    = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
)

// ValidateCustomScript enforces the size cap and rejects NUL bytes, which
// would truncate the script when embedded in the generated installer.
func ValidateCustomScript(script string) error {
	if len(script) > MaxCustomScriptLength {
		return ErrScriptTooLong
	}
	if strings.ContainsRune(script, 0) {
		return ErrScriptInvalidChars
	}
	return nil
}

// ValidateDotfilesRepo accepts only HTTPS URLs on known git hosts with a
// non-trivial repository path. The URL ends up in a generated shell script,
// so anything else is rejected outright.
func ValidateDotfilesRepo(repo string) error {
	if repo == "" {
		return nil
	}
	u, err := url.Parse(repo)
	if err != nil {
		return ErrInvalidDotfiles
	}
	if u.Scheme != "https" {
		return ErrInvalidDotfiles
	}
	if !allowedDotfilesHosts[strings.ToLower(u.Hostname())] {
		return ErrInvalidDotfiles
	}
	path := strings.Trim(u.Path, "/")
	if path == "" || !strings.Contains(path, "/") {
		return ErrInvalidDotfiles
	}
	if u.User != nil || u.Fragment != "" || u.RawQuery != "" {
		return ErrInvalidDotfiles
	}
	return nil
}

// PackageInput is the subset of a package entry that gets validated.
type PackageInput struct {
	Name string
	Type string
}

// ValidatePackages checks the count cap, the name charset and the type
// allow-list. Package names flow into the install script, hence the strict
// charset.
func ValidatePackages(packages []PackageInput) error {
	if len(packages) > MaxPackages {
		return ErrTooManyPackages
	}
	for _, p := range packages {
		if p.Name == "" || len(p.Name) > 200 {
			return fmt.Errorf("%w: bad name %q", ErrInvalidPackage, p.Name)
		}
		if !packageNamePattern.MatchString(p.Name) {
			return fmt.Errorf("%w: bad name %q", ErrInvalidPackage, p.Name)
		}
		if !allowedPackageTypes[p.Type] {
			return fmt.Errorf("%w: unknown type %q", ErrInvalidPackage, p.Type)
		}
	}
	return nil
}

// ValidateAlias checks charset, length and the reserved list. Aliases are
// mounted directly under / so they share a namespace with routes.
func ValidateAlias(alias string) error {
	if len(alias) < MinAliasLength || len(alias) > MaxAliasLength {
		return ErrInvalidAlias
	}
	if !aliasPattern.MatchString(alias) {
		return ErrInvalidAlias
	}
	if IsReservedWord(alias) {
		return ErrReservedAlias
	}
	return nil
}

// ValidUsername reports whether s is usable as a username path segment.
func ValidUsername(s string) bool {
	return len(s) >= 1 && len(s) <= 39 && usernamePattern.MatchString(s)
}

// SafeReturnTo guards the post-login redirect against open redirects: only
// relative paths with a conservative charset pass, and protocol-relative
// (`//host`) or backslash tricks are rejected. Anything else falls back to
// the caller's default.
func SafeReturnTo(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(decoded, "/") {
		return "", false
	}
	if strings.HasPrefix(decoded, "//") || strings.HasPrefix(decoded, "/\\") {
		return "", false
	}
	if strings.ContainsAny(decoded, "\\\r\n\x00") {
		return "", false
	}
	for _, r := range decoded {
		if r < 0x20 || r > 0x7e {
			return "", false
		}
	}
	return decoded, true
}
