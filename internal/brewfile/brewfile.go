// Package brewfile parses Homebrew Brewfiles into their package lists.
package brewfile

import (
	"regexp"
	"strings"
)

// Result holds the entries found in a Brewfile, split by kind. Packages is
// the formulas and casks combined, in file order within each kind.
type Result struct {
	Packages []string `json:"packages"`
	Taps     []string `json:"taps"`
	Casks    []string `json:"casks"`
	Formulas []string `json:"formulas"`
}

var (
	tapPattern  = regexp.MustCompile(`^tap\s+["']([^"']+)["']`)
	brewPattern = regexp.MustCompile(`^brew\s+["']([^"']+)["']`)
	caskPattern = regexp.MustCompile(`^cask\s+["']([^"']+)["']`)
)

// Parse reads tap/brew/cask lines. Comments, blank lines and directives it
// does not know (mas, vscode, options after the name) are skipped; only the
// quoted first argument of each line is taken.
func Parse(content string) *Result {
	result := &Result{
		Packages: []string{},
		Taps:     []string{},
		Casks:    []string{},
		Formulas: []string{},
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := tapPattern.FindStringSubmatch(trimmed); m != nil {
			result.Taps = append(result.Taps, m[1])
			continue
		}
		if m := brewPattern.FindStringSubmatch(trimmed); m != nil {
			result.Formulas = append(result.Formulas, m[1])
			continue
		}
		if m := caskPattern.FindStringSubmatch(trimmed); m != nil {
			result.Casks = append(result.Casks, m[1])
			continue
		}
	}

	result.Packages = append(result.Packages, result.Formulas...)
	result.Packages = append(result.Packages, result.Casks...)
	return result
}
