// Package installscript renders the bash installers served at
// /<username>/<slug>/install.
package installscript

import (
	"encoding/base64"
	"regexp"
	"strings"
	"text/template"
)

var shellArgUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeShellArg strips everything outside [a-zA-Z0-9_-]. Usernames and
// slugs are interpolated into generated bash, so the charset is the guard,
// not quoting.
func SanitizeShellArg(value string) string {
	return shellArgUnsafe.ReplaceAllString(value, "")
}

type scriptData struct {
	Username        string
	Slug            string
	CustomScriptB64 string
	DotfilesRepo    string
	AppURL          string
}

var installTmpl = template.Must(template.New("install").Parse(`#!/bin/bash
set -e

echo "========================================"
echo "  OpenBoot - Custom Install"
echo "  Config: @{{.Username}}/{{.Slug}}"
echo "========================================"
echo ""

TMPDIR="${TMPDIR:-/tmp}"
OPENBOOT_BIN="$TMPDIR/openboot-$$"

trap 'rm -f "$OPENBOOT_BIN"' EXIT

install_xcode_clt() {
  if xcode-select -p &>/dev/null; then
    return 0
  fi
  echo "Installing Xcode Command Line Tools..."
  echo "(A dialog may appear - please click 'Install')"
  echo ""
  xcode-select --install 2>/dev/null || true
  echo "Waiting for Xcode Command Line Tools installation..."
  until xcode-select -p &>/dev/null; do
    sleep 5
  done
  echo "Xcode Command Line Tools installed!"
  echo ""
}

install_homebrew() {
  if command -v brew &>/dev/null; then
    return 0
  fi
  echo "Installing Homebrew..."
  echo ""
  /bin/bash -c "$(curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh)"
  if [ "$(uname -m)" = "arm64" ]; then
    eval "$(/opt/homebrew/bin/brew shellenv)"
  else
    eval "$(/usr/local/bin/brew shellenv)"
  fi
  echo "Homebrew installed!"
  echo ""
}

install_xcode_clt
install_homebrew

ARCH="$(uname -m)"
if [ "$ARCH" = "arm64" ]; then
  ARCH="arm64"
else
  ARCH="amd64"
fi

OPENBOOT_URL="https://github.com/openbootdotdev/openboot/releases/latest/download/openboot-darwin-${ARCH}"

echo "Downloading OpenBoot..."
curl -fsSL "$OPENBOOT_URL" -o "$OPENBOOT_BIN"
chmod +x "$OPENBOOT_BIN"

echo "Using remote config: @{{.Username}}/{{.Slug}}"
"$OPENBOOT_BIN" --user "{{.Username}}/{{.Slug}}" "$@"
{{if .CustomScriptB64}}
echo ""
echo "=== Running Custom Post-Install Script ==="
set +e
CUSTOM_SCRIPT_B64="{{.CustomScriptB64}}"
echo "$CUSTOM_SCRIPT_B64" | base64 -d | bash
CUSTOM_SCRIPT_EXIT=$?
set -e
if [ $CUSTOM_SCRIPT_EXIT -ne 0 ]; then
  echo ""
  echo "Custom script exited with code $CUSTOM_SCRIPT_EXIT"
  echo "  Installation will continue, but check script output above."
fi
{{end}}{{if .DotfilesRepo}}
echo ""
echo "=== Setting up Dotfiles ==="
DOTFILES_REPO="{{.DotfilesRepo}}"
DOTFILES_DIR="$HOME/.dotfiles"

if [[ ! "$DOTFILES_REPO" =~ ^https:// ]]; then
  echo "Error: Invalid dotfiles repo URL (must use HTTPS)"
  exit 1
fi

if [ -d "$DOTFILES_DIR" ]; then
  echo "Dotfiles directory already exists at $DOTFILES_DIR"
  echo "Pulling latest changes..."
  cd "$DOTFILES_DIR" && git pull
else
  echo "Cloning dotfiles from $DOTFILES_REPO..."
  git clone "$DOTFILES_REPO" "$DOTFILES_DIR"
fi

cd "$DOTFILES_DIR"
echo "Deploying dotfiles with stow..."
rm -f "$HOME/.zshrc" "$HOME/.zshrc.pre-oh-my-zsh"
for dir in */; do
  [ -d "$dir" ] && stow -v --target="$HOME" "${dir%/}" 2>/dev/null || true
done
{{end}}
echo ""
echo "Installation complete!"
`))

// Generate renders the installer for a config. The custom script travels
// base64-encoded so its content can never break out of the surrounding bash;
// the dotfiles repo was validated at save time and is re-checked for HTTPS
// inside the script itself.
func Generate(username, slug, customScript, dotfilesRepo string) string {
	data := scriptData{
		Username:     SanitizeShellArg(username),
		Slug:         SanitizeShellArg(slug),
		DotfilesRepo: dotfilesRepo,
	}
	if customScript != "" {
		data.CustomScriptB64 = base64.StdEncoding.EncodeToString([]byte(customScript))
	}

	var sb strings.Builder
	// The template only fails on a bad definition, which Must already caught.
	_ = installTmpl.Execute(&sb, data)
	return sb.String()
}

var privateTmpl = template.Must(template.New("private").Parse(`#!/bin/bash
set -e

echo "========================================"
echo "  OpenBoot - Private Config Install"
echo "  Config: @{{.Username}}/{{.Slug}}"
echo "========================================"
echo ""

APP_URL="{{.AppURL}}"

echo "This config is private. Authorizing this device with OpenBoot..."
echo ""

START_RESPONSE="$(curl -fsSL -X POST "$APP_URL/api/auth/cli/start")"
CODE_ID="$(echo "$START_RESPONSE" | sed -n 's/.*"code_id":"\([^"]*\)".*/\1/p')"
CODE="$(echo "$START_RESPONSE" | sed -n 's/.*"code":"\([^"]*\)".*/\1/p')"

if [ -z "$CODE_ID" ] || [ -z "$CODE" ]; then
  echo "Failed to start authorization. Please try again."
  exit 1
fi

AUTH_URL="$APP_URL/cli-auth?code=$CODE"

echo "Your code: $CODE"
echo "Opening browser to approve this device..."
echo "  $AUTH_URL"
echo ""
if command -v open &>/dev/null; then
  open "$AUTH_URL"
elif command -v xdg-open &>/dev/null; then
  xdg-open "$AUTH_URL"
fi

echo "Waiting for approval..."
TOKEN=""
for i in $(seq 1 60); do
  sleep 2
  POLL_RESPONSE="$(curl -fsSL "$APP_URL/api/auth/cli/poll?code_id=$CODE_ID")"
  poll_status="$(echo "$POLL_RESPONSE" | sed -n 's/.*"status":"\([^"]*\)".*/\1/p')"
  if [ "$poll_status" = "approved" ]; then
    TOKEN="$(echo "$POLL_RESPONSE" | sed -n 's/.*"token":"\([^"]*\)".*/\1/p')"
    break
  elif [ "$poll_status" = "expired" ]; then
    echo "Authorization expired. Please run the installer again."
    exit 1
  fi
done

if [ -z "$TOKEN" ]; then
  echo "Authorization timed out. Please run the installer again."
  exit 1
fi

echo "Authorized!"
echo ""
exec bash <(curl -fsSL -H "Authorization: Bearer $TOKEN" "$APP_URL/{{.Username}}/{{.Slug}}/install")
`))

// GeneratePrivateBootstrap renders the device-authorization bootstrap served
// when an anonymous client curls a private config's installer. It contains
// nothing from the config itself: it runs the CLI auth flow and re-fetches
// the real installer with the minted bearer token.
func GeneratePrivateBootstrap(appURL, username, slug string) string {
	data := scriptData{
		Username: SanitizeShellArg(username),
		Slug:     SanitizeShellArg(slug),
		AppURL:   strings.TrimRight(appURL, "/"),
	}

	var sb strings.Builder
	_ = privateTmpl.Execute(&sb, data)
	return sb.String()
}
