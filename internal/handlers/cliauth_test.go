package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbootdotdev/openboot.dev/internal/models"
)

func startCLIAuth(t *testing.T, env *testEnv) (codeID, code string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/cli/start", nil)
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		CodeID    string `json:"code_id"`
		Code      string `json:"code"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.CodeID)
	require.Len(t, body.Code, 8)
	assert.Equal(t, 600, body.ExpiresIn)
	return body.CodeID, body.Code
}

func approveCode(t *testing.T, env *testEnv, user *models.User, code string) *httptest.ResponseRecorder {
	t.Helper()
	payload := fmt.Sprintf(`{"code":%q}`, code)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/cli/approve", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.AddCookie(env.sessionCookie(t, user))
	}
	return env.do(req)
}

func pollCode(t *testing.T, env *testEnv, codeID string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/cli/poll?code_id="+codeID, nil)
	w := env.do(req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestCLIAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "octocat")

	codeID, code := startCLIAuth(t, env)

	status, body := pollCode(t, env, codeID)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pending", body["status"])
	assert.NotContains(t, body, "token")

	w := approveCode(t, env, user, code)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	status, body = pollCode(t, env, codeID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "approved", body["status"])
	assert.Equal(t, "octocat", body["username"])

	token, _ := body["token"].(string)
	assert.True(t, strings.HasPrefix(token, models.TokenPrefix))

	expiresAt, err := time.Parse(time.RFC3339, body["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(90*24*time.Hour), expiresAt, time.Minute)

	// Polling again after redemption repeats the same payload, so a CLI that
	// lost the response can safely retry.
	status, again := pollCode(t, env, codeID)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "approved", again["status"])
	assert.Equal(t, token, again["token"])
}

func TestCLIAuthApproveRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	_, code := startCLIAuth(t, env)

	w := approveCode(t, env, nil, code)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The code is untouched and still approvable.
	user := env.seedUser(t, "octocat")
	w = approveCode(t, env, user, code)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCLIAuthApproveInvalidCode(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "octocat")

	for name, code := range map[string]string{
		"unknown":   "ZZZZZZZZ",
		"too short": "ABC",
	} {
		t.Run(name, func(t *testing.T) {
			w := approveCode(t, env, user, code)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "Invalid or expired code")
		})
	}

	w := approveCode(t, env, user, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Code is required")
}

func TestCLIAuthApproveAcceptsDisplayFormat(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "octocat")
	codeID, code := startCLIAuth(t, env)

	// The browser form may echo the hyphenated display form back.
	w := approveCode(t, env, user, code[:4]+"-"+code[4:])
	require.Equal(t, http.StatusOK, w.Code)

	_, body := pollCode(t, env, codeID)
	assert.Equal(t, "approved", body["status"])
}

func TestCLIAuthPollUnknownID(t *testing.T) {
	env := newTestEnv(t)

	// Unknown ids read as expired, never as an error, so poll responses give
	// away nothing about which ids exist.
	status, body := pollCode(t, env, "does-not-exist")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "expired", body["status"])
}

func TestCLIAuthPollMissingID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/cli/poll", nil)
	w := env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "code_id is required")
}

func TestCLIAuthCodeSingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "octocat")
	other := env.seedUser(t, "hubot")

	_, code := startCLIAuth(t, env)
	require.Equal(t, http.StatusOK, approveCode(t, env, user, code).Code)

	w := approveCode(t, env, other, code)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired code")
}
