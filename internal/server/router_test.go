package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/config"
	"github.com/otebe/matrix/internal/domain/access"
	"github.com/otebe/matrix/internal/domain/admin"
	"github.com/otebe/matrix/internal/domain/payment"
	"github.com/otebe/matrix/internal/domain/report"
	"github.com/otebe/matrix/internal/domain/security"
	"github.com/otebe/matrix/internal/domain/session"
	"github.com/otebe/matrix/internal/telegram"
	"github.com/otebe/matrix/internal/token"
	"github.com/otebe/matrix/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminPassword = "router-test-password"

// fakeSender records the Bot API calls made by the bot
type fakeSender struct {
	mu    sync.Mutex
	calls []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testServer struct {
	app    *fiber.App
	sender *fakeSender
}

func newTestServer(t *testing.T, withBot bool) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Server.AllowedOrigins = []string{"https://admin.example.com"}

	hash, err := admin.HashPassword(adminPassword)
	require.NoError(t, err)
	cfg.Admin.PasswordHash = hash

	db := utils.SetupTestDB(t,
		&access.Grant{},
		&session.DeviceSession{},
		&security.Event{},
		&payment.Request{},
		&report.Download{},
	)

	signer, err := token.NewSigner([]byte("router-test-secret-router-test-s"), cfg.App.Name)
	require.NoError(t, err)

	ts := &testServer{app: newApp(cfg), sender: &fakeSender{}}
	deps := &Dependencies{Config: cfg, DB: db, Signer: signer}
	if withBot {
		cfg.Telegram.AdminChatID = 42
		deps.Bot = telegram.NewBotWithSender(ts.sender, cfg.Telegram)
	}
	require.NoError(t, SetupRoutes(ts.app, deps))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := ts.app.Test(req)
	require.NoError(t, err)

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	resp, body := ts.do(t, "POST", "/admin/login", `{"password":"`+adminPassword+`"}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	resp, body := ts.do(t, "GET", "/v1/health", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestPublicEndpoint_Preflight(t *testing.T) {
	ts := newTestServer(t, false)

	resp, err := ts.app.Test(httptest.NewRequest("OPTIONS", "/access-check", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, DELETE, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	raw, _ := io.ReadAll(resp.Body)
	assert.Empty(t, raw)

	resp, err = ts.app.Test(httptest.NewRequest("OPTIONS", "/download-report", nil))
	require.NoError(t, err)
	assert.Equal(t, "POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestPublicEndpoint_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, false)

	resp, body := ts.do(t, "PUT", "/access-check", `{}`, "")
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Method not allowed", body["error"])
	assert.Equal(t, utils.ErrMethodNotAllowed.Code, body["code"])

	resp, _ = ts.do(t, "GET", "/payment-submit", "", "")
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, false)

	resp, body := ts.do(t, "GET", "/no-such-endpoint", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, utils.ErrNotFound.Code, body["code"])

	resp, _ = ts.do(t, "GET", "/v1/health", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAccessCheck_NotFound(t *testing.T) {
	ts := newTestServer(t, false)

	resp, body := ts.do(t, "GET", "/access-check?email=nobody@example.com", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, false, body["has_access"])
	assert.Equal(t, string(access.ReasonNotFound), body["reason"])

	resp, _ = ts.do(t, "GET", "/access-check", "", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_RequiresToken(t *testing.T) {
	ts := newTestServer(t, false)

	resp, _ := ts.do(t, "GET", "/admin/requests", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, "POST", "/admin/login", `{"password":"wrong"}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_CORS(t *testing.T) {
	ts := newTestServer(t, false)

	req := httptest.NewRequest("OPTIONS", "/admin/requests", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := ts.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://admin.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestGrantDownloadFlow(t *testing.T) {
	ts := newTestServer(t, false)
	tok := ts.login(t)

	resp, _ := ts.do(t, "POST", "/admin/grants", `{"email":"Buyer@Example.com","plan_type":"single"}`, tok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := ts.do(t, "GET", "/access-check?email=buyer@example.com", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["has_access"])
	assert.Equal(t, float64(1), body["downloads_left"])

	resp, body = ts.do(t, "POST", "/download-report", `{"email":"buyer@example.com","calculation_data":{"day":3}}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["downloads_left"])

	resp, _ = ts.do(t, "POST", "/download-report", `{"email":"buyer@example.com"}`, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body = ts.do(t, "GET", "/access-check?email=buyer@example.com", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, string(access.ReasonQuotaExhausted), body["reason"])

	resp, _ = ts.do(t, "DELETE", "/admin/grants/buyer@example.com", "", tok)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, "DELETE", "/admin/grants/buyer@example.com", "", tok)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPaymentApprovalFlow(t *testing.T) {
	ts := newTestServer(t, true)
	tok := ts.login(t)

	resp, body := ts.do(t, "POST", "/payment-submit", `{"email":"payer@example.com","plan_type":"month"}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1, ts.sender.count(), "admin chat notified")

	resp, body = ts.do(t, "GET", "/admin/requests?status=pending", "", tok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	requests, _ := body["requests"].([]any)
	require.Len(t, requests, 1)
	first, _ := requests[0].(map[string]any)
	assert.Equal(t, float64(990), first["amount"])

	resp, _ = ts.do(t, "POST", "/admin/requests/1/approve", "", tok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, "POST", "/admin/requests/1/reject", "", tok)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body = ts.do(t, "GET", "/access-check?email=payer@example.com", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["has_access"])
	assert.Equal(t, "month", body["plan_type"])
}

func TestTelegramWebhook_Disabled(t *testing.T) {
	ts := newTestServer(t, false)

	resp, _ := ts.do(t, "POST", "/telegram-webhook", `{"update_id":1}`, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	tok := ts.login(t)
	resp, _ = ts.do(t, "POST", "/admin/telegram/webhook", "", tok)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestTelegramWebhook_Enabled(t *testing.T) {
	ts := newTestServer(t, true)

	resp, body := ts.do(t, "POST", "/telegram-webhook", `{"update_id":1}`, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
}

func TestSetupRoutes_RequiresDatabase(t *testing.T) {
	assert.Error(t, SetupRoutes(fiber.New(), &Dependencies{Config: &config.Config{}}))
	assert.Error(t, SetupRoutes(fiber.New(), nil))
}

func TestAdmin_SecurityLogsAndCleanup(t *testing.T) {
	ts := newTestServer(t, false)
	tok := ts.login(t)

	resp, body := ts.do(t, "GET", "/admin/security-logs?email=a@x.io&limit=10", "", tok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	events, ok := body["events"].([]any)
	require.True(t, ok)
	assert.Empty(t, events)

	resp, body = ts.do(t, "DELETE", "/admin/sessions/unknown", "", tok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["deleted"])
}
