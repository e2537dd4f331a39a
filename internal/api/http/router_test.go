package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TESCHEL/agenthq/internal/bootstrap"
	"github.com/TESCHEL/agenthq/internal/config"
	"github.com/TESCHEL/agenthq/internal/observability"
	"github.com/TESCHEL/agenthq/internal/realtime"
	"github.com/TESCHEL/agenthq/internal/repository/memstore"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type apiClient struct {
	t   *testing.T
	app *fiber.App
}

func (a apiClient) do(method, path, bearer string, body any) (int, envelope) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type world struct {
	api       apiClient
	container *bootstrap.Container

	ownerToken    string
	outsiderToken string
	workspaceID   string
	otherWSID     string
	channelID     string
	otherChannel  string
	agentKey      string
}

func newWorld(t *testing.T) *world {
	t.Helper()
	cfg := config.Defaults()
	cfg.Auth.BcryptCost = 4
	cfg.Memory.SweepIntervalSeconds = 0

	container := bootstrap.Build(bootstrap.Dependencies{
		Config:  cfg,
		Metrics: observability.NewMetrics(),
		Repos:   memstore.New().Repositories(),
	})
	w := &world{api: apiClient{t: t, app: container.App}, container: container}

	w.ownerToken = w.register("Ada", "ada@example.com")
	w.outsiderToken = w.register("Eve", "eve@example.com")

	w.workspaceID = w.createWorkspace(w.ownerToken, "Acme")
	w.otherWSID = w.createWorkspace(w.outsiderToken, "Other")
	w.channelID = w.createChannel(w.ownerToken, w.workspaceID, "general")
	w.otherChannel = w.createChannel(w.outsiderToken, w.otherWSID, "secret")

	status, env := w.api.do(http.MethodPost, "/workspaces/"+w.workspaceID+"/agents", w.ownerToken, map[string]any{"name": "triage-bot"})
	require.Equal(t, http.StatusCreated, status)
	agent := decode[map[string]any](t, env)
	w.agentKey, _ = agent["api_key"].(string)
	require.NotEmpty(t, w.agentKey)
	return w
}

func (w *world) register(name, email string) string {
	status, env := w.api.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "correct horse",
	})
	require.Equal(w.api.t, http.StatusCreated, status)
	return decode[map[string]any](w.api.t, env)["token"].(string)
}

func (w *world) createWorkspace(token, name string) string {
	status, env := w.api.do(http.MethodPost, "/workspaces", token, map[string]any{"name": name})
	require.Equal(w.api.t, http.StatusCreated, status)
	return decode[map[string]any](w.api.t, env)["id"].(string)
}

func (w *world) createChannel(token, workspaceID, name string) string {
	status, env := w.api.do(http.MethodPost, "/workspaces/"+workspaceID+"/channels", token, map[string]any{"name": name})
	require.Equal(w.api.t, http.StatusCreated, status)
	return decode[map[string]any](w.api.t, env)["id"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	w := newWorld(t)

	status, _ := w.api.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp, err := w.container.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var ready map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", ready["status"])
	assert.Equal(t, map[string]any{"postgres": "disabled", "redis": "disabled"}, ready["dependencies"])

	status, _ = w.api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthFlow(t *testing.T) {
	w := newWorld(t)

	status, env := w.api.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Ada Again", "email": "ADA@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, env = w.api.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	status, env = w.api.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "ada@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, status)
	login := decode[map[string]any](t, env)
	assert.NotEmpty(t, login["token"])
	assert.NotEmpty(t, login["expires_at"])

	status, env = w.api.do(http.MethodGet, "/me", w.ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	me := decode[map[string]any](t, env)
	assert.Equal(t, "human", me["kind"])

	status, env = w.api.do(http.MethodGet, "/me", w.agentKey, nil)
	require.Equal(t, http.StatusOK, status)
	me = decode[map[string]any](t, env)
	assert.Equal(t, "agent", me["kind"])
	agent := me["agent"].(map[string]any)
	assert.NotContains(t, agent, "api_key")

	status, env = w.api.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	status, _ = w.api.do(http.MethodGet, "/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestWorkspaceAccess(t *testing.T) {
	w := newWorld(t)

	status, env := w.api.do(http.MethodGet, "/workspaces", w.ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[[]map[string]any](t, env)
	require.Len(t, list, 1)
	assert.Equal(t, w.workspaceID, list[0]["id"])

	status, env = w.api.do(http.MethodGet, "/workspaces/"+w.workspaceID, w.outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = w.api.do(http.MethodGet, "/workspaces/does-not-exist", w.ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = w.api.do(http.MethodPost, "/workspaces/"+w.workspaceID+"/members", w.ownerToken, map[string]any{"email": "eve@example.com"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "member", decode[map[string]any](t, env)["role"])

	status, _ = w.api.do(http.MethodGet, "/workspaces/"+w.workspaceID, w.outsiderToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = w.api.do(http.MethodPost, "/workspaces", w.agentKey, map[string]any{"name": "Bot Land"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAgentDeactivation(t *testing.T) {
	w := newWorld(t)

	status, env := w.api.do(http.MethodGet, "/workspaces/"+w.workspaceID+"/agents", w.ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	agents := decode[[]map[string]any](t, env)
	require.Len(t, agents, 1)
	agentID := agents[0]["id"].(string)
	assert.NotContains(t, agents[0], "api_key")

	status, _ = w.api.do(http.MethodPatch, "/agents/"+agentID, w.ownerToken, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, status)

	status, env = w.api.do(http.MethodGet, "/me", w.agentKey, nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = w.api.do(http.MethodPatch, "/agents/"+agentID, w.ownerToken, map[string]any{"is_active": true})
	require.Equal(t, http.StatusOK, status)
	status, _ = w.api.do(http.MethodGet, "/me", w.agentKey, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = w.api.do(http.MethodPatch, "/agents/"+agentID, w.ownerToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMessageCreatedReachesSubscribedSession(t *testing.T) {
	w := newWorld(t)

	subscribed := realtime.NewSession(nil, 8)
	bystander := realtime.NewSession(nil, 8)
	w.container.Hub.Register(subscribed)
	w.container.Hub.Register(bystander)
	require.NoError(t, w.container.Hub.Subscribe(subscribed.ID(), realtime.ChannelRoom(w.channelID)))
	require.NoError(t, w.container.Hub.Subscribe(bystander.ID(), realtime.ChannelRoom(w.otherChannel)))

	status, env := w.api.do(http.MethodPost, "/channels/"+w.channelID+"/messages", w.agentKey, map[string]any{
		"content": "**build** is green", "message_type": "markdown",
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[map[string]any](t, env)
	assert.Equal(t, "agent", created["author_type"])
	assert.Contains(t, created["html"], "<strong>build</strong>")

	select {
	case raw := <-subscribed.Outbound():
		var frame struct {
			Type      string         `json:"type"`
			ChannelID string         `json:"channel_id"`
			Payload   map[string]any `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(raw, &frame))
		assert.Equal(t, "message.created", frame.Type)
		assert.Equal(t, w.channelID, frame.ChannelID)
		assert.Equal(t, created["id"], frame.Payload["id"])
	case <-time.After(time.Second):
		t.Fatal("subscribed session did not receive message.created")
	}

	select {
	case raw := <-bystander.Outbound():
		t.Fatalf("unexpected frame for other room: %s", raw)
	default:
	}

	status, env = w.api.do(http.MethodGet, "/channels/"+w.channelID+"/messages?limit=10", w.ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	history := decode[[]map[string]any](t, env)
	require.Len(t, history, 1)
	assert.Equal(t, "**build** is green", history[0]["content"])

	status, _ = w.api.do(http.MethodGet, "/channels/"+w.channelID+"/messages?limit=abc", w.ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAgentCannotActInOtherWorkspace(t *testing.T) {
	w := newWorld(t)

	status, env := w.api.do(http.MethodPost, "/channels/"+w.otherChannel+"/messages", w.agentKey, map[string]any{"content": "hello"})
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = w.api.do(http.MethodGet, "/workspaces/"+w.otherWSID+"/handoffs", w.agentKey, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = w.api.do(http.MethodGet, "/channels/"+w.otherChannel+"/messages", w.ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = w.api.do(http.MethodGet, "/channels/missing/messages", w.agentKey, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandoffLifecycle(t *testing.T) {
	w := newWorld(t)

	status, env := w.api.do(http.MethodPost, "/workspaces/"+w.workspaceID+"/handoffs", w.agentKey, map[string]any{
		"title":      "Customer asks for refund",
		"channel_id": w.channelID,
		"priority":   "HIGH",
		"status":     "RESOLVED",
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[map[string]any](t, env)
	handoffID := created["id"].(string)
	assert.Equal(t, "OPEN", created["status"])
	assert.Equal(t, "HIGH", created["priority"])
	assert.NotNil(t, created["from_agent_id"])

	status, env = w.api.do(http.MethodPatch, "/handoffs/"+handoffID, w.ownerToken, map[string]any{"status": "RESOLVED"})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	status, env = w.api.do(http.MethodGet, "/handoffs/"+handoffID, w.ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OPEN", decode[map[string]any](t, env)["status"])

	status, env = w.api.do(http.MethodPatch, "/handoffs/"+handoffID, w.outsiderToken, map[string]any{"status": "IN_PROGRESS"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = w.api.do(http.MethodPatch, "/handoffs/"+handoffID, w.ownerToken, map[string]any{"status": "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, decode[map[string]any](t, env)["resolved_at"])

	status, env = w.api.do(http.MethodPatch, "/handoffs/"+handoffID, w.ownerToken, map[string]any{"status": "RESOLVED"})
	require.Equal(t, http.StatusOK, status)
	resolved := decode[map[string]any](t, env)
	assert.Equal(t, "RESOLVED", resolved["status"])
	assert.NotNil(t, resolved["resolved_at"])

	status, env = w.api.do(http.MethodGet, "/workspaces/"+w.workspaceID+"/handoffs?status=OPEN", w.ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]map[string]any](t, env))

	status, env = w.api.do(http.MethodGet, "/workspaces/"+w.workspaceID+"/handoffs?status=RESOLVED", w.ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, env), 1)

	status, _ = w.api.do(http.MethodPatch, "/handoffs/missing", w.ownerToken, map[string]any{"status": "IN_PROGRESS"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMemoryEndpoints(t *testing.T) {
	w := newWorld(t)

	status, env := w.api.do(http.MethodPost, "/memory", w.agentKey, map[string]any{
		"key": "prefs/theme", "value": map[string]any{"mode": "dark"},
	})
	require.Equal(t, http.StatusOK, status)
	first := decode[map[string]any](t, env)

	status, env = w.api.do(http.MethodPost, "/memory", w.agentKey, map[string]any{
		"key": "prefs/theme", "value": map[string]any{"mode": "light"},
	})
	require.Equal(t, http.StatusOK, status)
	second := decode[map[string]any](t, env)
	assert.Equal(t, first["id"], second["id"])

	status, _ = w.api.do(http.MethodPost, "/memory", w.agentKey, map[string]any{"key": "prefs/lang", "value": "en"})
	require.Equal(t, http.StatusOK, status)

	status, env = w.api.do(http.MethodGet, "/memory?key=prefs/theme", w.agentKey, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"mode": "light"}, decode[map[string]any](t, env)["value"])

	status, env = w.api.do(http.MethodGet, "/memory?q=prefs/", w.agentKey, nil)
	require.Equal(t, http.StatusOK, status)
	entries := decode[[]map[string]any](t, env)
	require.Len(t, entries, 2)
	assert.Equal(t, "prefs/lang", entries[0]["key"])
	assert.Equal(t, "prefs/theme", entries[1]["key"])

	status, _ = w.api.do(http.MethodGet, "/memory?q=prefs/", w.ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = w.api.do(http.MethodDelete, "/memory?key=prefs/theme", w.agentKey, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = w.api.do(http.MethodDelete, "/memory?key=prefs/theme", w.agentKey, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = w.api.do(http.MethodGet, "/memory?key=prefs/theme", w.agentKey, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = w.api.do(http.MethodDelete, "/memory", w.agentKey, map[string]any{"key": "prefs/lang"})
	assert.Equal(t, http.StatusNoContent, status)
	status, env = w.api.do(http.MethodGet, "/memory?q=prefs/", w.agentKey, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]map[string]any](t, env))

	status, _ = w.api.do(http.MethodPost, "/memory", w.agentKey, map[string]any{"key": "", "value": 1})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFiberErrorsUseEnvelope(t *testing.T) {
	w := newWorld(t)

	status, env := w.api.do(http.MethodGet, "/nope", w.ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = w.api.do(http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
	require.NotNil(t, env.Error)
}
