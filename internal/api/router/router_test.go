package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/api/handler"
	"github.com/Freeeeeet/slot_swapper/internal/api/response"
	"github.com/Freeeeeet/slot_swapper/internal/auth"
	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/notify"
	"github.com/Freeeeeet/slot_swapper/internal/repository/memory"
	"github.com/Freeeeeet/slot_swapper/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var start = time.Date(2026, 5, 11, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
	swaps  *service.SwapService
	tokens *auth.Manager
	users  *service.UserService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store := memory.NewStore()
	hub := notify.NewHub(logger)
	users := service.NewUserService(store.Users(), logger)
	slots := service.NewSlotService(store, logger)
	swaps := service.NewSwapService(store, hub, logger)
	tokens := auth.NewManager("0123456789abcdef", time.Hour)
	t.Cleanup(swaps.Drain)

	return &testAPI{
		t:      t,
		engine: Setup(handler.NewHandler(slots, swaps, hub), tokens, users, logger),
		swaps:  swaps,
		tokens: tokens,
		users:  users,
	}
}

// login регистрирует пользователя и возвращает его id и токен
func (a *testAPI) login(telegramID int64, name string) (int64, string) {
	a.t.Helper()
	u, err := a.users.RegisterUser(context.Background(), telegramID, name, name, "", "")
	require.NoError(a.t, err)
	token, _, err := a.tokens.GenerateAccessToken(u.ID)
	require.NoError(a.t, err)
	return u.ID, token
}

func (a *testAPI) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (a *testAPI) createSwappable(token, title string, offset time.Duration) model.Slot {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/events", token, map[string]any{
		"title":     title,
		"startTime": start.Add(offset),
		"endTime":   start.Add(offset + time.Hour),
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var slot model.Slot
	require.NoError(a.t, json.Unmarshal(env.Data, &slot))

	w, _ = a.do(http.MethodPatch, fmt.Sprintf("/api/events/%d/status", slot.ID), token, map[string]string{"status": "SWAPPABLE"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return slot
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w, _ := api.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.CodeUnauthorized, env.Code)

	w, _ = api.do(http.MethodGet, "/api/events", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Токен пользователя, которого нет в хранилище
	ghost, _, err := api.tokens.GenerateAccessToken(404)
	require.NoError(t, err)
	w, _ = api.do(http.MethodGet, "/api/events", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSwapFlow(t *testing.T) {
	api := newTestAPI(t)
	aliceID, alice := api.login(1, "alice")
	bobID, bob := api.login(2, "bob")

	aliceSlot := api.createSwappable(alice, "alice standup", 0)
	bobSlot := api.createSwappable(bob, "bob review", 3*time.Hour)

	w, env := api.do(http.MethodGet, "/api/swaps/swappable-slots", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var market []model.Slot
	require.NoError(t, json.Unmarshal(env.Data, &market))
	require.Len(t, market, 1)
	assert.Equal(t, aliceSlot.ID, market[0].ID)
	require.NotNil(t, market[0].Owner)
	assert.Equal(t, aliceID, market[0].Owner.ID)

	w, env = api.do(http.MethodPost, "/api/swaps/request", bob, map[string]int64{
		"mySlotId":    bobSlot.ID,
		"theirSlotId": aliceSlot.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var swap model.SwapRequest
	require.NoError(t, json.Unmarshal(env.Data, &swap))
	assert.Equal(t, model.SwapStatusPending, swap.Status)

	w, env = api.do(http.MethodGet, "/api/swaps/requests", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var requests service.Requests
	require.NoError(t, json.Unmarshal(env.Data, &requests))
	require.Len(t, requests.Incoming, 1)
	assert.Empty(t, requests.Outgoing)
	assert.Equal(t, swap.ID, requests.Incoming[0].ID)

	w, env = api.do(http.MethodGet, fmt.Sprintf("/api/swaps/requests/%d", swap.ID), bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(http.MethodPost, fmt.Sprintf("/api/swaps/response/%d", swap.ID), alice, map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &swap))
	assert.Equal(t, model.SwapStatusAccepted, swap.Status)

	w, env = api.do(http.MethodGet, "/api/events", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bobEvents []model.Slot
	require.NoError(t, json.Unmarshal(env.Data, &bobEvents))
	require.Len(t, bobEvents, 1)
	assert.Equal(t, aliceSlot.ID, bobEvents[0].ID)
	assert.Equal(t, bobID, bobEvents[0].OwnerID)
	assert.Equal(t, model.SlotStatusBusy, bobEvents[0].Status)
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.login(1, "alice")
	_, bob := api.login(2, "bob")
	_, carol := api.login(3, "carol")

	aliceSlot := api.createSwappable(alice, "a", 0)
	bobSlot := api.createSwappable(bob, "b", time.Hour)

	w, env := api.do(http.MethodPost, "/api/swaps/request", alice, map[string]int64{"mySlotId": aliceSlot.ID, "theirSlotId": bobSlot.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var swap model.SwapRequest
	require.NoError(t, json.Unmarshal(env.Data, &swap))

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   int
	}{
		{"invalid id", http.MethodDelete, "/api/events/abc", alice, nil, http.StatusBadRequest, response.CodeValidation},
		{"missing event", http.MethodGet, "/api/events/999", alice, nil, http.StatusNotFound, response.CodeNotFound},
		{"foreign event is hidden", http.MethodGet, fmt.Sprintf("/api/events/%d", bobSlot.ID), alice, nil, http.StatusNotFound, response.CodeNotFound},
		{"unknown status", http.MethodPatch, fmt.Sprintf("/api/events/%d/status", aliceSlot.ID), alice, map[string]string{"status": "FREE"}, http.StatusBadRequest, response.CodeValidation},
		{"pending slot frozen", http.MethodPatch, fmt.Sprintf("/api/events/%d/status", aliceSlot.ID), alice, map[string]string{"status": "BUSY"}, http.StatusBadRequest, response.CodeInvalidTransition},
		{"delete foreign", http.MethodDelete, fmt.Sprintf("/api/events/%d", aliceSlot.ID), bob, nil, http.StatusForbidden, response.CodeForbidden},
		{"bad event body", http.MethodPost, "/api/events", alice, map[string]any{"title": "x", "startTime": "tomorrow"}, http.StatusBadRequest, response.CodeValidation},
		{"end before start", http.MethodPost, "/api/events", alice, map[string]any{"title": "x", "startTime": start, "endTime": start}, http.StatusBadRequest, response.CodeValidation},
		{"missing slot ids", http.MethodPost, "/api/swaps/request", alice, map[string]int64{"mySlotId": aliceSlot.ID}, http.StatusBadRequest, response.CodeValidation},
		{"duplicate request", http.MethodPost, "/api/swaps/request", bob, map[string]int64{"mySlotId": bobSlot.ID, "theirSlotId": aliceSlot.ID}, http.StatusConflict, response.CodeConflict},
		{"respond without accept", http.MethodPost, fmt.Sprintf("/api/swaps/response/%d", swap.ID), bob, map[string]string{}, http.StatusBadRequest, response.CodeValidation},
		{"respond as requester", http.MethodPost, fmt.Sprintf("/api/swaps/response/%d", swap.ID), alice, map[string]bool{"accept": true}, http.StatusForbidden, response.CodeForbidden},
		{"respond as stranger", http.MethodPost, fmt.Sprintf("/api/swaps/response/%d", swap.ID), carol, map[string]bool{"accept": true}, http.StatusForbidden, response.CodeForbidden},
		{"respond to missing", http.MethodPost, "/api/swaps/response/999", bob, map[string]bool{"accept": true}, http.StatusNotFound, response.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := api.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.Message)
		})
	}

	w, _ = api.do(http.MethodPost, fmt.Sprintf("/api/swaps/response/%d", swap.ID), bob, map[string]bool{"accept": false})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(http.MethodPost, fmt.Sprintf("/api/swaps/response/%d", swap.ID), bob, map[string]bool{"accept": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeAlreadyProcessed, env.Code)
}

func TestEventCRUD(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.login(1, "alice")

	slot := api.createSwappable(alice, "planning", 0)

	w, env := api.do(http.MethodPut, fmt.Sprintf("/api/events/%d", slot.ID), alice, map[string]any{
		"title":  "planning v2",
		"status": "BUSY",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Slot
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "planning v2", updated.Title)
	assert.Equal(t, model.SlotStatusBusy, updated.Status)

	w, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/events/%d", slot.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(http.MethodGet, "/api/events", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestNotificationStream(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.login(1, "alice")
	bobID, bob := api.login(2, "bob")

	aliceSlot := api.createSwappable(alice, "a", 0)
	bobSlot := api.createSwappable(bob, "b", time.Hour)

	srv := httptest.NewServer(api.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+alice)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	nextEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			case line == "" && event != "":
				return event, data
			}
		}
	}

	event, _ := nextEvent()
	require.Equal(t, "connected", event)

	_, err = api.swaps.RequestSwap(context.Background(), bobID, bobSlot.ID, aliceSlot.ID)
	require.NoError(t, err)

	event, data := nextEvent()
	assert.Equal(t, string(model.NotificationSwapRequest), event)

	var n model.Notification
	require.NoError(t, json.Unmarshal([]byte(data), &n))
	require.NotNil(t, n.SwapRequest)
	assert.Equal(t, aliceSlot.ID, n.SwapRequest.RequestedSlotID)
}
