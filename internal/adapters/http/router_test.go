package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Chat/internal/adapters/ratelimit"
	"github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/auth"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/dkeye/Chat/internal/mocks"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testServer struct {
	*httptest.Server
	orch   *orch.Orchestrator
	issuer *auth.JWTAuthority
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:   "test",
		Secret: "cookie-secret",
		Auth:   config.AuthConfig{TokenTTL: time.Hour},
	}
}

type serverDeps struct {
	verifier auth.Verifier
	issuer   auth.Issuer
	limiter  *ratelimit.Pool
}

func newTestServer(t *testing.T, verifier auth.Verifier, limiter *ratelimit.Pool) *testServer {
	t.Helper()
	return newTestServerWith(t, serverDeps{verifier: verifier, limiter: limiter})
}

// newTestServerWith builds the full stack; nil deps fall back to a real JWT authority.
func newTestServerWith(t *testing.T, deps serverDeps) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	registry := app.NewRegistry()
	store := app.NewMemoryStore()
	disp := app.NewDispatcher(registry, app.SimplePolicy{}, m)
	o := &orch.Orchestrator{
		Registry: registry,
		Engine:   app.NewEngine(store, disp, m),
		Events:   disp,
		Store:    store,
		Metrics:  m,
	}
	authority := auth.NewJWTAuthority("jwt-secret", time.Hour, "chat-test")
	verifier, issuer := deps.verifier, deps.issuer
	if verifier == nil {
		verifier = authority
	}
	if issuer == nil {
		issuer = authority
	}
	r := SetupRouter(ctx, testConfig(), Deps{
		Orch:      o,
		Directory: auth.NewDirectory([]string{"admin"}),
		Issuer:    issuer,
		Verifier:  verifier,
		Signal:    signal.NewSignalWSController(o, verifier, nil, m, signal.Options{}),
		Limiter:   deps.limiter,
		Metrics:   m,
		Gatherer:  reg,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, orch: o, issuer: authority}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header http.Header) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, username string) (string, domain.User) {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/login", map[string]string{"username": username}, nil)
	require.Equal(t, http.StatusOK, code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	user, err := s.issuer.Verify(token)
	require.NoError(t, err)
	return token, user
}

func (s *testServer) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?token=" + token
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

type frame struct {
	Type    core.EventType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// next reads frames until one of type want arrives.
func next(t *testing.T, ws *websocket.Conn, want core.EventType) frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, ws.ReadJSON(&f))
		if f.Type == want {
			return f
		}
	}
}

func send(t *testing.T, ws *websocket.Conn, typ string, payload any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(map[string]any{"type": typ, "payload": payload}))
}

func TestLogin(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil, nil)

	code, body := s.do(t, http.MethodPost, "/api/login", map[string]string{"username": ""}, nil)
	req.Equal(http.StatusBadRequest, code)
	req.Equal("username required", body["error"])

	_, alice := s.login(t, "alice")
	_, again := s.login(t, "alice")
	req.Equal(alice.ID, again.ID)

	_, adm := s.login(t, "admin")
	req.True(adm.IsAdmin)
}

func TestHistoryAndRooms(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil, nil)
	_, alice := s.login(t, "alice")

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.orch.Engine.Send(alice, "lobby", domain.Draft{Type: domain.TypeText, Content: text})
		req.NoError(err)
	}

	code, body := s.do(t, http.MethodGet, "/api/rooms/lobby/messages?limit=2", nil, nil)
	req.Equal(http.StatusOK, code)
	req.Equal("lobby", body["roomId"])
	msgs := body["messages"].([]any)
	req.Len(msgs, 2)
	req.Equal("three", msgs[1].(map[string]any)["content"])

	// Unparsable limit falls back to the default
	code, body = s.do(t, http.MethodGet, "/api/rooms/lobby/messages?limit=abc", nil, nil)
	req.Equal(http.StatusOK, code)
	req.Len(body["messages"].([]any), 3)

	code, body = s.do(t, http.MethodGet, "/api/rooms/empty/messages", nil, nil)
	req.Equal(http.StatusOK, code)
	req.Empty(body["messages"].([]any))

	code, body = s.do(t, http.MethodGet, "/api/rooms", nil, nil)
	req.Equal(http.StatusOK, code)
	req.Len(body["rooms"].([]any), 2)
}

func TestReactEndpoint(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil, nil)
	token, alice := s.login(t, "alice")
	bobToken, _ := s.login(t, "bob")
	msg, err := s.orch.Engine.Send(alice, domain.DefaultRoomID, domain.Draft{Type: domain.TypeText, Content: "hi"})
	req.NoError(err)
	path := "/api/rooms/general/messages/" + string(msg.ID) + "/react"

	// A live member of the room sees REST reactions too
	ws := s.dial(t, bobToken)
	next(t, ws, core.EventUserOnline)

	code, body := s.do(t, http.MethodPost, path, map[string]string{"emoji": "👍"}, nil)
	req.Equal(http.StatusUnauthorized, code)
	req.Equal("token required", body["error"])

	code, _ = s.do(t, http.MethodPost, path, map[string]string{"emoji": "👍", "token": "garbage"}, nil)
	req.Equal(http.StatusUnauthorized, code)

	bearer := http.Header{"Authorization": []string{"Bearer " + token}}
	code, body = s.do(t, http.MethodPost, path, map[string]string{"emoji": "👍"}, bearer)
	req.Equal(http.StatusOK, code)
	reactions := body["message"].(map[string]any)["reactions"].(map[string]any)
	req.Len(reactions["👍"], 1)

	var live core.ReactionPayload
	req.NoError(json.Unmarshal(next(t, ws, core.EventMessageReaction).Payload, &live))
	req.Equal(msg.ID, live.MessageID)
	req.Equal([]domain.UserID{alice.ID}, live.Reactions["👍"])

	// Malformed JSON is a bad request, not a missing emoji
	code, body = s.do(t, http.MethodPost, path, []byte(`{"emoji":`), bearer)
	req.Equal(http.StatusBadRequest, code)
	req.Equal("bad request", body["error"])

	code, body = s.do(t, http.MethodPost, "/api/rooms/general/messages/missing/react", map[string]string{"emoji": "👍"}, bearer)
	req.Equal(http.StatusNotFound, code)
	req.Equal("message not found", body["error"])

	code, _ = s.do(t, http.MethodPost, path, map[string]string{"emoji": ""}, bearer)
	req.Equal(http.StatusBadRequest, code)
}

func TestReactEndpoint_UsesVerifier(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	verifier.EXPECT().Verify("opaque").Return(domain.User{ID: "u1", Username: "ghost"}, nil)
	s := newTestServer(t, verifier, nil)

	code, _ := s.do(t, http.MethodPost, "/api/rooms/general/messages/nope/react",
		map[string]string{"emoji": "👍", "token": "opaque"}, nil)
	req.Equal(http.StatusNotFound, code)
}

func TestRateLimit(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil, ratelimit.NewPool(0.001, 2, time.Minute))

	for i := 0; i < 2; i++ {
		code, _ := s.do(t, http.MethodGet, "/api/rooms", nil, nil)
		req.Equal(http.StatusOK, code)
	}
	code, _ := s.do(t, http.MethodGet, "/api/rooms", nil, nil)
	req.Equal(http.StatusTooManyRequests, code)

	// Health checks are never throttled
	code, _ = s.do(t, http.MethodGet, "/healthz", nil, nil)
	req.Equal(http.StatusOK, code)
}

func TestMetricsEndpoint(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil, nil)

	resp, err := http.Get(s.URL + "/metrics")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestWebsocket_RefusesWithoutToken(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil, nil)

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocket_ChatFlow(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil, nil)
	aliceToken, alice := s.login(t, "alice")
	bobToken, bob := s.login(t, "bob")

	a := s.dial(t, aliceToken)
	next(t, a, core.EventUserOnline)
	b := s.dial(t, bobToken)
	online := next(t, a, core.EventUserOnline)
	var presence core.PresencePayload
	req.NoError(json.Unmarshal(online.Payload, &presence))
	req.Equal(bob.ID, presence.UserID)

	// Alice posts to general, both see it
	send(t, a, "message", map[string]any{"roomId": "general", "content": "hello"})
	var msg domain.Message
	req.NoError(json.Unmarshal(next(t, b, core.EventMessage).Payload, &msg))
	req.Equal("hello", msg.Content)
	req.Equal(alice.ID, msg.SenderID)
	next(t, a, core.EventMessage)

	// Bob types, only Alice hears it
	send(t, b, "user_typing", map[string]any{"isTyping": true})
	var typing core.TypingPayload
	req.NoError(json.Unmarshal(next(t, a, core.EventUserTyping).Payload, &typing))
	req.Equal(bob.ID, typing.UserID)
	req.Equal(domain.DefaultRoomID, typing.RoomID)

	// Bob reacts, the room sees the new set
	send(t, b, "react_message", map[string]any{"messageId": msg.ID, "emoji": "🎉"})
	var reaction core.ReactionPayload
	req.NoError(json.Unmarshal(next(t, a, core.EventMessageReaction).Payload, &reaction))
	req.Equal([]domain.UserID{bob.ID}, reaction.Reactions["🎉"])

	// Bob cannot edit Alice's message
	send(t, b, "edit_message", map[string]any{"messageId": msg.ID, "newContent": "hijack"})
	var failure core.ErrorPayload
	req.NoError(json.Unmarshal(next(t, b, core.EventError).Payload, &failure))
	req.Equal(orch.CodeEditFailed, failure.Error)

	// Alice deletes her own message
	send(t, a, "delete_message", map[string]any{"messageId": msg.ID})
	var deleted core.DeletedPayload
	req.NoError(json.Unmarshal(next(t, b, core.EventMessageDeleted).Payload, &deleted))
	req.Equal(msg.ID, deleted.MessageID)

	// Malformed payloads are reported to the sender
	send(t, a, "react_message", map[string]any{"emoji": "🎉"})
	req.NoError(json.Unmarshal(next(t, a, core.EventError).Payload, &failure))
	req.Equal(orch.CodeBadPayload, failure.Error)

	send(t, a, "ping", nil)
	next(t, a, core.EventPong)

	// Bob leaves, Alice is told
	req.NoError(b.Close())
	var offline core.PresencePayload
	req.NoError(json.Unmarshal(next(t, a, core.EventUserOffline).Payload, &offline))
	req.Equal(bob.ID, offline.UserID)
}

func TestWebsocket_RoomScopedDelivery(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil, nil)
	aliceToken, _ := s.login(t, "alice")
	bobToken, _ := s.login(t, "bob")

	a := s.dial(t, aliceToken)
	b := s.dial(t, bobToken)

	send(t, a, "join_room", map[string]any{"roomId": "X"})
	var ack core.RoomAckPayload
	req.NoError(json.Unmarshal(next(t, a, core.EventJoinedRoom).Payload, &ack))
	req.Equal(domain.RoomID("X"), ack.RoomID)
	send(t, b, "join_room", map[string]any{"roomId": "Y"})
	next(t, b, core.EventJoinedRoom)

	// A message in Y reaches bob; alice's next message event is the one from X
	send(t, b, "message", map[string]any{"roomId": "Y", "content": "in Y"})
	var got domain.Message
	req.NoError(json.Unmarshal(next(t, b, core.EventMessage).Payload, &got))
	req.Equal(domain.RoomID("Y"), got.RoomID)

	send(t, a, "message", map[string]any{"roomId": "X", "content": "in X"})
	req.NoError(json.Unmarshal(next(t, a, core.EventMessage).Payload, &got))
	req.Equal(domain.RoomID("X"), got.RoomID)

	send(t, a, "leave_room", map[string]any{"roomId": "X"})
	req.NoError(json.Unmarshal(next(t, a, core.EventLeftRoom).Payload, &ack))
	req.Equal(domain.RoomID("X"), ack.RoomID)
}

func TestPresence(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, nil, nil)
	token, alice := s.login(t, "alice")

	code, body := s.do(t, http.MethodGet, "/api/presence", nil, nil)
	req.Equal(http.StatusOK, code)
	req.EqualValues(0, body["count"])

	// Two sockets of one user count once
	a1 := s.dial(t, token)
	next(t, a1, core.EventUserOnline)
	a2 := s.dial(t, token)
	next(t, a2, core.EventUserOnline)

	code, body = s.do(t, http.MethodGet, "/api/presence", nil, nil)
	req.Equal(http.StatusOK, code)
	req.EqualValues(1, body["count"])
	users := body["users"].([]any)
	req.Equal(string(alice.ID), users[0].(map[string]any)["id"])
}

func TestLogin_SignFailure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	issuer := mocks.NewMockIssuer(ctrl)
	issuer.EXPECT().Sign(gomock.Any()).Return("", errors.New("no key"))
	s := newTestServerWith(t, serverDeps{issuer: issuer})

	code, body := s.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice"}, nil)
	req.Equal(http.StatusInternalServerError, code)
	req.Equal("token error", body["error"])
}
