package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-app/internal/models"
	"chat-app/internal/presence"
)

type staticVerifier map[string]int

func (s staticVerifier) Verify(token string) (models.Identity, error) {
	id, ok := s[token]
	if !ok {
		return models.Identity{}, errors.New("bad token")
	}
	return models.Identity{UserID: id, Role: models.RoleUser}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub, *presence.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := presence.NewRegistry()
	hub := NewHub(reg)
	handler := NewConnectionHandler(hub, staticVerifier{"tok-7": 7}, []string{"http://localhost:5173"})

	router := gin.New()
	router.GET("/ws", handler.Handle)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub, reg
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func TestHandshakeRejectsMissingOrBadToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "?token=nope"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandshakeRejectsForeignOrigin(t *testing.T) {
	srv, _, _ := newTestServer(t)
	header := http.Header{"Origin": []string{"http://evil.test"}}

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=tok-7"), header)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestConnectionLifecycleAndPush(t *testing.T) {
	srv, hub, reg := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=tok-7"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return reg.IsOnline(7) }, time.Second, 10*time.Millisecond)

	var online models.ChatEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&online))
	assert.Equal(t, models.EventOnlineUsers, online.Type)
	assert.Equal(t, []int{7}, online.OnlineUsers)

	msg := newMessage(11, 3, 7, "over the wire")
	require.Equal(t, 1, hub.Push(7, msg))

	var got models.ChatEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, models.EventNewMessage, got.Type)
	require.NotNil(t, got.Message)
	assert.Equal(t, msg.ID, got.Message.ID)
	assert.Equal(t, msg.Text, got.Message.Text)
	assert.True(t, msg.CreatedAt.Equal(got.Message.CreatedAt))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !reg.IsOnline(7) }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://a.test"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://A.test")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://b.test")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
