package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo_webapp/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type staticAuth map[string]int64

func (a staticAuth) Authenticate(_ context.Context, token string) (domain.Session, error) {
	if id, ok := a[token]; ok {
		return domain.NewSession(id), nil
	}
	return domain.Anonymous(), errors.New("invalid token")
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws", HandleWS(hub, staticAuth{"alice": 1, "bob": 2}, ""))
	srv := httptest.NewServer(r)
	defer srv.Close()

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	if env := readEnvelope(t, alice); env.Type != MsgReady {
		t.Fatalf("expected ready, got %q", env.Type)
	}
	if env := readEnvelope(t, bob); env.Type != MsgReady {
		t.Fatalf("expected ready, got %q", env.Type)
	}

	hub.Notify(context.Background(), 1, domain.Notification{Title: "Task Added", Severity: domain.SeverityDefault})
	hub.PublishInvalidate(context.Background(), 1)
	hub.PublishInvalidate(context.Background(), 2)

	env := readEnvelope(t, alice)
	if env.Type != MsgNotification || env.Notification == nil || env.Notification.Title != "Task Added" {
		t.Fatalf("unexpected frame for alice: %+v", env)
	}
	if env := readEnvelope(t, alice); env.Type != MsgInvalidate {
		t.Fatalf("expected invalidate for alice, got %q", env.Type)
	}
	if env := readEnvelope(t, bob); env.Type != MsgInvalidate {
		t.Fatalf("bob must only see his own invalidate, got %q", env.Type)
	}
}

func TestHandleWSRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", HandleWS(NewHub(), staticAuth{}, ""))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestPingGetsPong(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws", HandleWS(hub, staticAuth{"alice": 1}, ""))
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dial(t, srv, "alice")
	readEnvelope(t, conn)

	if err := conn.WriteJSON(map[string]string{"type": MsgPing}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if env := readEnvelope(t, conn); env.Type != MsgPong {
		t.Fatalf("expected pong, got %q", env.Type)
	}
}

func TestReadyIsFirstFrameWhileNotifying(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws", HandleWS(hub, staticAuth{"alice": 1}, ""))
	srv := httptest.NewServer(r)
	defer srv.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				hub.PublishInvalidate(context.Background(), 1)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	for i := 0; i < 5; i++ {
		conn := dial(t, srv, "alice")
		if env := readEnvelope(t, conn); env.Type != MsgReady {
			t.Fatalf("connection %d: expected ready first, got %q", i, env.Type)
		}
		_ = conn.Close()
	}
}

func TestUnregisterTwiceIsSafe(t *testing.T) {
	hub := NewHub()
	c := &Client{UserID: 7, Send: make(chan []byte, 1), Hub: hub}
	hub.Register(c)

	hub.Unregister(c)
	hub.Unregister(c)
	hub.PublishInvalidate(context.Background(), 7)

	if n := hub.Connections(7); n != 0 {
		t.Fatalf("expected no connections, got %d", n)
	}
	if _, ok := <-c.Send; ok {
		t.Fatalf("expected Send to be closed")
	}
}
