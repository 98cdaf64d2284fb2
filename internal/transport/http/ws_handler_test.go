package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pack1703/packchat/internal/core"
)

func dialChannel(t *testing.T, ts *httptest.Server, channelID, token string) *websocket.Conn {
	t.Helper()

	url := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws/channels/" + channelID
	if token != "" {
		url += "?token=" + token
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

// readSnapshot reads frames until a snapshot arrives.
func readSnapshot(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var out Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if out.Type == "snapshot" {
			return out
		}
	}
}

func TestStreamDeliversInitialSnapshot(t *testing.T) {
	fx := newTestFixture(t)
	ts := httptest.NewServer(fx.router)
	defer ts.Close()

	token := tokenFor(t, "p1", "Jordan", core.RoleParent)
	if resp := postMessage(t, fx, token, "general", "already here"); resp.Code != 201 {
		t.Fatalf("seed post failed: %d", resp.Code)
	}

	conn := dialChannel(t, ts, "general", token)
	snapshot := readSnapshot(t, conn)
	if len(snapshot.Messages) != 1 || snapshot.Messages[0].Content != "already here" {
		t.Fatalf("unexpected initial snapshot: %+v", snapshot.Messages)
	}
}

func TestStreamRoundTrip(t *testing.T) {
	fx := newTestFixture(t)
	ts := httptest.NewServer(fx.router)
	defer ts.Close()

	token := tokenFor(t, "p1", "Jordan", core.RoleParent)
	conn := dialChannel(t, ts, "general", token)
	readSnapshot(t, conn) // initial snapshot, empty channel

	data, _ := json.Marshal(MessageData{Content: "hello over the wire"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, Inbound{Type: InboundTypeMessage, Data: data}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		snapshot := readSnapshot(t, conn)
		if len(snapshot.Messages) == 1 && snapshot.Messages[0].Content == "hello over the wire" {
			if snapshot.Messages[0].SenderName != "Jordan" {
				t.Fatalf("unexpected sender: %+v", snapshot.Messages[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("message never arrived in snapshot: %+v", snapshot.Messages)
		}
	}
}

func TestStreamRejectsUnknownFrame(t *testing.T) {
	fx := newTestFixture(t)
	ts := httptest.NewServer(fx.router)
	defer ts.Close()

	conn := dialChannel(t, ts, "general", tokenFor(t, "p1", "Jordan", core.RoleParent))
	readSnapshot(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, Inbound{Type: "bogus"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	for {
		var out Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if out.Type == "error" {
			if out.Error == nil || out.Error.Code != core.ErrCodeBadRequest {
				t.Fatalf("unexpected error frame: %+v", out.Error)
			}
			return
		}
	}
}

func TestStreamMarksUserOnline(t *testing.T) {
	fx := newTestFixture(t)
	ts := httptest.NewServer(fx.router)
	defer ts.Close()

	conn := dialChannel(t, ts, "general", tokenFor(t, "p1", "Jordan", core.RoleParent))
	readSnapshot(t, conn)

	deadline := time.Now().Add(2 * time.Second)
	for {
		u, err := fx.store.GetUser(context.Background(), "p1")
		if err == nil && u.Online {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("user never marked online: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
