package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
	"github.com/ecoquest/ecoquest/internal/quest"
)

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestHuntWS(t *testing.T) {
	r := setupRouter(t, nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	h := mustCreateHunt(t, r, "u1", "pollinator-hunt")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/hunts/" + h.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	var msg wsEnvelope
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Type != "snapshot" {
		t.Fatalf("type = %q, want snapshot", msg.Type)
	}
	var snap ecoquest.Hunt
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ID != h.ID {
		t.Errorf("snapshot id = %q, want %q", snap.ID, h.ID)
	}

	rec := do(t, r, http.MethodPost, "/api/hunts/"+h.ID+"/stops/"+h.Stops[0].ID+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d", rec.Code)
	}

	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Type != quest.EventStopCompleted {
		t.Fatalf("type = %q, want %s", msg.Type, quest.EventStopCompleted)
	}
	var e quest.Event
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if e.StopID != h.Stops[0].ID || e.PointsEarned != h.Stops[0].Points {
		t.Errorf("event = %+v", e)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestHuntWSUnknownHunt(t *testing.T) {
	r := setupRouter(t, nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/hunts/nope/ws"
	_, resp, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("response = %v, want 404", resp)
	}
}
