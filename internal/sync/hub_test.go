package sync

import (
	"bufio"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	server, client := net.Pipe()
	defer client.Close()
	h.Add(server)

	lines := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(client)
		if sc.Scan() {
			lines <- sc.Text()
		}
	}()

	h.BroadcastJSON(ProgressEvent{
		Type:       "progress.update",
		UserID:     "u1",
		ComicID:    "c1",
		PageNumber: 3,
		At:         time.Now().UTC(),
	})

	select {
	case line := <-lines:
		var ev ProgressEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Type != "progress.update" || ev.ComicID != "c1" || ev.PageNumber != 3 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}

	if h.Count() != 1 {
		t.Fatalf("expected client still registered, count %d", h.Count())
	}
}

func TestHubDropsDeadConnections(t *testing.T) {
	h := NewHub()
	server, client := net.Pipe()
	h.Add(server)
	client.Close()
	server.Close()

	h.BroadcastJSON(ProgressEvent{Type: "progress.update", ComicID: "c1"})

	if h.Count() != 0 {
		t.Fatalf("expected dead connection swept, count %d", h.Count())
	}
	if s := h.Stats(); s.TCPClients != 0 || s.WSClients != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestHubWelcome(t *testing.T) {
	h := NewHub()
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	h.Add(server)

	go h.Welcome(server)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	sc := bufio.NewScanner(client)
	if !sc.Scan() {
		t.Fatalf("no welcome line: %v", sc.Err())
	}
	if !strings.Contains(sc.Text(), `"welcome"`) {
		t.Fatalf("unexpected welcome %q", sc.Text())
	}
}

func TestServerAcceptAndFanOut(t *testing.T) {
	h := NewHub()
	srv := NewServer("127.0.0.1:0", h, zap.NewNop())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	var addr string
	deadline := time.Now().Add(2 * time.Second)
	for {
		srv.mu.Lock()
		ln := srv.ln
		srv.mu.Unlock()
		if ln != nil {
			addr = ln.Addr().String()
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server did not bind in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the welcome line confirms the hub registered us
	sc := bufio.NewScanner(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if !sc.Scan() {
		t.Fatalf("no welcome: %v", sc.Err())
	}
	if !strings.Contains(sc.Text(), `"welcome"`) {
		t.Fatalf("unexpected first line %q", sc.Text())
	}

	h.BroadcastJSON(ChapterEvent{
		Type:          "chapter.new",
		ComicID:       "c1",
		ChapterNumber: 12,
		Title:         "Landfall",
		At:            time.Now().UTC(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if !sc.Scan() {
		t.Fatalf("no event: %v", sc.Err())
	}
	var ev ChapterEvent
	if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.ComicID != "c1" || ev.ChapterNumber != 12 {
		t.Fatalf("unexpected event %+v", ev)
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("run returned %v", err)
	}
}
