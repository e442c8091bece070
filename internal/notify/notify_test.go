package notify

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}

	r.Register("u1", addr)
	r.Register("u2", addr)
	if got := len(r.Snapshot()); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	// re-registering replaces, not duplicates
	r.Register("u1", addr)
	if got := len(r.Snapshot()); got != 2 {
		t.Fatalf("expected 2 clients after re-register, got %d", got)
	}

	// junk registrations are ignored
	r.Register("", addr)
	r.Register("u3", nil)
	if got := len(r.Snapshot()); got != 2 {
		t.Fatalf("expected junk to be ignored, got %d", got)
	}

	r.Remove("u1")
	if got := len(r.Snapshot()); got != 1 {
		t.Fatalf("expected 1 client after remove, got %d", got)
	}
}

func TestParseRegisterMessage(t *testing.T) {
	msg, err := parseRegisterMessage([]byte(`{"type":"register","user_id":"u1"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Type != RegisterMessageType || msg.UserID != "u1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	for _, raw := range []string{
		`not json`,
		`{}`,
		`{"type":"register"}`,
		`{"user_id":"u1"}`,
	} {
		if _, err := parseRegisterMessage([]byte(raw)); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestServerRegisterAndBroadcast(t *testing.T) {
	registry := NewRegistry()
	srv := NewServer("127.0.0.1:0", registry, zap.NewNop())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	var serverAddr *net.UDPAddr
	for {
		if a := srv.LocalAddr(); a != nil {
			serverAddr = a.(*net.UDPAddr)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server did not bind in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("client socket: %v", err)
	}
	defer client.Close()

	// garbage is skipped, a valid register lands in the registry
	if _, err := client.WriteToUDP([]byte("garbage"), serverAddr); err != nil {
		t.Fatalf("send garbage: %v", err)
	}
	if _, err := client.WriteToUDP([]byte(`{"type":"register","user_id":"u1"}`), serverAddr); err != nil {
		t.Fatalf("send register: %v", err)
	}
	for len(registry.Snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("registration did not land in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	srv.BroadcastNewChapter("c1", 4, "The Drop")

	buf := make([]byte, 2048)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := client.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read announcement: %v", err)
	}
	var msg NewChapterMessage
	if err := json.Unmarshal(buf[:n], &msg); err != nil {
		t.Fatalf("decode announcement: %v", err)
	}
	if msg.Type != NewChapterMessageType || msg.ComicID != "c1" || msg.ChapterNumber != 4 {
		t.Fatalf("unexpected announcement %+v", msg)
	}
	if msg.Title != "The Drop" {
		t.Fatalf("unexpected title %q", msg.Title)
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("run returned %v", err)
	}
}
