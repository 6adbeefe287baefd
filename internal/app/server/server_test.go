package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grouprpg/sheetbot/internal/transport"
)

type stubDispatcher struct {
	mu      sync.Mutex
	handled []transport.Inbound
	replies []transport.Message
	err     error
}

func (d *stubDispatcher) Handle(ctx context.Context, msg transport.Inbound) ([]transport.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handled = append(d.handled, msg)
	return d.replies, d.err
}

type recordingSender struct {
	mu    sync.Mutex
	sends map[string][]transport.Message
}

func (s *recordingSender) Send(ctx context.Context, toUserID, chatID string, msgs []transport.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sends == nil {
		s.sends = make(map[string][]transport.Message)
	}
	s.sends[toUserID] = append(s.sends[toUserID], msgs...)
	return nil
}

func newTestServer(t *testing.T, dispatcher Dispatcher, sender transport.Sender, webhookKey string) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New("127.0.0.1:0", dispatcher, sender, t.TempDir(), webhookKey, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = s.listener.Close() })

	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestWebhookDispatchesAndSends(t *testing.T) {
	dispatcher := &stubDispatcher{replies: []transport.Message{{Body: "Hallo"}}}
	sender := &recordingSender{}
	_, ts := newTestServer(t, dispatcher, sender, "")

	payload := `{"messages":[
		{"type":"text","from":"max","chatId":"c1","body":"Anzeigen"},
		{"type":"text","from":"bob","chatId":"c2","body":"Liste"}
	]}`
	resp, err := http.Post(ts.URL+"/incoming", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	dispatcher.mu.Lock()
	handled := len(dispatcher.handled)
	dispatcher.mu.Unlock()
	if handled != 2 {
		t.Errorf("dispatched %d messages, want 2", handled)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sends["max"]) != 1 || len(sender.sends["bob"]) != 1 {
		t.Errorf("sends = %v", sender.sends)
	}
}

func TestWebhookRejectsBadKeyAndPayload(t *testing.T) {
	dispatcher := &stubDispatcher{}
	_, ts := newTestServer(t, dispatcher, &recordingSender{}, "secret")

	resp, err := http.Post(ts.URL+"/incoming", "application/json", strings.NewReader(`{"messages":[]}`))
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing key status = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/incoming", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Api-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad payload status = %d, want 400", resp.StatusCode)
	}
}

func TestPictureEndpointServesBareNamesOnly(t *testing.T) {
	s, ts := newTestServer(t, &stubDispatcher{}, &recordingSender{}, "")

	if err := os.WriteFile(filepath.Join(s.pictureDir, "max-1.jpg"), []byte("jpeg-bytes"), 0o600); err != nil {
		t.Fatalf("write picture: %v", err)
	}

	resp, err := http.Get(ts.URL + "/picture/max-1.jpg")
	if err != nil {
		t.Fatalf("get picture: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("picture status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/picture/.hidden")
	if err != nil {
		t.Fatalf("get hidden: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("hidden file status = %d, want 404", resp.StatusCode)
	}
}

func TestServeStopsOnContext(t *testing.T) {
	s, err := New("127.0.0.1:0", &stubDispatcher{}, &recordingSender{}, t.TempDir(), "", nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(ctx) }()

	url := fmt.Sprintf("http://%s/healthz", s.Addr())
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}

func TestUserLocksSerializePerUser(t *testing.T) {
	var locks userLocks

	unlock := locks.lock("max")
	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		u := locks.lock("max")
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	// A different user must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		u := locks.lock("bob")
		u()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct users blocked each other")
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released")
	}
}
