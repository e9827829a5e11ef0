package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

type stubPlayer struct {
	played [][]byte
	err    error
}

func (p *stubPlayer) PlayMP3(_ context.Context, data []byte) error {
	p.played = append(p.played, data)
	return p.err
}

func TestNewCloudSynthesisRequiresKey(t *testing.T) {
	if _, err := NewCloudSynthesis(CloudConfig{}); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential for nil key, got %v", err)
	}
	if _, err := NewCloudSynthesis(CloudConfig{Key: StaticKey(" ")}); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential for blank key, got %v", err)
	}
}

func TestCloudSynthesisRequestShape(t *testing.T) {
	var (
		gotAuth string
		gotBody synthesisRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	player := &stubPlayer{}
	e, err := NewCloudSynthesis(CloudConfig{
		Key:        StaticKey("sk-test"),
		Model:      "tts-1-hd",
		Voice:      "nova",
		Endpoint:   srv.URL,
		ScratchDir: t.TempDir(),
		Player:     player,
	})
	if err != nil {
		t.Fatalf("NewCloudSynthesis: %v", err)
	}

	if err := e.Utter(context.Background(), "hello world"); err != nil {
		t.Fatalf("Utter: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	want := synthesisRequest{Model: "tts-1-hd", Input: "hello world", Voice: "nova", ResponseFormat: "mp3"}
	if gotBody != want {
		t.Fatalf("expected request %+v, got %+v", want, gotBody)
	}
	if len(player.played) != 1 || string(player.played[0]) != "mp3-bytes" {
		t.Fatalf("expected audio played once, got %v", player.played)
	}
}

func TestCloudSynthesisDefaults(t *testing.T) {
	var gotBody synthesisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	e, err := NewCloudSynthesis(CloudConfig{
		Key:        StaticKey("k"),
		Endpoint:   srv.URL,
		ScratchDir: t.TempDir(),
		Player:     &stubPlayer{},
	})
	if err != nil {
		t.Fatalf("NewCloudSynthesis: %v", err)
	}
	if err := e.Utter(context.Background(), "hi"); err != nil {
		t.Fatalf("Utter: %v", err)
	}
	if gotBody.Model != "tts-1" || gotBody.Voice != "alloy" {
		t.Fatalf("expected defaults tts-1/alloy, got %s/%s", gotBody.Model, gotBody.Voice)
	}
}

func TestCloudSynthesisProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	player := &stubPlayer{}
	e, err := NewCloudSynthesis(CloudConfig{
		Key:        StaticKey("k"),
		Endpoint:   srv.URL,
		ScratchDir: t.TempDir(),
		Player:     player,
	})
	if err != nil {
		t.Fatalf("NewCloudSynthesis: %v", err)
	}

	err = e.Utter(context.Background(), "hi")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", provErr.Status)
	}
	if len(player.played) != 0 {
		t.Fatal("nothing must be played on a provider error")
	}
}

func TestCloudSynthesisRemovesScratchFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	scratch := t.TempDir()
	e, err := NewCloudSynthesis(CloudConfig{
		Key:        StaticKey("k"),
		Endpoint:   srv.URL,
		ScratchDir: scratch,
		Player:     &stubPlayer{},
	})
	if err != nil {
		t.Fatalf("NewCloudSynthesis: %v", err)
	}
	if err := e.Utter(context.Background(), "hi"); err != nil {
		t.Fatalf("Utter: %v", err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir cleaned up, found %d entries", len(entries))
	}
}

func TestCloudSynthesisEmptyTextIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty text")
	}))
	defer srv.Close()

	e, err := NewCloudSynthesis(CloudConfig{
		Key:        StaticKey("k"),
		Endpoint:   srv.URL,
		ScratchDir: t.TempDir(),
		Player:     &stubPlayer{},
	})
	if err != nil {
		t.Fatalf("NewCloudSynthesis: %v", err)
	}
	if err := e.Utter(context.Background(), "   "); err != nil {
		t.Fatalf("Utter: %v", err)
	}
}
