package ytchat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewResolverRequiresKey(t *testing.T) {
	if _, err := NewResolver(nil, "", nil); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestResolveChannelID(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/search":
			if got := r.URL.Query().Get("channelId"); got != "UCabc123" {
				t.Errorf("expected channelId=UCabc123, got %q", got)
			}
			if got := r.URL.Query().Get("eventType"); got != "live" {
				t.Errorf("expected eventType=live, got %q", got)
			}
			fmt.Fprint(w, `{"items":[{"id":{"videoId":"vid-99"}}]}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	r, err := NewResolver(nil, srv.URL, StaticKey("k"))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	videoID, err := r.Resolve(context.Background(), "UCabc123")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if videoID != "vid-99" {
		t.Fatalf("expected vid-99, got %q", videoID)
	}
	// a canonical channel ID must skip the username lookup
	if len(paths) != 1 {
		t.Fatalf("expected 1 request, got %v", paths)
	}
}

func TestResolveUsernameLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels":
			if got := r.URL.Query().Get("forUsername"); got != "somecreator" {
				t.Errorf("expected forUsername=somecreator, got %q", got)
			}
			fmt.Fprint(w, `{"items":[{"id":"UCresolved"}]}`)
		case "/search":
			if got := r.URL.Query().Get("channelId"); got != "UCresolved" {
				t.Errorf("expected channelId=UCresolved, got %q", got)
			}
			fmt.Fprint(w, `{"items":[{"id":{"videoId":"vid-5"}}]}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	r, err := NewResolver(nil, srv.URL, StaticKey("k"))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	videoID, err := r.Resolve(context.Background(), "somecreator")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if videoID != "vid-5" {
		t.Fatalf("expected vid-5, got %q", videoID)
	}
}

func TestResolveUnknownUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	r, err := NewResolver(nil, srv.URL, StaticKey("k"))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "nobody"); !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestResolveNoLiveStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	r, err := NewResolver(nil, srv.URL, StaticKey("k"))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "UCquiet"); !errors.Is(err, ErrNoLiveStream) {
		t.Fatalf("expected ErrNoLiveStream, got %v", err)
	}
}
