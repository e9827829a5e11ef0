// Package ytchat polls a YouTube live-chat feed through the Data API v3 and
// hands newly observed messages to a consumer one at a time.
package ytchat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/you/livetts/internal/core"
)

const (
	// DefaultBaseURL is the YouTube Data API v3 root.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	defaultPollInterval = 3000 * time.Millisecond
	defaultHTTPTimeout  = 15 * time.Second
)

// KeyProvider supplies the API key for each request. Implementations may
// swap the key at runtime (see internal/apikey).
type KeyProvider interface {
	APIKey() string
}

// StaticKey is a KeyProvider for a fixed key.
type StaticKey string

// APIKey returns the key itself.
func (k StaticKey) APIKey() string { return string(k) }

// SessionOptions tune a Session. The zero value is usable.
type SessionOptions struct {
	BaseURL      string        // API root override, mainly for tests
	HTTPClient   *http.Client  // transport override; default has a 15s timeout
	PollInterval time.Duration // idle retry interval; default 3000ms
	Metrics      *Metrics      // optional collectors
}

// Session holds the polling state for one live chat: the resolved chat ID,
// the pagination cursor, the delivery watermark, and the messages fetched
// but not yet delivered. Discovery runs exactly once, before the first poll.
type Session struct {
	http    *http.Client
	base    string
	key     KeyProvider
	metrics *Metrics

	mu           sync.Mutex
	videoID      string
	chatID       string // empty until discovery has run
	pageToken    string // empty means "omit the pageToken parameter"
	watermark    time.Time
	pending      []core.ChatMessage
	pollInterval time.Duration
}

// NewSession creates a session for the given video. It fails fast with
// ErrMissingCredential when no API key is available; network activity does
// not start until the first NextMessage call.
func NewSession(videoID string, key KeyProvider, opts SessionOptions) (*Session, error) {
	if key == nil || strings.TrimSpace(key.APIKey()) == "" {
		return nil, ErrMissingCredential
	}
	if strings.TrimSpace(videoID) == "" {
		return nil, errors.New("ytchat: video ID is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Session{
		http:         client,
		base:         base,
		key:          key,
		metrics:      opts.Metrics,
		videoID:      strings.TrimSpace(videoID),
		pollInterval: interval,
	}, nil
}

// SetPollInterval changes the idle retry interval. Non-positive values are
// ignored.
func (s *Session) SetPollInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.pollInterval = d
	s.mu.Unlock()
}

// Status is a point-in-time snapshot for the status API.
type Status struct {
	VideoID   string    `json:"video_id"`
	ChatID    string    `json:"chat_id,omitempty"`
	Watermark time.Time `json:"watermark,omitempty"`
	Pending   int       `json:"pending"`
}

// Snapshot reports the current session state.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		VideoID:   s.videoID,
		ChatID:    s.chatID,
		Watermark: s.watermark,
		Pending:   len(s.pending),
	}
}

// NextMessage blocks until a new chat message is available, sleeping the
// poll interval between empty pages. "No message yet" is never an error.
// Transport failures propagate; the caller decides whether to abort.
func (s *Session) NextMessage(ctx context.Context) (core.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return core.ChatMessage{}, err
	}

	s.mu.Lock()
	discovered := s.chatID != ""
	s.mu.Unlock()
	if !discovered {
		if err := s.discover(ctx); err != nil {
			return core.ChatMessage{}, err
		}
	}

	for {
		if msg, ok := s.popPending(); ok {
			s.metrics.incDelivered()
			return msg, nil
		}

		batch, err := s.fetchPage(ctx)
		if err != nil {
			return core.ChatMessage{}, err
		}

		fresh := s.ingest(batch)
		if len(fresh) > 0 {
			s.mu.Lock()
			s.pending = fresh
			s.mu.Unlock()
			continue
		}

		s.metrics.incEmptyPages()
		s.mu.Lock()
		interval := s.pollInterval
		s.mu.Unlock()
		if !sleepContext(ctx, interval) {
			return core.ChatMessage{}, ctx.Err()
		}
	}
}

func (s *Session) popPending() (core.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return core.ChatMessage{}, false
	}
	msg := s.pending[0]
	s.pending = s.pending[1:]
	return msg, true
}

// discover maps the public video ID to the platform's internal live-chat ID.
// It runs at most once per session.
func (s *Session) discover(ctx context.Context) error {
	q := url.Values{}
	q.Set("part", "liveStreamingDetails")
	q.Set("id", s.videoID)
	q.Set("key", s.key.APIKey())

	body, err := s.get(ctx, s.base+"/videos?"+q.Encode())
	if err != nil {
		return errors.Wrap(err, "ytchat: discovery fetch")
	}

	var resp struct {
		Items []struct {
			LiveStreamingDetails struct {
				ActiveLiveChatID string `json:"activeLiveChatId"`
			} `json:"liveStreamingDetails"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Wrap(err, "ytchat: decode discovery response")
	}
	if len(resp.Items) == 0 {
		return ErrNotLive
	}
	chatID := resp.Items[0].LiveStreamingDetails.ActiveLiveChatID
	if chatID == "" {
		return ErrNotLive
	}

	s.mu.Lock()
	s.chatID = chatID
	s.pageToken = ""
	s.mu.Unlock()
	slog.Info("ytchat: discovered live chat", "video", s.videoID)
	return nil
}

// fetchPage retrieves one page of chat messages. A malformed response body
// is treated as an empty page, never as a fatal error.
func (s *Session) fetchPage(ctx context.Context) ([]core.ChatMessage, error) {
	s.mu.Lock()
	chatID := s.chatID
	token := s.pageToken
	s.mu.Unlock()

	q := url.Values{}
	q.Set("part", "snippet,authorDetails")
	q.Set("liveChatId", chatID)
	q.Set("key", s.key.APIKey())
	if token != "" {
		q.Set("pageToken", token)
	}

	s.metrics.incPolls()
	body, err := s.get(ctx, s.base+"/liveChat/messages?"+q.Encode())
	if err != nil {
		s.metrics.incPollErrors()
		return nil, errors.Wrap(err, "ytchat: poll fetch")
	}

	var page struct {
		NextPageToken string `json:"nextPageToken"`
		Items         []struct {
			ID            string `json:"id"`
			AuthorDetails struct {
				DisplayName string `json:"displayName"`
			} `json:"authorDetails"`
			Snippet struct {
				DisplayMessage string `json:"displayMessage"`
				PublishedAt    string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		slog.Warn("ytchat: malformed poll response, treating as empty page", "err", err)
		s.mu.Lock()
		s.pageToken = ""
		s.mu.Unlock()
		return nil, nil
	}

	// Absence of a token collapses to "no token": the next request omits
	// the parameter entirely.
	s.mu.Lock()
	s.pageToken = page.NextPageToken
	s.mu.Unlock()

	var (
		batch     []core.ChatMessage
		malformed int
	)
	for _, item := range page.Items {
		if item.ID == "" || item.AuthorDetails.DisplayName == "" ||
			item.Snippet.DisplayMessage == "" || item.Snippet.PublishedAt == "" {
			malformed++
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, item.Snippet.PublishedAt)
		if err != nil {
			ts = time.Now().UTC()
		}
		batch = append(batch, core.ChatMessage{
			ID:     item.ID,
			Author: item.AuthorDetails.DisplayName,
			Text:   item.Snippet.DisplayMessage,
			Ts:     ts,
		})
	}
	s.metrics.incMalformed(malformed)
	return batch, nil
}

// ingest drops messages at or below the watermark, orders the survivors
// newest-first, and advances the watermark to the newest survivor. The
// descending order is deliberate: a burst is delivered most recent first.
func (s *Session) ingest(batch []core.ChatMessage) []core.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make([]core.ChatMessage, 0, len(batch))
	replayed := 0
	for _, msg := range batch {
		if !msg.Ts.After(s.watermark) {
			replayed++
			continue
		}
		fresh = append(fresh, msg)
	}
	s.metrics.incReplayed(replayed)
	if len(fresh) == 0 {
		return nil
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Ts.After(fresh[j].Ts)
	})
	if fresh[0].Ts.After(s.watermark) {
		s.watermark = fresh[0].Ts
	}
	return fresh
}

func (s *Session) get(ctx context.Context, rawURL string) ([]byte, error) {
	return fetchBody(ctx, s.http, rawURL)
}

func fetchBody(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
