package ytchat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Resolver locates the active live broadcast for a channel ID or username.
// It performs at most two sequential lookups and is invoked once, before a
// Session is constructed.
type Resolver struct {
	http *http.Client
	base string
	key  KeyProvider
}

// NewResolver creates a resolver. If client is nil a default client with a
// sane timeout is used. baseURL defaults to the Data API root.
func NewResolver(client *http.Client, baseURL string, key KeyProvider) (*Resolver, error) {
	if key == nil || strings.TrimSpace(key.APIKey()) == "" {
		return nil, ErrMissingCredential
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Resolver{http: client, base: base, key: key}, nil
}

// Resolve maps a channel ID or username to the video ID of its active live
// broadcast. Inputs without the canonical "UC" prefix are treated as
// usernames and resolved to a channel ID first.
func (r *Resolver) Resolve(ctx context.Context, channel string) (string, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return "", errors.New("ytchat: empty channel")
	}

	channelID := channel
	if !strings.HasPrefix(channel, "UC") {
		id, err := r.channelIDByUsername(ctx, channel)
		if err != nil {
			return "", err
		}
		channelID = id
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("channelId", channelID)
	q.Set("eventType", "live")
	q.Set("type", "video")
	q.Set("key", r.key.APIKey())

	body, err := r.get(ctx, r.base+"/search?"+q.Encode())
	if err != nil {
		return "", errors.Wrap(err, "ytchat: live search")
	}

	var resp struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, "ytchat: decode live search response")
	}
	if len(resp.Items) == 0 || resp.Items[0].ID.VideoID == "" {
		return "", ErrNoLiveStream
	}

	videoID := resp.Items[0].ID.VideoID
	slog.Info("ytchat: resolved live broadcast", "channel", channel, "video", videoID)
	return videoID, nil
}

func (r *Resolver) channelIDByUsername(ctx context.Context, username string) (string, error) {
	q := url.Values{}
	q.Set("part", "id")
	q.Set("forUsername", username)
	q.Set("key", r.key.APIKey())

	body, err := r.get(ctx, r.base+"/channels?"+q.Encode())
	if err != nil {
		return "", errors.Wrap(err, "ytchat: channel lookup")
	}

	var resp struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, "ytchat: decode channel lookup response")
	}
	if len(resp.Items) == 0 || resp.Items[0].ID == "" {
		return "", ErrChannelNotFound
	}
	return resp.Items[0].ID, nil
}

func (r *Resolver) get(ctx context.Context, rawURL string) ([]byte, error) {
	return fetchBody(ctx, r.http, rawURL)
}
