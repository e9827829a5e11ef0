package ytchat

import "errors"

var (
	// ErrMissingCredential is returned when a session or resolver is
	// constructed without an API key.
	ErrMissingCredential = errors.New("ytchat: API key is required")

	// ErrNotLive is returned from discovery when the target video has no
	// active live chat (ended, not live, or invalid ID).
	ErrNotLive = errors.New("ytchat: video is not live or has no active chat")

	// ErrChannelNotFound is returned when a username lookup yields no channel.
	ErrChannelNotFound = errors.New("ytchat: channel not found")

	// ErrNoLiveStream is returned when a channel has no live broadcast.
	ErrNoLiveStream = errors.New("ytchat: no live stream found for channel")
)
