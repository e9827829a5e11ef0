// Package speech converts chat lines into audible output through a
// swappable synthesis backend, with at most one utterance in flight per
// engine instance.
package speech

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Engine is the capability shared by synthesis backends. Utter is
// synchronous: it returns once playback has finished or failed. The
// Dispatcher provides the asynchronous, non-blocking surface on top.
type Engine interface {
	Name() string
	Utter(ctx context.Context, text string) error
}

// KeyProvider supplies the cloud credential for each request.
// Implementations may swap the key at runtime (see internal/apikey).
type KeyProvider interface {
	APIKey() string
}

// StaticKey is a KeyProvider for a fixed key.
type StaticKey string

// APIKey returns the key itself.
func (k StaticKey) APIKey() string { return string(k) }

// Config selects and parameterizes an engine.
type Config struct {
	Engine string // "local" / "local-voice" or "openai" / "cloud"

	// Local voice engine
	Voice string // substring matched against installed voice names

	// Cloud synthesis engine
	CloudKey      KeyProvider
	CloudModel    string
	CloudVoice    string
	CloudEndpoint string
	ScratchDir    string
}

// NewEngine maps configuration to a concrete engine. Selecting the cloud
// engine without a credential fails here, before any network activity.
func NewEngine(cfg Config) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "local", "local-voice":
		return NewLocalVoice(cfg.Voice)
	case "openai", "cloud":
		return NewCloudSynthesis(CloudConfig{
			Key:        cfg.CloudKey,
			Model:      cfg.CloudModel,
			Voice:      cfg.CloudVoice,
			Endpoint:   cfg.CloudEndpoint,
			ScratchDir: cfg.ScratchDir,
		})
	default:
		return nil, errors.Errorf("speech: unknown engine %q (supported: local, openai)", cfg.Engine)
	}
}
