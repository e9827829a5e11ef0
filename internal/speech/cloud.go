package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/you/livetts/internal/audio"
)

// DefaultCloudEndpoint is the OpenAI speech synthesis endpoint.
const DefaultCloudEndpoint = "https://api.openai.com/v1/audio/speech"

const (
	defaultCloudModel   = "tts-1"
	defaultCloudVoice   = "alloy"
	defaultCloudTimeout = 60 * time.Second
)

// mp3Player is the playback capability the engine needs; satisfied by
// *audio.Player.
type mp3Player interface {
	PlayMP3(ctx context.Context, data []byte) error
}

// CloudConfig parameterizes the cloud synthesis engine.
type CloudConfig struct {
	Key        KeyProvider
	Model      string
	Voice      string
	Endpoint   string
	ScratchDir string
	HTTPClient *http.Client
	Player     mp3Player // default: a real audio.Player
}

// CloudSynthesis sends text to a remote synthesis endpoint and plays the
// returned audio to natural completion. Unlike the local engine it does not
// estimate playback length: the audio stream itself provides the exact
// end-of-playback signal.
type CloudSynthesis struct {
	http       *http.Client
	key        KeyProvider
	model      string
	voice      string
	endpoint   string
	scratchDir string
	player     mp3Player
}

type synthesisRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// NewCloudSynthesis validates the credential before any network activity
// and prepares a scratch directory for diagnostic audio dumps.
func NewCloudSynthesis(cfg CloudConfig) (*CloudSynthesis, error) {
	if cfg.Key == nil || strings.TrimSpace(cfg.Key.APIKey()) == "" {
		return nil, ErrMissingCredential
	}

	scratch := cfg.ScratchDir
	if scratch == "" {
		dir, err := os.MkdirTemp("", "livetts-")
		if err != nil {
			return nil, errors.Wrap(err, "speech: create scratch dir")
		}
		scratch = dir
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultCloudTimeout}
	}
	model := cfg.Model
	if model == "" {
		model = defaultCloudModel
	}
	voice := cfg.Voice
	if voice == "" {
		voice = defaultCloudVoice
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultCloudEndpoint
	}
	player := cfg.Player
	if player == nil {
		player = audio.NewPlayer()
	}

	return &CloudSynthesis{
		http:       client,
		key:        cfg.Key,
		model:      model,
		voice:      voice,
		endpoint:   endpoint,
		scratchDir: scratch,
		player:     player,
	}, nil
}

// Name identifies the engine in logs and the status API.
func (e *CloudSynthesis) Name() string { return "cloud-synthesis" }

// Utter synthesizes text remotely and blocks until playback finishes. The
// audio payload is written to a scratch file for traceability, played from
// memory, and the file removed best-effort afterwards.
func (e *CloudSynthesis) Utter(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	data, err := e.synthesize(ctx, text)
	if err != nil {
		return err
	}

	scratch := filepath.Join(e.scratchDir, fmt.Sprintf("utterance_%d.mp3", time.Now().UnixMilli()))
	if err := os.WriteFile(scratch, data, 0o644); err != nil {
		// Traceability only; playback proceeds from memory regardless.
		slog.Warn("speech: write scratch file", "path", scratch, "err", err)
		scratch = ""
	}

	playErr := e.player.PlayMP3(ctx, data)

	if scratch != "" {
		if err := os.Remove(scratch); err != nil {
			slog.Warn("speech: remove scratch file", "path", scratch, "err", err)
		}
	}
	return playErr
}

func (e *CloudSynthesis) synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(synthesisRequest{
		Model:          e.model,
		Input:          text,
		Voice:          e.voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, errors.Wrap(err, "speech: encode synthesis request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "speech: build synthesis request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.key.APIKey())

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "speech: synthesis request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, &ProviderError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "speech: read synthesis response")
	}
	slog.Debug("speech: received audio", "bytes", len(data))
	return data, nil
}
