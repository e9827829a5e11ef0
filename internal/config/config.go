package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Source SourceConfig
	Speech SpeechConfig
	HTTP   HTTPConfig
}

// SourceConfig picks which broadcast to watch and how to poll it.
type SourceConfig struct {
	VideoID        string
	Channel        string
	APIKey         string
	APIKeyFile     string
	PollIntervalMS int
}

type SpeechConfig struct {
	Engine        string
	Voice         string
	CloudKey      string
	CloudKeyFile  string
	CloudModel    string
	CloudVoice    string
	CloudEndpoint string
	ScratchDir    string
}

type HTTPConfig struct {
	Enabled        bool
	Addr           string
	CORSOrigins    []string
	RateLimitRPS   int
	RateLimitBurst int
	AccessLog      bool
	RingSize       int
}

const (
	defaultPollMS   = 3000
	defaultEngine   = "local"
	defaultHTTPAddr = ":8787"
	defaultRingSize = 256
)

func Load() Config {
	cfg := Config{}

	cfg.Source.VideoID = strings.TrimSpace(os.Getenv("LIVETTS_VIDEO_ID"))
	cfg.Source.Channel = strings.TrimSpace(os.Getenv("LIVETTS_CHANNEL"))
	cfg.Source.APIKey = strings.TrimSpace(os.Getenv("LIVETTS_YT_API_KEY"))
	if cfg.Source.APIKey == "" {
		cfg.Source.APIKey = strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY"))
	}
	cfg.Source.APIKeyFile = strings.TrimSpace(os.Getenv("LIVETTS_YT_API_KEY_FILE"))
	cfg.Source.PollIntervalMS = readInt("LIVETTS_POLL_INTERVAL_MS", defaultPollMS)

	cfg.Speech.Engine = strings.ToLower(strings.TrimSpace(os.Getenv("LIVETTS_ENGINE")))
	if cfg.Speech.Engine == "" {
		cfg.Speech.Engine = defaultEngine
	}
	cfg.Speech.Voice = strings.TrimSpace(os.Getenv("LIVETTS_VOICE"))
	cfg.Speech.CloudKey = strings.TrimSpace(os.Getenv("LIVETTS_OPENAI_API_KEY"))
	if cfg.Speech.CloudKey == "" {
		cfg.Speech.CloudKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	cfg.Speech.CloudKeyFile = strings.TrimSpace(os.Getenv("LIVETTS_OPENAI_API_KEY_FILE"))
	cfg.Speech.CloudModel = strings.TrimSpace(os.Getenv("LIVETTS_CLOUD_MODEL"))
	cfg.Speech.CloudVoice = strings.TrimSpace(os.Getenv("LIVETTS_CLOUD_VOICE"))
	cfg.Speech.CloudEndpoint = strings.TrimSpace(os.Getenv("LIVETTS_CLOUD_ENDPOINT"))
	cfg.Speech.ScratchDir = strings.TrimSpace(os.Getenv("LIVETTS_SCRATCH_DIR"))

	cfg.HTTP.Addr = strings.TrimSpace(os.Getenv("LIVETTS_HTTP_ADDR"))
	cfg.HTTP.Enabled = readBool("LIVETTS_HTTP_ENABLED", cfg.HTTP.Addr != "")
	if cfg.HTTP.Enabled && cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = defaultHTTPAddr
	}
	cfg.HTTP.CORSOrigins = splitList(os.Getenv("LIVETTS_HTTP_CORS_ORIGINS"))
	cfg.HTTP.RateLimitRPS = readInt("LIVETTS_HTTP_RATE_RPS", 0)
	cfg.HTTP.RateLimitBurst = readInt("LIVETTS_HTTP_RATE_BURST", 0)
	cfg.HTTP.AccessLog = readBool("LIVETTS_HTTP_ACCESS_LOG", false)
	cfg.HTTP.RingSize = readInt("LIVETTS_HTTP_RING_SIZE", defaultRingSize)

	return cfg
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func readInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n <= 0 {
		return def
	}
	return n
}

func readBool(name string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// PollInterval returns the configured poll cadence.
func (c Config) PollInterval() time.Duration {
	if c.Source.PollIntervalMS <= 0 {
		return defaultPollMS * time.Millisecond
	}
	return time.Duration(c.Source.PollIntervalMS) * time.Millisecond
}

func (c Config) Redacted() map[string]any {
	return map[string]any{
		"source": map[string]any{
			"video_id":         c.Source.VideoID,
			"channel":          c.Source.Channel,
			"api_key":          redactString(c.Source.APIKey),
			"api_key_file":     c.Source.APIKeyFile,
			"poll_interval_ms": c.Source.PollIntervalMS,
		},
		"speech": map[string]any{
			"engine":         c.Speech.Engine,
			"voice":          c.Speech.Voice,
			"cloud_key":      redactString(c.Speech.CloudKey),
			"cloud_key_file": c.Speech.CloudKeyFile,
			"cloud_model":    c.Speech.CloudModel,
			"cloud_voice":    c.Speech.CloudVoice,
			"cloud_endpoint": c.Speech.CloudEndpoint,
			"scratch_dir":    c.Speech.ScratchDir,
		},
		"http": map[string]any{
			"enabled":          c.HTTP.Enabled,
			"addr":             c.HTTP.Addr,
			"cors_origins":     append([]string(nil), c.HTTP.CORSOrigins...),
			"rate_limit_rps":   c.HTTP.RateLimitRPS,
			"rate_limit_burst": c.HTTP.RateLimitBurst,
			"access_log":       c.HTTP.AccessLog,
			"ring_size":        c.HTTP.RingSize,
		},
	}
}

func (c Config) RedactedJSON() []byte {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return data
}

func redactString(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "***REDACTED*** (len=" + strconv.Itoa(len(value)) + ")"
}
