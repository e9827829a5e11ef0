package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/you/livetts/internal/apikey"
	"github.com/you/livetts/internal/config"
	"github.com/you/livetts/internal/core"
	"github.com/you/livetts/internal/httpapi"
	"github.com/you/livetts/internal/speech"
	"github.com/you/livetts/internal/version"
	"github.com/you/livetts/internal/ytchat"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("speaker: load .env: %v", err)
	}

	var (
		versionFlag     bool
		videoID         string
		channel         string
		ytKey           string
		ytKeyFile       string
		pollIntervalMS  int
		engineName      string
		voice           string
		cloudKeyFile    string
		cloudModel      string
		cloudVoice      string
		cloudEndpoint   string
		httpAddr        string
		httpCorsOrigins string
		httpRateRPS     int
		httpRateBurst   int
		httpAccessLog   bool
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&videoID, "video", "", "YouTube live video ID to watch")
	flag.StringVar(&channel, "channel", "", "YouTube channel ID or username to resolve a live stream from")
	flag.StringVar(&ytKey, "yt-api-key", "", "YouTube Data API key")
	flag.StringVar(&ytKeyFile, "yt-api-key-file", "", "Path to file containing the YouTube Data API key")
	flag.IntVar(&pollIntervalMS, "poll-interval-ms", 0, "Chat poll interval in milliseconds (0 = default)")
	flag.StringVar(&engineName, "engine", "", "Speech engine: local or openai")
	flag.StringVar(&voice, "voice", "", "Local voice name (substring match)")
	flag.StringVar(&cloudKeyFile, "cloud-key-file", "", "Path to file containing the cloud synthesis API key")
	flag.StringVar(&cloudModel, "cloud-model", "", "Cloud synthesis model")
	flag.StringVar(&cloudVoice, "cloud-voice", "", "Cloud synthesis voice")
	flag.StringVar(&cloudEndpoint, "cloud-endpoint", "", "Cloud synthesis endpoint URL")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP status/stream address (e.g., :8787)")
	flag.StringVar(&httpCorsOrigins, "http-cors-origins", "", "Comma-separated list of allowed CORS origins")
	flag.IntVar(&httpRateRPS, "http-rate-rps", 0, "Maximum HTTP requests per second per client (0 = unlimited)")
	flag.IntVar(&httpRateBurst, "http-rate-burst", 0, "Burst size for HTTP rate limiter")
	flag.BoolVar(&httpAccessLog, "http-access-log", false, "Log HTTP access records")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"speaker version: %s (commit %s, built %s)\n",
			version.Version,
			version.Commit,
			version.BuildTime,
		)
		os.Exit(0)
	}

	overrides := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		overrides[f.Name] = true
	})

	cfg := config.Load()

	if overrides["video"] {
		cfg.Source.VideoID = strings.TrimSpace(videoID)
	}
	if overrides["channel"] {
		cfg.Source.Channel = strings.TrimSpace(channel)
	}
	if overrides["yt-api-key"] {
		cfg.Source.APIKey = strings.TrimSpace(ytKey)
	}
	if overrides["yt-api-key-file"] {
		cfg.Source.APIKeyFile = strings.TrimSpace(ytKeyFile)
	}
	if overrides["poll-interval-ms"] && pollIntervalMS > 0 {
		cfg.Source.PollIntervalMS = pollIntervalMS
	}
	if overrides["engine"] {
		cfg.Speech.Engine = strings.ToLower(strings.TrimSpace(engineName))
	}
	if overrides["voice"] {
		cfg.Speech.Voice = strings.TrimSpace(voice)
	}
	if overrides["cloud-key-file"] {
		cfg.Speech.CloudKeyFile = strings.TrimSpace(cloudKeyFile)
	}
	if overrides["cloud-model"] {
		cfg.Speech.CloudModel = strings.TrimSpace(cloudModel)
	}
	if overrides["cloud-voice"] {
		cfg.Speech.CloudVoice = strings.TrimSpace(cloudVoice)
	}
	if overrides["cloud-endpoint"] {
		cfg.Speech.CloudEndpoint = strings.TrimSpace(cloudEndpoint)
	}
	if overrides["http-addr"] {
		cfg.HTTP.Addr = strings.TrimSpace(httpAddr)
		cfg.HTTP.Enabled = cfg.HTTP.Addr != ""
	}
	if overrides["http-cors-origins"] {
		cfg.HTTP.CORSOrigins = nil
		for _, origin := range strings.Split(httpCorsOrigins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.HTTP.CORSOrigins = append(cfg.HTTP.CORSOrigins, origin)
			}
		}
	}
	if overrides["http-rate-rps"] {
		cfg.HTTP.RateLimitRPS = httpRateRPS
	}
	if overrides["http-rate-burst"] {
		cfg.HTTP.RateLimitBurst = httpRateBurst
	}
	if overrides["http-access-log"] {
		cfg.HTTP.AccessLog = httpAccessLog
	}

	if cfg.Source.VideoID == "" && cfg.Source.Channel == "" {
		log.Fatal("speaker: either -video or -channel is required (or LIVETTS_VIDEO_ID / LIVETTS_CHANNEL)")
	}

	log.Printf("%s", cfg.RedactedJSON())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("speaker: received %s, shutting down", sig)
		cancel()
	}()

	ytKeyStore := apikey.NewStore(cfg.Source.APIKey)
	if cfg.Source.APIKeyFile != "" {
		if loaded, err := apikey.ReadFile(cfg.Source.APIKeyFile); err != nil {
			if ytKeyStore.APIKey() == "" {
				log.Fatalf("speaker: read api key file: %v", err)
			}
			log.Printf("speaker: read api key file: %v", err)
		} else {
			ytKeyStore.Set(loaded)
		}
		if err := ytKeyStore.WatchFile(cfg.Source.APIKeyFile); err != nil {
			slog.Error("speaker: watch api key file", "err", err)
		}
	}
	if ytKeyStore.APIKey() == "" {
		log.Fatal("speaker: YouTube API key is required (LIVETTS_YT_API_KEY or -yt-api-key)")
	}

	cloudKeyStore := apikey.NewStore(cfg.Speech.CloudKey)
	if cfg.Speech.CloudKeyFile != "" {
		if loaded, err := apikey.ReadFile(cfg.Speech.CloudKeyFile); err != nil {
			log.Printf("speaker: read cloud key file: %v", err)
		} else {
			cloudKeyStore.Set(loaded)
		}
		if err := cloudKeyStore.WatchFile(cfg.Speech.CloudKeyFile); err != nil {
			slog.Error("speaker: watch cloud key file", "err", err)
		}
	}

	var registry *prometheus.Registry
	if cfg.HTTP.Enabled {
		registry = prometheus.NewRegistry()
	}

	engine, err := speech.NewEngine(speech.Config{
		Engine:        cfg.Speech.Engine,
		Voice:         cfg.Speech.Voice,
		CloudKey:      cloudKeyStore,
		CloudModel:    cfg.Speech.CloudModel,
		CloudVoice:    cfg.Speech.CloudVoice,
		CloudEndpoint: cfg.Speech.CloudEndpoint,
		ScratchDir:    cfg.Speech.ScratchDir,
	})
	if err != nil {
		log.Fatalf("speaker: speech engine: %v", err)
	}
	dispatcher := speech.NewDispatcher(engine, speech.NewMetrics(registry))
	log.Printf("speaker: speech engine ready (%s)", dispatcher.EngineName())

	targetVideo := cfg.Source.VideoID
	if targetVideo == "" {
		resolver, err := ytchat.NewResolver(nil, "", ytKeyStore)
		if err != nil {
			log.Fatalf("speaker: resolver: %v", err)
		}
		resolved, err := resolver.Resolve(ctx, cfg.Source.Channel)
		if err != nil {
			log.Fatalf("speaker: resolve channel %s: %v", cfg.Source.Channel, err)
		}
		targetVideo = resolved
		log.Printf("speaker: resolved channel %s to live video %s", cfg.Source.Channel, targetVideo)
	}

	session, err := ytchat.NewSession(targetVideo, ytKeyStore, ytchat.SessionOptions{
		PollInterval: cfg.PollInterval(),
		Metrics:      ytchat.NewMetrics(registry),
	})
	if err != nil {
		log.Fatalf("speaker: chat session: %v", err)
	}

	var api *httpapi.Server
	if cfg.HTTP.Enabled {
		api = httpapi.New(httpapi.Options{
			Addr:            cfg.HTTP.Addr,
			CORSOrigins:     cfg.HTTP.CORSOrigins,
			RateLimitRPS:    cfg.HTTP.RateLimitRPS,
			RateLimitBurst:  cfg.HTTP.RateLimitBurst,
			EnableAccessLog: cfg.HTTP.AccessLog,
			RingSize:        cfg.HTTP.RingSize,
			Registry:        registry,
			Status: func() any {
				return map[string]any{
					"version": version.Version,
					"engine":  dispatcher.EngineName(),
					"busy":    dispatcher.Busy(),
					"session": session.Snapshot(),
				}
			},
		})
		go func() {
			if err := api.Start(); err != nil {
				log.Fatalf("speaker: http api: %v", err)
			}
		}()
		log.Printf("speaker: http api ready on %s", cfg.HTTP.Addr)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		consecutiveErrs := 0
		for {
			msg, err := session.NextMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, ytchat.ErrNotLive) {
					log.Printf("speaker: video %s is not live: %v", targetVideo, err)
					cancel()
					return
				}
				consecutiveErrs++
				log.Printf("speaker: chat poll failed (%d in a row): %v", consecutiveErrs, err)
				if !sleepOrDone(ctx, cfg.PollInterval()) {
					return
				}
				continue
			}
			consecutiveErrs = 0

			slog.Info("speaker: chat message", "author", msg.Author, "id", msg.ID)
			dispatcher.Speak(ctx, core.Render(msg))
			if api != nil {
				api.Publish(msg)
			}
		}
	}()

	<-ctx.Done()

	if api != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Printf("speaker: http api shutdown: %v", err)
		}
		cancelShutdown()
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	log.Printf("speaker: shutdown complete")
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
