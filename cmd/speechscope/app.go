package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/speechscope/internal/capture"
	"github.com/snarg/speechscope/internal/config"
	"github.com/snarg/speechscope/internal/database"
	"github.com/snarg/speechscope/internal/detect"
	"github.com/snarg/speechscope/internal/media"
	"github.com/snarg/speechscope/internal/notify"
	"github.com/snarg/speechscope/internal/pipeline"
	"github.com/snarg/speechscope/internal/storage"
	"github.com/snarg/speechscope/internal/transcribe"
	"github.com/snarg/speechscope/internal/transcript"
)

// app holds the wired components shared by every command.
type app struct {
	cfg          *config.Config
	db           *database.DB
	mqtt         *notify.MQTTPublisher
	uploader     *storage.AsyncUploader
	audio        *media.Acquirer
	analyzerName string
	orch         *pipeline.Orchestrator
	log          zerolog.Logger
}

// newApp connects optional backends and builds the orchestrator. Optional
// backends that fail to connect are logged and skipped.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	// Database
	if cfg.DatabaseURL != "" {
		dbLog := log.With().Str("component", "database").Logger()
		db, err := database.Connect(ctx, cfg.DatabaseURL, dbLog)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, storing results on disk only")
		} else {
			if err := db.InitSchema(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("init schema: %w", err)
			}
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, err
			}
			a.db = db
		}
	}
	store := storage.New(a.db, cfg.ResultsDir(), log.With().Str("component", "store").Logger())

	// S3 artifact archive
	var archive pipeline.Archiver
	if cfg.S3.Enabled() {
		s3, err := storage.NewS3Store(ctx, cfg.S3, log)
		if err != nil {
			log.Warn().Err(err).Msg("s3 archive disabled")
		} else {
			headCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := s3.HeadBucket(headCtx); err != nil {
				log.Warn().Err(err).Str("bucket", cfg.S3.Bucket).Msg("s3 bucket check failed, uploads may fail")
			}
			cancel()
			a.uploader = storage.NewAsyncUploader(s3, 64, log)
			a.uploader.Start(2)
			archive = a.uploader
		}
	}

	// MQTT
	var events notify.Publisher = notify.Nop{}
	if cfg.MQTT.Enabled() {
		pub, err := notify.Connect(notify.Options{
			BrokerURL:   cfg.MQTT.BrokerURL,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			Log:         log,
		})
		if err != nil {
			log.Warn().Err(err).Msg("mqtt unavailable, run events disabled")
		} else {
			a.mqtt = pub
			events = pub
		}
	}

	// Analyzer, chosen once
	analyzer, usingMock := detect.New(detect.Options{
		APIKey:  cfg.GPTZeroAPIKey,
		URL:     cfg.GPTZeroURL,
		Timeout: cfg.GPTZeroTimeout,
		Log:     log,
	})
	a.analyzerName = analyzer.Name()
	enricher := transcript.NewEnricher(transcript.EnricherOptions{
		Analyzer:      analyzer,
		AnalyzerName:  analyzer.Name(),
		Concurrency:   cfg.AnalyzeConcurrency,
		MaxRetries:    cfg.AnalyzeRetries,
		RatePerMinute: cfg.AnalyzeRatePerMin,
		Log:           log,
	})

	var transcriber transcribe.Provider = transcribe.NewElevenLabsClient(transcribe.ElevenLabsOptions{
		APIKey:      cfg.ElevenLabsAPIKey,
		Model:       cfg.ElevenLabsModel,
		Language:    cfg.ElevenLabsLanguage,
		NumSpeakers: cfg.ElevenLabsNumSpeakers,
		Timeout:     cfg.TranscribeTimeout,
	})
	if cfg.ElevenLabsAPIKey == "" {
		log.Warn().Msg("ELEVENLABS_API_KEY not set, transcription will fail")
	}
	log.Info().
		Str("transcriber", transcriber.Name()).
		Str("model", transcriber.Model()).
		Str("analyzer", analyzer.Name()).
		Bool("mock_analyzer", usingMock).
		Msg("providers configured")

	a.audio = media.NewAcquirer(media.Options{
		YtDlpPath:  cfg.YtDlpPath,
		FFmpegPath: cfg.FFmpegPath,
		Log:        log,
	})
	if !a.audio.Available() {
		log.Warn().Str("yt_dlp", cfg.YtDlpPath).Str("ffmpeg", cfg.FFmpegPath).Msg("media tools not found on PATH")
	}

	a.orch = pipeline.New(pipeline.Options{
		DataDir: cfg.DataDir,
		Capturer: capture.New(capture.Options{
			ChromePath: cfg.ChromePath,
			Timeout:    cfg.ScreenshotTimeout,
			Log:        log,
		}),
		Audio:             a.audio,
		Transcriber:       transcriber,
		Enricher:          enricher,
		Store:             store,
		Archive:           archive,
		Events:            events,
		UsingMockAnalyzer: usingMock,
		Log:               log,
	})
	return a, nil
}

// Close drains pending uploads and releases connections.
func (a *app) Close() {
	if a.uploader != nil {
		a.uploader.Stop()
	}
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
