package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sabrgo/internal/config"
	"github.com/jmylchreest/sabrgo/internal/sabr"
	"github.com/jmylchreest/sabrgo/internal/sabr/transport"
	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
	"github.com/jmylchreest/sabrgo/internal/sabr/writer"
)

var (
	seedPath   string
	continueDL bool
	debugAddr  string
)

// seed is the extractor-provided, per-download input (SPEC_FULL.md §4.7
// step 1). It is deliberately separate from the persistent sabrget.yaml
// config: it names one specific video's URLs and tokens, not tuning
// options, and is expected to be produced fresh by an external extractor
// each time.
type seed struct {
	ServerABRStreamingURL        string                  `json:"server_abr_streaming_url"`
	VideoPlaybackUstreamerConfig string                  `json:"video_playback_ustreamer_config"`
	POToken                      string                  `json:"po_token"`
	ClientInfo                   config.ClientInfoConfig `json:"client_info"`
	AudioItag                    int32                   `json:"audio_itag"`
	VideoItag                    int32                   `json:"video_itag"`
	Output                       string                  `json:"output"`
}

// trackWriter pairs a writer with the track it was opened for, so MediaSegment
// events can be routed without depending on the session's internal selector
// pointers (sabr.FormatSelector.Track is the stable, exported classifier).
type trackWriter struct {
	track sabr.Track
	w     *writer.Writer
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Drive a SABR session to completion and write the selected tracks to disk",
	Long: `download loads a session seed (produced by an external extractor) and
drives one SABR session to completion, writing the selected audio and/or
video track to disk under storage.output_dir.

Use --continue to resume a previously interrupted download from its
progress document, if one exists under storage.progress_dir.`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVar(&seedPath, "seed", "", "path to a session seed JSON file (required)")
	downloadCmd.Flags().BoolVar(&continueDL, "continue", false, "resume from a prior progress document if one exists")
	downloadCmd.Flags().StringVar(&debugAddr, "debug-addr", "", "address to serve a read-only JSON progress endpoint on (e.g. 127.0.0.1:6060); overrides transport.debug_http_addr")
	_ = downloadCmd.MarkFlagRequired("seed")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		// session.* isn't expected to be filled in the persistent config
		// for a seed-driven download; only storage/transport/logging
		// matter here, so fall back to defaults rather than failing.
		cfg = config.Defaults()
	}

	sd, err := loadSeed(seedPath)
	if err != nil {
		return err
	}
	if debugAddr != "" {
		cfg.Transport.DebugHTTPAddr = debugAddr
	}

	logger := slog.Default().With(slog.String("component", "sabrget.download"))

	for _, dir := range []string{cfg.Storage.OutputDir, cfg.Storage.ProgressDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	outputPath := filepath.Join(cfg.Storage.OutputDir, sd.Output)
	progressBase := filepath.Join(cfg.Storage.ProgressDir, sd.Output)

	sessionCfg, tracks, err := buildSession(cfg, sd, progressBase)
	if err != nil {
		return err
	}

	tr := transport.New(transport.Config{
		HTTPRetries:           cfg.Session.HTTPRetries,
		HostFallbackThreshold: cfg.Session.HostFallbackThreshold,
		RetryDelay:            cfg.Transport.RetryDelay.Duration(),
		RetryMaxDelay:         cfg.Transport.RetryMaxDelay.Duration(),
		BackoffMultiplier:     cfg.Transport.BackoffMultiplier,
		UserAgent:             cfg.Transport.UserAgent,
		EnableDecompression:   cfg.Transport.EnableDecompression,
		MaxResponseSize:       int64(cfg.Transport.MaxResponseSize),
		Logger:                logger,
	})

	sess, err := sabr.NewSession(sessionCfg, tr)
	if err != nil {
		return fmt.Errorf("constructing session: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Transport.DebugHTTPAddr != "" {
		dbg := newDebugServer(cfg.Transport.DebugHTTPAddr, sess, tr, logger)
		dbg.start()
		defer dbg.stop(context.Background())
		logger.Info("debug endpoint listening", slog.String("addr", cfg.Transport.DebugHTTPAddr))
	}

	if err := drive(ctx, sess, tracks, logger); err != nil {
		if ctx.Err() == nil || !sess.IsLive() {
			return err
		}
		logger.Info("interrupted; finalizing live download")
	}

	for _, t := range tracks {
		if err := t.w.Finish(); err != nil {
			return fmt.Errorf("finalizing output: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outputPath)
	return nil
}

// buildSession resolves the seed into a sabr.SessionConfig and one writer
// per requested track, wiring --continue's progress-document resume
// (spec.md §4.6 "Resume").
func buildSession(cfg *config.Config, sd *seed, progressBase string) (sabr.SessionConfig, []trackWriter, error) {
	sessionCfg := sabr.SessionConfig{
		ServerABRStreamingURL:        sd.ServerABRStreamingURL,
		VideoPlaybackUstreamerConfig: sd.VideoPlaybackUstreamerConfig,
		POToken:                      sd.POToken,
		ClientInfo: sabr.ClientInfo{
			HL:            sd.ClientInfo.HL,
			GL:            sd.ClientInfo.GL,
			DeviceMake:    sd.ClientInfo.DeviceMake,
			DeviceModel:   sd.ClientInfo.DeviceModel,
			VisitorData:   sd.ClientInfo.VisitorData,
			UserAgent:     sd.ClientInfo.UserAgent,
			ClientName:    sd.ClientInfo.ClientName,
			ClientVersion: sd.ClientInfo.ClientVersion,
			OSName:        sd.ClientInfo.OSName,
			OSVersion:     sd.ClientInfo.OSVersion,
		},
		LiveSegmentTargetDurationSec: cfg.Session.LiveSegmentTargetDurationSec,
		HTTPRetries:                  cfg.Session.HTTPRetries,
		HostFallbackThreshold:        cfg.Session.HostFallbackThreshold,
		LiveEndWaitSec:               cfg.Session.LiveEndWaitSec,
		Debug:                        cfg.Session.Debug,
	}

	var tracks []trackWriter
	if sd.AudioItag != 0 {
		w, resume, err := openTrackWriter(progressBase+".audio", continueDL)
		if err != nil {
			return sabr.SessionConfig{}, nil, err
		}
		sessionCfg.AudioSelection = []sabr.FormatSelectorConfig{{Itag: sd.AudioItag}}
		sessionCfg.AudioResume = resume
		tracks = append(tracks, trackWriter{track: sabr.TrackAudio, w: w})
	}
	if sd.VideoItag != 0 {
		w, resume, err := openTrackWriter(progressBase+".video", continueDL)
		if err != nil {
			return sabr.SessionConfig{}, nil, err
		}
		sessionCfg.VideoSelection = []sabr.FormatSelectorConfig{{Itag: sd.VideoItag}}
		sessionCfg.VideoResume = resume
		tracks = append(tracks, trackWriter{track: sabr.TrackVideo, w: w})
	}
	if len(tracks) == 0 {
		return sabr.SessionConfig{}, nil, errors.New("seed names neither audio_itag nor video_itag")
	}
	return sessionCfg, tracks, nil
}

func openTrackWriter(finalPath string, resume bool) (*writer.Writer, *wire.ProgressDocument, error) {
	var doc *wire.ProgressDocument
	if resume {
		d, err := writer.LoadProgressDocument(finalPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading progress document for %s: %w", finalPath, err)
		}
		doc = d
	}
	w, err := writer.Open(finalPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening writer for %s: %w", finalPath, err)
	}
	return w, doc, nil
}

// drive pulls events from sess until it ends, routing MediaSegment events to
// the writer whose track matches, and failing clearly on
// RefreshPlayerResponse, since no extractor is wired in-core to answer it
// (SPEC_FULL.md §4.7 step 4).
func drive(ctx context.Context, sess *sabr.Session, tracks []trackWriter, logger *slog.Logger) error {
	for {
		ev, err := sess.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("session: %w", err)
		}

		switch e := ev.(type) {
		case sabr.MediaSegment:
			w := writerForTrack(tracks, e.FormatSelector)
			if w == nil {
				logger.Warn("no writer for format, dropping segment", slog.Int("itag", int(e.FormatID.Itag)))
				continue
			}
			if err := w.Write(e); err != nil {
				return fmt.Errorf("writer: %w", err)
			}
		case sabr.MediaSeek:
			logger.Debug("seek", slog.String("reason", e.Reason.String()), slog.Int("itag", int(e.FormatID.Itag)))
		case sabr.PoTokenStatus:
			logger.Info("po token status", slog.String("status", e.Status.String()))
		case sabr.RefreshPlayerResponse:
			return errors.New("sabrget: server abr streaming url expired; re-run the extractor and retry with --continue")
		}
	}
}

func writerForTrack(tracks []trackWriter, sel *sabr.FormatSelector) *writer.Writer {
	if sel == nil {
		return nil
	}
	for _, t := range tracks {
		if t.track == sel.Track {
			return t.w
		}
	}
	return nil
}

func loadSeed(path string) (*seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var sd seed
	if err := json.Unmarshal(b, &sd); err != nil {
		return nil, fmt.Errorf("decoding seed file: %w", err)
	}
	if sd.ServerABRStreamingURL == "" {
		return nil, errors.New("seed missing server_abr_streaming_url")
	}
	if sd.Output == "" {
		return nil, errors.New("seed missing output")
	}
	return &sd, nil
}
