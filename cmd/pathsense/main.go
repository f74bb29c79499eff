// Command pathsense runs the obstacle-guidance pipeline: depth frames in,
// tracked obstacles, path analysis and spoken/haptic feedback out, with a
// JSON/websocket snapshot surface for a local UI.
//
// Without -replay it starts the pipeline and waits for frames to be pushed
// by an embedding host; with -replay it feeds a recorded JSONL frame file
// through the pipeline at the adaptive target cadence.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumenassist/pathsense/internal/api"
	"github.com/lumenassist/pathsense/internal/config"
	"github.com/lumenassist/pathsense/internal/depth"
	"github.com/lumenassist/pathsense/internal/detect"
	"github.com/lumenassist/pathsense/internal/diag"
	"github.com/lumenassist/pathsense/internal/feedback"
	"github.com/lumenassist/pathsense/internal/guide"
	"github.com/lumenassist/pathsense/internal/monitoring"
	"github.com/lumenassist/pathsense/internal/path"
	"github.com/lumenassist/pathsense/internal/perf"
	"github.com/lumenassist/pathsense/internal/pipeline"
	"github.com/lumenassist/pathsense/internal/track"
	"github.com/lumenassist/pathsense/internal/version"
)

func main() {
	var (
		listenAddr = flag.String("listen", ":8087", "HTTP listen address for the snapshot API")
		configPath = flag.String("config", "", "path to a tuning config JSON file")
		dbPath     = flag.String("db", "", "path to the diagnostics sqlite database (empty disables)")
		replayPath = flag.String("replay", "", "path to a JSONL frame recording to replay")
		loop       = flag.Bool("loop", false, "restart the replay file when it ends")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("pathsense %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if err := run(*listenAddr, *configPath, *dbPath, *replayPath, *loop); err != nil {
		fmt.Fprintf(os.Stderr, "pathsense: %v\n", err)
		os.Exit(1)
	}
}

func run(listenAddr, configPath, dbPath, replayPath string, loop bool) error {
	monitoring.Logf("pathsense %s starting", version.Version)

	cfg := config.EmptyTuningConfig()
	if configPath != "" {
		loaded, err := config.LoadTuningConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load tuning config: %w", err)
		}
		cfg = loaded
		monitoring.Logf("loaded tuning config from %s", configPath)
	}

	var store *diag.Store
	if dbPath != "" {
		s, err := diag.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open diagnostics store: %w", err)
		}
		defer s.Close()
		store = s
		monitoring.Logf("diagnostics session %s recording to %s", s.SessionID, dbPath)
	}

	controller := perf.NewController(perf.ControllerConfig{
		BaseHz:             cfg.GetBaseRateHz(),
		FloorHz:            cfg.GetFloorRateHz(),
		LowBatteryFraction: cfg.GetLowBatteryFraction(),
		MaxConcurrent:      cfg.GetMaxConcurrentFrames(),
	})

	speech := feedback.LogSpeech{}
	haptic := feedback.NullHaptic{}
	arbiterCfg := feedback.DefaultArbiterConfig()
	arbiterCfg.AlertRange = cfg.GetAlertRangeMeters()
	arbiterCfg.MinInterval = cfg.GetMinAnnouncementInterval()
	arbiterCfg.MaxAnnounced = cfg.GetMaxAnnouncedObstacles()
	arbiter := feedback.NewArbiter(arbiterCfg, speech, haptic, nil)

	samplerCfg := depth.DefaultSamplerConfig()
	samplerCfg.GridCols = cfg.GetGridCols()
	samplerCfg.GridRows = cfg.GetGridRows()
	samplerCfg.MaxRange = cfg.GetMaxRangeMeters()
	samplerCfg.MinValidFraction = cfg.GetMinValidFraction()
	samplerCfg.HorizontalFOV = cfg.GetHorizontalFOVDeg() * math.Pi / 180
	samplerCfg.VerticalFOV = cfg.GetVerticalFOVDeg() * math.Pi / 180

	trackerCfg := track.DefaultTrackerConfig()
	trackerCfg.MatchingThreshold = cfg.GetMatchingThresholdMeters()
	trackerCfg.TrackingTimeout = cfg.GetTrackingTimeout()

	analyzerCfg := path.DefaultAnalyzerConfig()
	analyzerCfg.MinMovingSpeed = cfg.GetMinMovingSpeed()
	analyzerCfg.Horizon = cfg.GetPredictionHorizon()

	generatorCfg := guide.DefaultGeneratorConfig()
	generatorCfg.Range = cfg.GetGuidanceRangeMeters()

	p, err := pipeline.New(pipeline.Deps{
		Sampler:     depth.NewSampler(samplerCfg),
		Tracker:     track.NewTracker(trackerCfg),
		Analyzer:    path.NewAnalyzer(analyzerCfg),
		Generator:   guide.NewGenerator(generatorCfg),
		Arbiter:     arbiter,
		Store:       store,
		History:     track.NewHistory(0),
		MaxInFlight: controller.MaxConcurrentFrames(),
	})
	if err != nil {
		return err
	}

	if err := p.Start(); err != nil {
		return err
	}
	defer p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		monitoring.Logf("received %v, shutting down", sig)
		cancel()
	}()

	if replayPath != "" {
		go func() {
			if err := replayFrames(ctx, p, controller, replayPath, loop); err != nil {
				monitoring.Logf("replay stopped: %v", err)
			}
			// Replay exhaustion is a natural end of session.
			if !loop {
				cancel()
			}
		}()
	}

	server := api.NewServer(p, controller, 0)
	monitoring.Logf("snapshot API listening on %s", listenAddr)
	return server.ListenAndServe(ctx, listenAddr)
}

// replayFrame is one line of a JSONL frame recording.
type replayFrame struct {
	ID         string             `json:"id,omitempty"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Depths     []float32          `json:"depths"`
	Detections []detect.Detection `json:"detections,omitempty"`
}

// replayFrames feeds a recorded frame file through the pipeline, pacing each
// submission by the controller's current target cadence.
func replayFrames(ctx context.Context, p *pipeline.Pipeline, controller *perf.Controller, file string, loop bool) error {
	for {
		if err := replayOnce(ctx, p, controller, file); err != nil {
			return err
		}
		if !loop || ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func replayOnce(ctx context.Context, p *pipeline.Pipeline, controller *perf.Controller, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<26)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rf replayFrame
		if err := json.Unmarshal(line, &rf); err != nil {
			monitoring.Logf("replay: skipping malformed line %d: %v", lineNo, err)
			continue
		}

		frame := pipeline.Frame{
			ID:         rf.ID,
			Depth:      depth.NewDepthMap(rf.Width, rf.Height, rf.Depths, time.Now()),
			Detections: rf.Detections,
		}
		if !p.Offer(frame) {
			monitoring.Logf("replay: frame at line %d dropped", lineNo)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(controller.FrameInterval()):
		}
	}
	return scanner.Err()
}
