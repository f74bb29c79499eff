package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lumenassist/pathsense/internal/depth"
	"github.com/lumenassist/pathsense/internal/detect"
	"github.com/lumenassist/pathsense/internal/feedback"
	"github.com/lumenassist/pathsense/internal/guide"
	"github.com/lumenassist/pathsense/internal/path"
	"github.com/lumenassist/pathsense/internal/track"
)

// blockingDetector parks Detect until released, so tests can hold a frame
// in flight deterministically.
type blockingDetector struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingDetector() *blockingDetector {
	return &blockingDetector{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (d *blockingDetector) Detect(context.Context, []byte) ([]detect.Detection, error) {
	d.entered <- struct{}{}
	<-d.release
	return nil, nil
}

func newTestPipeline(t *testing.T, detector detect.Detector) (*Pipeline, *feedback.MockSpeech) {
	t.Helper()

	speech := &feedback.MockSpeech{}
	arbiter := feedback.NewArbiter(feedback.DefaultArbiterConfig(), speech, feedback.NullHaptic{}, nil)

	p, err := New(Deps{
		Sampler:   depth.NewSampler(depth.DefaultSamplerConfig()),
		Detector:  detector,
		Tracker:   track.NewTracker(track.DefaultTrackerConfig()),
		Analyzer:  path.NewAnalyzer(path.DefaultAnalyzerConfig()),
		Generator: guide.NewGenerator(guide.DefaultGeneratorConfig()),
		Arbiter:   arbiter,
		History:   track.NewHistory(5),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, speech
}

func uniformFrame(id string, d float32, ts time.Time) Frame {
	depths := make([]float32, 64*64)
	for i := range depths {
		depths[i] = d
	}
	return Frame{ID: id, Depth: depth.NewDepthMap(64, 64, depths, ts)}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestProcessFramePublishesSnapshot(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if !p.Offer(uniformFrame("frame-1", 2.0, time.Now())) {
		t.Fatal("Offer rejected the first frame")
	}

	waitFor(t, time.Second, func() bool {
		return p.Snapshot().FrameID == "frame-1"
	})

	snap := p.Snapshot()
	if len(snap.Obstacles) == 0 {
		t.Error("expected tracked obstacles in snapshot")
	}
	if !snap.Analysis.ClearPath {
		t.Error("static obstacles must not trigger path warnings")
	}

	wantStats := Stats{FramesProcessed: 1, Announcements: snap.Stats.Announcements}
	if diff := cmp.Diff(wantStats, snap.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestOfferDropsWhenInboxFull(t *testing.T) {
	detector := newBlockingDetector()
	p, _ := newTestPipeline(t, detector)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	now := time.Now()
	if !p.Offer(uniformFrame("frame-1", 2.0, now)) {
		t.Fatal("frame-1 should be admitted")
	}
	// Wait until frame-1 is in flight so the inbox is free again.
	<-detector.entered

	if !p.Offer(uniformFrame("frame-2", 2.0, now.Add(40*time.Millisecond))) {
		t.Fatal("frame-2 should be admitted into the empty inbox")
	}
	if p.Offer(uniformFrame("frame-3", 2.0, now.Add(80*time.Millisecond))) {
		t.Error("frame-3 should be dropped while the inbox is occupied")
	}
	if got := p.Snapshot().Stats.FramesDropped; got != 1 {
		t.Errorf("FramesDropped = %d, want 1", got)
	}

	close(detector.release)
	p.Stop()
}

func TestStopHaltsAdmissionAndFinishesInFlight(t *testing.T) {
	detector := newBlockingDetector()
	p, _ := newTestPipeline(t, detector)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !p.Offer(uniformFrame("frame-1", 2.0, time.Now())) {
		t.Fatal("frame-1 should be admitted")
	}
	<-detector.entered

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	// Admission halts immediately even though a frame is still in flight.
	waitFor(t, time.Second, func() bool {
		return !p.Offer(uniformFrame("frame-2", 2.0, time.Now()))
	})

	select {
	case <-stopped:
		t.Fatal("Stop returned while a frame was still in flight")
	default:
	}

	close(detector.release)
	<-stopped

	// The in-flight frame ran to completion.
	if got := p.Snapshot().Stats.FramesProcessed; got != 1 {
		t.Errorf("FramesProcessed = %d, want 1", got)
	}
}

func TestStartTwiceFails(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if err := p.Start(); err == nil {
		t.Error("second Start should fail")
	}
}

func TestRestartClearsTrackedState(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	p.Offer(uniformFrame("frame-1", 2.0, time.Now()))
	waitFor(t, time.Second, func() bool {
		return p.Snapshot().Stats.FramesProcessed == 1
	})
	p.Stop()

	if err := p.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer p.Stop()

	snap := p.Snapshot()
	if len(snap.Obstacles) != 0 {
		t.Errorf("restart must clear tracked obstacles, found %d", len(snap.Obstacles))
	}
	if snap.FrameID != "" {
		t.Errorf("restart must clear the published snapshot, found frame %q", snap.FrameID)
	}
}

func TestFrameWithoutDepthIsSkipped(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	// Establish tracked state first.
	p.Offer(uniformFrame("frame-1", 2.0, time.Now()))
	waitFor(t, time.Second, func() bool {
		return p.Snapshot().Stats.FramesProcessed == 1
	})
	before := len(p.Snapshot().Obstacles)

	p.Offer(Frame{ID: "frame-2"})
	waitFor(t, time.Second, func() bool {
		return p.Snapshot().Stats.FramesSkipped == 1
	})

	// Previous tracked state is retained.
	if got := len(p.Snapshot().Obstacles); got != before {
		t.Errorf("skipped frame changed tracked state: %d -> %d obstacles", before, got)
	}
}

func TestDetectionLabelsReachTrackedObstacles(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	frame := uniformFrame("frame-1", 2.0, time.Now())
	frame.Detections = []detect.Detection{{
		Label:      "person",
		Confidence: 0.9,
		Bounds:     detect.Bounds{X: 0.45, Y: 0.4, W: 0.1, H: 0.3},
	}}
	p.Offer(frame)

	waitFor(t, time.Second, func() bool {
		return p.Snapshot().Stats.FramesProcessed == 1
	})

	found := false
	for _, o := range p.Snapshot().Obstacles {
		if o.Label == "person" {
			found = true
		}
	}
	if !found {
		t.Error("expected a tracked obstacle labelled by the detector")
	}
}

func TestDetectorFailureDegradesToDepthOnly(t *testing.T) {
	failing := detect.NewMock()
	failing.Queue(nil, detect.ErrUnavailable)

	p, _ := newTestPipeline(t, failing)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.Offer(uniformFrame("frame-1", 2.0, time.Now()))
	waitFor(t, time.Second, func() bool {
		return p.Snapshot().Stats.FramesProcessed == 1
	})

	snap := p.Snapshot()
	if snap.Stats.DetectorFailures != 1 {
		t.Errorf("DetectorFailures = %d, want 1", snap.Stats.DetectorFailures)
	}
	if len(snap.Obstacles) == 0 {
		t.Error("depth-only sensing must still produce obstacles")
	}
}
