// Package pipeline is the composition root of the obstacle-guidance chain:
// depth sampling and detection feed the tracker, whose snapshot drives the
// path analyzer, the guidance generator, and the feedback arbiter.
//
// Frame admission is a bounded inbox of capacity one with a drop-newest
// policy: a frame arriving while another is queued is dropped rather than
// queued behind it, bounding worst-case latency under load. Processing of
// an admitted frame always runs to completion, even across Stop.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lumenassist/pathsense/internal/depth"
	"github.com/lumenassist/pathsense/internal/detect"
	"github.com/lumenassist/pathsense/internal/diag"
	"github.com/lumenassist/pathsense/internal/feedback"
	"github.com/lumenassist/pathsense/internal/guide"
	"github.com/lumenassist/pathsense/internal/monitoring"
	"github.com/lumenassist/pathsense/internal/path"
	"github.com/lumenassist/pathsense/internal/timeutil"
	"github.com/lumenassist/pathsense/internal/track"
)

// Frame is one sensor delivery: a depth map plus an optional image and an
// optional pre-computed detection list. When Detections is nil and a
// detector is configured, the pipeline runs the detector itself.
type Frame struct {
	ID         string
	Depth      *depth.DepthMap
	Image      []byte
	Detections []detect.Detection
}

// Stats counts pipeline activity since the last reset.
type Stats struct {
	FramesProcessed  uint64 `json:"frames_processed"`
	FramesDropped    uint64 `json:"frames_dropped"`
	FramesSkipped    uint64 `json:"frames_skipped"` // frames without depth data
	DetectorFailures uint64 `json:"detector_failures"`
	Announcements    uint64 `json:"announcements"`
}

// Snapshot is the read-only pipeline output published after each frame for
// the UI layer. Slices are copies; callers may retain them.
type Snapshot struct {
	FrameID   string                  `json:"frame_id"`
	Timestamp time.Time               `json:"timestamp"`
	Obstacles []track.TrackedObstacle `json:"obstacles"`
	Guidance  []guide.Guidance        `json:"guidance"`
	Analysis  path.Analysis           `json:"analysis"`
	Stats     Stats                   `json:"stats"`
}

// Deps bundles the components the pipeline orchestrates. Passing them in
// explicitly (rather than via globals) keeps wiring visible and tests
// deterministic.
type Deps struct {
	Sampler   *depth.Sampler
	Detector  detect.Detector // optional
	Tracker   *track.Tracker
	Analyzer  *path.Analyzer
	Generator *guide.Generator
	Arbiter   *feedback.Arbiter
	Clock     timeutil.Clock // optional, defaults to real clock
	Store     *diag.Store    // optional
	History   *track.History // optional

	// MaxInFlight is the number of frames processed concurrently.
	// Defaults to 1; the tracker serializes its own updates when raised.
	MaxInFlight int

	// MinLabelConfidence is the detector confidence below which a
	// detection cannot label a depth candidate.
	MinLabelConfidence float64
}

// Pipeline drives the sensing-to-feedback chain.
type Pipeline struct {
	deps Deps

	inbox   chan Frame
	stop    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	processed        atomic.Uint64
	dropped          atomic.Uint64
	skipped          atomic.Uint64
	detectorFailures atomic.Uint64
	announcements    atomic.Uint64

	snapMu   sync.RWMutex
	snapshot Snapshot
}

// New creates a pipeline over the given dependencies.
func New(deps Deps) (*Pipeline, error) {
	if deps.Sampler == nil || deps.Tracker == nil || deps.Analyzer == nil ||
		deps.Generator == nil || deps.Arbiter == nil {
		return nil, fmt.Errorf("pipeline: sampler, tracker, analyzer, generator and arbiter are required")
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.RealClock{}
	}
	if deps.MaxInFlight < 1 {
		deps.MaxInFlight = 1
	}
	if deps.MinLabelConfidence <= 0 {
		deps.MinLabelConfidence = 0.5
	}
	return &Pipeline{
		deps:  deps,
		inbox: make(chan Frame, 1),
	}, nil
}

// Start clears all tracking and announcement state, then begins consuming
// admitted frames. Starting an already running pipeline is an error.
func (p *Pipeline) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("pipeline: already running")
	}

	p.resetState()
	p.stop = make(chan struct{})

	for i := 0; i < p.deps.MaxInFlight; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return nil
}

// Stop halts frame admission, lets any in-flight frame finish, and waits
// for the consumer loops to exit. Safe to call when not running.
func (p *Pipeline) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stop)
	p.wg.Wait()
}

// Offer submits a frame for processing. It never blocks: when the pipeline
// is stopped or the inbox already holds a frame, the new frame is dropped
// and Offer returns false.
func (p *Pipeline) Offer(frame Frame) bool {
	if !p.running.Load() {
		return false
	}
	if frame.ID == "" {
		frame.ID = uuid.NewString()
	}

	select {
	case p.inbox <- frame:
		return true
	default:
		p.dropped.Add(1)
		p.deps.Store.RecordEvent("frame_dropped", frame.ID, p.deps.Clock.Now())
		return false
	}
}

// Snapshot returns the most recent published pipeline output.
func (p *Pipeline) Snapshot() Snapshot {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	snap := p.snapshot
	snap.Stats = p.stats()
	return snap
}

func (p *Pipeline) stats() Stats {
	return Stats{
		FramesProcessed:  p.processed.Load(),
		FramesDropped:    p.dropped.Load(),
		FramesSkipped:    p.skipped.Load(),
		DetectorFailures: p.detectorFailures.Load(),
		Announcements:    p.announcements.Load(),
	}
}

func (p *Pipeline) run() {
	defer p.wg.Done()
	for {
		// Prefer the stop signal over a queued frame so Stop halts
		// admission promptly; the frame being processed still runs to
		// completion below.
		select {
		case <-p.stop:
			return
		default:
		}

		select {
		case <-p.stop:
			return
		case frame := <-p.inbox:
			p.process(frame)
		}
	}
}

func (p *Pipeline) process(frame Frame) {
	start := p.deps.Clock.Now()

	if frame.Depth == nil {
		// Sensor absence: retain previous tracked state, no crash.
		p.skipped.Add(1)
		monitoring.Logf("pipeline: frame %s has no depth data, skipped", frame.ID)
		p.deps.Store.RecordEvent("no_depth_data", frame.ID, start)
		return
	}

	candidates := p.deps.Sampler.Sample(frame.Depth)

	detections := frame.Detections
	if detections == nil && p.deps.Detector != nil {
		dets, err := p.deps.Detector.Detect(context.Background(), frame.Image)
		if err != nil {
			// Detector trouble degrades to depth-only sensing.
			p.detectorFailures.Add(1)
			monitoring.Logf("pipeline: detector failed on frame %s: %v", frame.ID, err)
		} else {
			detections = dets
		}
	}

	p.fuseLabels(candidates, detections)

	tracked := p.deps.Tracker.Update(candidates, frame.Depth.Timestamp)
	analysis := p.deps.Analyzer.Analyze(tracked)
	cues := p.deps.Generator.Generate(tracked)

	if p.deps.Arbiter.AnnounceObstacles(tracked) {
		p.announcements.Add(1)
		p.deps.Store.RecordEvent("announcement", fmt.Sprintf("%d obstacles", len(tracked)), start)
	}
	p.deps.Arbiter.AnnounceSpatialGuidance(cues)

	p.processed.Add(1)
	elapsed := p.deps.Clock.Since(start)

	if p.deps.History != nil {
		p.deps.History.Add(&track.FrameRecord{
			FrameID:         frame.ID,
			Timestamp:       frame.Depth.Timestamp,
			Depth:           frame.Depth,
			DetectionCount:  len(candidates),
			TrackedCount:    len(tracked),
			ProcessDuration: elapsed,
		})
	}
	p.deps.Store.RecordFrame(frame.ID, frame.Depth.Timestamp, len(candidates), len(tracked), elapsed)

	p.snapMu.Lock()
	p.snapshot = Snapshot{
		FrameID:   frame.ID,
		Timestamp: frame.Depth.Timestamp,
		Obstacles: tracked,
		Guidance:  cues,
		Analysis:  analysis,
	}
	p.snapMu.Unlock()
}

// fuseLabels transfers detector labels onto depth candidates that lie in
// the same bearing bucket. This is a heuristic: a detection's horizontal
// centre is projected to a bearing and attached to the nearest candidate
// within one grid cell's angular width.
func (p *Pipeline) fuseLabels(candidates []depth.DetectedObstacle, detections []detect.Detection) {
	if len(candidates) == 0 || len(detections) == 0 {
		return
	}

	hfov := p.deps.Sampler.Config.HorizontalFOV
	tolerance := hfov / float64(p.deps.Sampler.Config.GridCols)

	for _, det := range detections {
		if det.Confidence < p.deps.MinLabelConfidence {
			continue
		}
		bearing := (det.Bounds.CenterX() - 0.5) * hfov

		bestIdx := -1
		bestDelta := tolerance
		for i, c := range candidates {
			delta := math.Abs(math.Atan2(c.X, c.Z) - bearing)
			if delta < bestDelta {
				bestDelta = delta
				bestIdx = i
			}
		}
		if bestIdx >= 0 {
			candidates[bestIdx].Label = det.Label
		}
	}
}

// resetState clears tracked obstacles, announcement state and history so a
// restarted pipeline begins from scratch.
func (p *Pipeline) resetState() {
	p.deps.Tracker.Clear()
	p.deps.Arbiter.Reset()
	if p.deps.History != nil {
		p.deps.History.Clear()
	}

	p.snapMu.Lock()
	p.snapshot = Snapshot{}
	p.snapMu.Unlock()
}
