package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/camnode/camnode/internal/cameras"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/pkg/capture"
)

// StatsSource is the slice of the camera manager the recorder samples.
type StatsSource interface {
	List() []cameras.Info
	PoolStats() capture.PoolStats
}

// Recorder keeps the Prometheus series current. State moves are applied
// from bus events as they happen; frame and pool counters are sampled
// on a ticker. Cameras that drop out of the manager have their series
// deleted on the next sample.
type Recorder struct {
	logger   *slog.Logger
	bus      *events.Bus
	source   StatsSource
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsub  func()
}

// NewRecorder creates a recorder sampling source once per second.
func NewRecorder(bus *events.Bus, source StatsSource) *Recorder {
	return &Recorder{
		logger:   logging.GetLogger("metrics"),
		bus:      bus,
		source:   source,
		interval: time.Second,
	}
}

// Start subscribes to the bus and begins the sampling loop.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.unsub = r.bus.Subscribe(func(ev events.CameraStateChangedEvent) {
		SetCameraState(ev.CameraID, ev.OldState, ev.NewState)
	})

	r.wg.Add(1)
	go r.run(ctx)
	r.logger.Debug("Metrics recorder started", "interval", r.interval.String())
}

// Stop halts sampling and detaches from the bus.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	if r.unsub != nil {
		r.unsub()
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	seen := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seen = r.sample(seen)
		}
	}
}

// sample refreshes the per-camera and pool series and returns the set
// of camera ids seen, so the next sample can drop series for cameras
// removed in between.
func (r *Recorder) sample(previous map[string]bool) map[string]bool {
	current := make(map[string]bool)
	for _, info := range r.source.List() {
		current[info.ID] = true
		SetCameraFrames(info.ID, info.Stats.FramesCaptured, info.Stats.FramesDropped, info.Stats.LastFrameAt)
	}
	for id := range previous {
		if !current[id] {
			DeleteCameraMetrics(id)
		}
	}

	SetPoolStats(r.source.PoolStats())
	return current
}
