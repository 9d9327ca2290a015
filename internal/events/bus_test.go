package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/camnode/camnode/pkg/capture"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := New()
	received := make(chan CameraStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e CameraStateChangedEvent) { received <- e })
	defer unsub()

	bus.Publish(CameraStateChangedEvent{
		CameraID:  "front",
		OldState:  string(capture.StateReady),
		NewState:  string(capture.StateCapturingContinuous),
		Timestamp: "2025-01-27T10:30:00Z",
	})

	got := <-received
	if got.CameraID != "front" {
		t.Errorf("Expected camera_id front, got %s", got.CameraID)
	}
	if got.NewState != string(capture.StateCapturingContinuous) {
		t.Errorf("Expected new_state %s, got %s", capture.StateCapturingContinuous, got.NewState)
	}
}

func TestPublishFansOut(t *testing.T) {
	bus := New()
	first := make(chan CameraStartedEvent, 1)
	second := make(chan CameraStartedEvent, 1)

	defer bus.Subscribe(func(e CameraStartedEvent) { first <- e })()
	defer bus.Subscribe(func(e CameraStartedEvent) { second <- e })()

	bus.Publish(CameraStartedEvent{CameraID: "front", OK: true, SessionID: "abc"})

	for i, ch := range []chan CameraStartedEvent{first, second} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	received := make(chan CameraInitializedEvent, 1)

	unsub := bus.Subscribe(func(e CameraInitializedEvent) { received <- e })

	bus.Publish(CameraInitializedEvent{CameraID: "front", OK: true})
	<-received

	unsub()

	bus.Publish(CameraInitializedEvent{CameraID: "rear", OK: true})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSubscribersSeeOnlyTheirType(t *testing.T) {
	bus := New()
	states := make(chan CameraStateChangedEvent, 1)
	devices := make(chan DeviceAttachedEvent, 1)

	defer bus.Subscribe(func(e CameraStateChangedEvent) { states <- e })()
	defer bus.Subscribe(func(e DeviceAttachedEvent) { devices <- e })()

	bus.Publish(CameraStateChangedEvent{CameraID: "front"})
	<-states
	select {
	case <-devices:
		t.Fatal("Device subscriber should NOT have received a camera state event")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(DeviceAttachedEvent{Timestamp: "2025-01-27T10:30:00Z"})
	<-devices
	select {
	case <-states:
		t.Fatal("State subscriber should NOT have received a device event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestConcurrentPublishers(_ *testing.T) {
	bus := New()
	const publishers = 10
	const perPublisher = 100

	received := make(chan struct{}, publishers*perPublisher)
	defer bus.Subscribe(func(FrameCapturedEvent) { received <- struct{}{} })()

	var wg sync.WaitGroup
	for range publishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perPublisher {
				bus.Publish(FrameCapturedEvent{CameraID: "front", CaptureTime: capture.Now()})
			}
		}()
	}
	wg.Wait()

	for range publishers * perPublisher {
		<-received
	}
}

func TestEveryEventTypeDispatches(t *testing.T) {
	bus := New()

	tests := []struct {
		name      string
		subscribe func(chan<- Event) func()
		event     Event
	}{
		{
			"CameraStateChanged",
			func(ch chan<- Event) func() { return bus.Subscribe(func(e CameraStateChangedEvent) { ch <- e }) },
			CameraStateChangedEvent{CameraID: "front"},
		},
		{
			"CameraInitialized",
			func(ch chan<- Event) func() { return bus.Subscribe(func(e CameraInitializedEvent) { ch <- e }) },
			CameraInitializedEvent{CameraID: "front", OK: true},
		},
		{
			"CameraStarted",
			func(ch chan<- Event) func() { return bus.Subscribe(func(e CameraStartedEvent) { ch <- e }) },
			CameraStartedEvent{CameraID: "front", OK: true},
		},
		{
			"FrameCaptured",
			func(ch chan<- Event) func() { return bus.Subscribe(func(e FrameCapturedEvent) { ch <- e }) },
			FrameCapturedEvent{CameraID: "front", Width: 1920, Height: 1080},
		},
		{
			"DeviceAttached",
			func(ch chan<- Event) func() { return bus.Subscribe(func(e DeviceAttachedEvent) { ch <- e }) },
			DeviceAttachedEvent{Timestamp: "2025-01-27T10:30:00Z"},
		},
		{
			"DeviceRemoved",
			func(ch chan<- Event) func() { return bus.Subscribe(func(e DeviceRemovedEvent) { ch <- e }) },
			DeviceRemovedEvent{DevicePath: "/dev/video0"},
		},
		{
			"PoolTrimmed",
			func(ch chan<- Event) func() { return bus.Subscribe(func(e PoolTrimmedEvent) { ch <- e }) },
			PoolTrimmedEvent{Freed: 3},
		},
		{
			"LogEntry",
			func(ch chan<- Event) func() { return bus.Subscribe(func(e LogEntryEvent) { ch <- e }) },
			LogEntryEvent{Seq: 1, Level: "info"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			ch := make(chan Event, 1)
			unsub := tt.subscribe(ch)
			defer unsub()

			bus.Publish(tt.event)
			<-ch
		})
	}
}

func TestFrameCapturedEventJSONShape(t *testing.T) {
	data, err := json.Marshal(FrameCapturedEvent{
		CameraID:    "front",
		SessionID:   "abc",
		CaptureTime: 12.5,
		Width:       1920,
		Height:      1080,
		PixelFormat: "bgra8",
	})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	// SSE clients key off these names
	for _, key := range []string{"camera_id", "session_id", "capture_time", "width", "height", "pixel_format"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("expected JSON key %q in %s", key, data)
		}
	}
}

func TestStateEventClassification(t *testing.T) {
	active := CameraStateChangedEvent{
		CameraID: "front",
		NewState: string(capture.StateCapturingContinuous),
	}
	if active.GetCameraID() != "front" {
		t.Errorf("Expected camera_id front, got %s", active.GetCameraID())
	}
	if !active.IsActive() || !active.IsCapturing() {
		t.Error("Expected capturing_continuous to be active and capturing")
	}

	closed := CameraStateChangedEvent{CameraID: "front", NewState: string(capture.StateClosed)}
	if closed.IsActive() || closed.IsCapturing() {
		t.Error("Expected closed to be neither active nor capturing")
	}

	ready := CameraStateChangedEvent{CameraID: "front", NewState: string(capture.StateReady)}
	if !ready.IsActive() {
		t.Error("Expected ready to be active")
	}
	if ready.IsCapturing() {
		t.Error("Expected ready not to be capturing")
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[CameraStateChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(CameraStateChangedEvent{CameraID: "front", NewState: "ready"})

	got, ok := (<-ch).(CameraStateChangedEvent)
	if !ok {
		t.Fatal("Expected a CameraStateChangedEvent on the channel")
	}
	if got.CameraID != "front" {
		t.Errorf("Expected camera_id front, got %s", got.CameraID)
	}
}

func TestSubscribeToChannelDropsWhenFull(_ *testing.T) {
	bus := New()
	ch := make(chan any) // nothing reads from it

	defer SubscribeToChannel[CameraStartedEvent](bus, ch)()

	done := make(chan struct{})
	go func() {
		bus.Publish(CameraStartedEvent{CameraID: "front", OK: true})
		close(done)
	}()

	// Publish must finish even though the channel can never accept
	<-done
}
