package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/camnode/camnode/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint carrying
// camera lifecycle, frame, device, and pool events. Frame events carry
// metadata only; pixel data never crosses the API.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of camera state changes, capture results, device hotplug, and pool activity",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"camera-state-changed": events.CameraStateChangedEvent{},
		"camera-initialized":   events.CameraInitializedEvent{},
		"camera-started":       events.CameraStartedEvent{},
		"frame-captured":       events.FrameCapturedEvent{},
		"device-attached":      events.DeviceAttachedEvent{},
		"device-removed":       events.DeviceRemovedEvent{},
		"pool-trimmed":         events.PoolTrimmedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.CameraStateChangedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.CameraInitializedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.CameraStartedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.FrameCapturedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.DeviceAttachedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.DeviceRemovedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.PoolTrimmedEvent](s.options.Bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
