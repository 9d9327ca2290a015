// Package nats provides embedded NATS messaging for machine-to-machine
// integration with the camnode daemon.
//
// # Architecture
//
//   - Server: Embedded NATS server running in the main process (camnode serve)
//   - Bridge: Forwards camera events from the event bus to NATS subjects,
//     and drives the camera manager from inbound control commands
//   - ControlPublisher: Client helper for sending control commands
//
// # Subject Hierarchy
//
//	camnode.cameras.{camera_id}.state    # State transitions (daemon → consumers)
//	camnode.cameras.{camera_id}.frames   # Frame-captured notifications (daemon → consumers)
//	camnode.control.{camera_id}.{action} # Control commands (consumers → daemon)
//
// Control actions are start, stop, and single. The camera ID and action
// are taken from the subject, so an empty body is a valid command.
//
// The package uses fire-and-forget messaging (core NATS, no JetStream).
// The bridge degrades gracefully when NATS is unavailable: outbound
// publishes become no-ops and inbound control goes quiet until the
// connection returns.
//
// # Debugging with nats CLI
//
// Install the NATS CLI:
//
//	# macOS
//	brew install nats-io/nats-tools/nats
//
//	# Or via Go
//	go install github.com/nats-io/natscli/nats@latest
//
// # Useful Debug Commands
//
// Monitor all camera traffic (state changes and frame notifications):
//
//	nats sub "camnode.cameras.>"
//
// Monitor state changes for one camera:
//
//	nats sub "camnode.cameras.front.state"
//
// Monitor all control commands:
//
//	nats sub "camnode.control.>"
//
// Take a single capture manually:
//
//	nats pub "camnode.control.front.single" '{}'
//
// Stop a camera with a reason attached:
//
//	nats pub "camnode.control.front.stop" '{"reason":"maintenance"}'
//
// Pretty-print JSON messages:
//
//	nats sub "camnode.cameras.>" | jq .
//
// # Message Formats
//
// StateMessage (camnode.cameras.{id}.state):
//
//	{
//	  "camera_id": "front",
//	  "timestamp": "2025-01-27T12:00:00Z",
//	  "old_state": "ready",
//	  "new_state": "capturing_continuous"
//	}
//
// FrameMessage (camnode.cameras.{id}.frames):
//
//	{
//	  "camera_id": "front",
//	  "session_id": "4f1c2aa0-9b7e-4c62-a1d4-1f2e3d4c5b6a",
//	  "timestamp": "2025-01-27T12:00:00Z",
//	  "capture_time": 12.482,
//	  "width": 1920,
//	  "height": 1080,
//	  "pixel_format": "bgra8"
//	}
//
// ControlMessage (camnode.control.{id}.{action}):
//
//	{
//	  "action": "single",
//	  "camera_id": "front",
//	  "timestamp": "2025-01-27T12:00:00Z",
//	  "reason": "scheduled_capture"
//	}
package nats
