package api

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/camnode/camnode/internal/events"
)

// readSSELines feeds every data line of an SSE stream into a channel.
func readSSELines(body *bufio.Scanner, dataChan chan<- string) {
	for body.Scan() {
		line := body.Text()
		if strings.HasPrefix(line, "data:") {
			dataChan <- line
		}
	}
}

// publishUntilReceived publishes ev on a ticker until received closes.
// The SSE handler subscribes after the request reaches it, so a single
// publish could land before the subscription exists.
func publishUntilReceived(bus *events.Bus, ev events.Event, received <-chan struct{}) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-received:
			return
		case <-ticker.C:
			bus.Publish(ev)
		}
	}
}

func TestSSEConnectionAndEvents(t *testing.T) {
	ts, _, bus := newTestServer(t, nil)

	received := make(chan struct{})
	defer close(received)
	go publishUntilReceived(bus, events.CameraStateChangedEvent{
		CameraID:  "front",
		OldState:  "ready",
		NewState:  "capturing_single",
		Timestamp: time.Now().Format(time.RFC3339),
	}, received)

	sseURL := fmt.Sprintf("%s/api/events?auth=%s", ts.URL, testCredentials())
	resp, err := http.Get(sseURL)
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	dataChan := make(chan string, 10)
	go readSSELines(bufio.NewScanner(resp.Body), dataChan)

	select {
	case msg := <-dataChan:
		if !strings.Contains(msg, `"camera_id":"front"`) {
			t.Errorf("Expected camera_id front in event, got: %s", msg)
		}
		if !strings.Contains(msg, `"new_state":"capturing_single"`) {
			t.Errorf("Expected new_state capturing_single in event, got: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for state change event")
	}
}

func TestSSEDeliversPoolEvents(t *testing.T) {
	ts, _, bus := newTestServer(t, nil)

	received := make(chan struct{})
	defer close(received)
	go publishUntilReceived(bus, events.PoolTrimmedEvent{
		Freed:     6,
		Timestamp: time.Now().Format(time.RFC3339),
	}, received)

	sseURL := fmt.Sprintf("%s/api/events?auth=%s", ts.URL, testCredentials())
	resp, err := http.Get(sseURL)
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	dataChan := make(chan string, 10)
	go readSSELines(bufio.NewScanner(resp.Body), dataChan)

	select {
	case msg := <-dataChan:
		if !strings.Contains(msg, `"freed":6`) {
			t.Errorf("Expected freed count in event, got: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for pool trim event")
	}
}

func TestSSELogStream(t *testing.T) {
	ts, _, bus := newTestServer(t, nil)

	received := make(chan struct{})
	defer close(received)
	go publishUntilReceived(bus, events.LogEntryEvent{
		Seq:       42,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     "info",
		Module:    "cameras",
		Message:   "Camera added",
	}, received)

	sseURL := fmt.Sprintf("%s/api/logs/stream?auth=%s", ts.URL, testCredentials())
	resp, err := http.Get(sseURL)
	if err != nil {
		t.Fatalf("Failed to connect to log stream: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	dataChan := make(chan string, 10)
	go readSSELines(bufio.NewScanner(resp.Body), dataChan)

	select {
	case msg := <-dataChan:
		if !strings.Contains(msg, "Camera added") || !strings.Contains(msg, `"module":"cameras"`) {
			t.Errorf("Expected log entry event, got: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for log entry event")
	}
}

func TestSSEAuthFailure(t *testing.T) {
	ts, _, _ := newTestServer(t, nil)

	// No credentials
	resp, err := http.Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", resp.StatusCode)
	}

	// Wrong credentials via the query parameter
	resp, err = http.Get(ts.URL + "/api/events?auth=d3Jvbmc6d3Jvbmc=")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected status 401 for wrong auth, got %d", resp.StatusCode)
	}
}
