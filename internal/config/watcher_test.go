package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type watchedSettings struct {
	Label string `toml:"label"`
	Gain  int    `toml:"gain"`
}

func loadSettings(path string) (watchedSettings, error) {
	var s watchedSettings
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	err = toml.Unmarshal(data, &s)
	return s, err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rewrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to rewrite %s: %v", path, err)
	}
}

func mustStart[T any](t *testing.T, w *Watcher[T]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	// Give fsnotify a moment to arm before the test writes.
	time.Sleep(100 * time.Millisecond)
}

func TestWatcherReload(t *testing.T) {
	path := writeConfigFile(t, "label = \"cold\"\ngain = 1\n")

	received := make(chan watchedSettings, 1)
	w := NewConfigWatcher(path, loadSettings, testLogger(),
		WithDebounce[watchedSettings](50*time.Millisecond))
	w.OnReload(func(s watchedSettings) {
		received <- s
	})
	mustStart(t, w)

	rewrite(t, path, "label = \"warm\"\ngain = 8\n")

	select {
	case s := <-received:
		if s.Label != "warm" || s.Gain != 8 {
			t.Errorf("Expected label=warm gain=8, got %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
}

func TestWatcherLoadsFreshEachChange(t *testing.T) {
	path := writeConfigFile(t, "gain = 1\n")

	var loads atomic.Int32
	loader := func(p string) (watchedSettings, error) {
		loads.Add(1)
		return loadSettings(p)
	}

	received := make(chan watchedSettings, 8)
	w := NewConfigWatcher(path, loader, testLogger(),
		WithDebounce[watchedSettings](50*time.Millisecond))
	w.OnReload(func(s watchedSettings) {
		received <- s
	})
	mustStart(t, w)

	rewrite(t, path, "gain = 10\n")
	<-received

	time.Sleep(100 * time.Millisecond)
	rewrite(t, path, "gain = 20\n")
	s := <-received

	if s.Gain != 20 {
		t.Errorf("Expected latest gain 20, got %d", s.Gain)
	}
	if got := loads.Load(); got < 2 {
		t.Errorf("Expected a fresh load per change, got %d loads", got)
	}
}

func TestWatcherFanout(t *testing.T) {
	path := writeConfigFile(t, "label = \"a\"\ngain = 1\n")

	received := make(chan watchedSettings, 3)
	w := NewConfigWatcher(path, loadSettings, testLogger(),
		WithDebounce[watchedSettings](50*time.Millisecond))
	for range 3 {
		w.OnReload(func(s watchedSettings) {
			received <- s
		})
	}
	mustStart(t, w)

	rewrite(t, path, "label = \"b\"\ngain = 2\n")

	deadline := time.After(2 * time.Second)
	for i := 0; i < 3; i++ {
		select {
		case s := <-received:
			if s.Label != "b" || s.Gain != 2 {
				t.Errorf("Handler %d got wrong snapshot: %+v", i, s)
			}
		case <-deadline:
			t.Fatalf("Timed out after %d of 3 handlers fired", i)
		}
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := writeConfigFile(t, "gain = 1\n")

	first := make(chan int, 4)
	second := make(chan int, 4)
	w := NewConfigWatcher(path, loadSettings, testLogger(),
		WithDebounce[watchedSettings](50*time.Millisecond))
	w.OnReload(func(s watchedSettings) {
		first <- s.Gain
	})
	unsub := w.OnReload(func(s watchedSettings) {
		second <- s.Gain
	})
	mustStart(t, w)

	rewrite(t, path, "gain = 10\n")
	waitFor(t, first, 10)
	waitFor(t, second, 10)

	unsub()

	rewrite(t, path, "gain = 20\n")
	waitFor(t, first, 20)

	// The removed handler must not see the second change.
	select {
	case g := <-second:
		t.Errorf("Unsubscribed handler fired with gain %d", g)
	case <-time.After(200 * time.Millisecond):
	}
}

func waitFor(t *testing.T, ch chan int, want int) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("Expected gain %d, got %d", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for gain %d", want)
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := writeConfigFile(t, "label = \"ok\"\n")

	loadErrs := make(chan error, 1)
	reloaded := make(chan watchedSettings, 1)
	w := NewConfigWatcher(path, loadSettings, testLogger(),
		WithDebounce[watchedSettings](50*time.Millisecond),
		WithErrorHandler[watchedSettings](func(err error) {
			loadErrs <- err
		}))
	w.OnReload(func(s watchedSettings) {
		reloaded <- s
	})
	mustStart(t, w)

	rewrite(t, path, "broken toml [[[")

	select {
	case <-loadErrs:
	case s := <-reloaded:
		t.Fatalf("Handlers must not run on a load error, got %+v", s)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the error handler")
	}
}

func TestWatcherDebounce(t *testing.T) {
	path := writeConfigFile(t, "gain = 0\n")

	var fired atomic.Int32
	var last atomic.Int32
	w := NewConfigWatcher(path, loadSettings, testLogger(),
		WithDebounce[watchedSettings](200*time.Millisecond))
	w.OnReload(func(s watchedSettings) {
		fired.Add(1)
		last.Store(int32(s.Gain))
	})
	mustStart(t, w)

	// Burst of writes inside one debounce window.
	for i := 1; i <= 5; i++ {
		rewrite(t, path, fmt.Sprintf("gain = %d\n", i))
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("Expected the burst to coalesce into 1 reload, got %d", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("Expected the final write to win, got gain %d", got)
	}
}

func TestWatcherConcurrentSubscribe(t *testing.T) {
	path := writeConfigFile(t, "gain = 0\n")

	w := NewConfigWatcher(path, loadSettings, testLogger(),
		WithDebounce[watchedSettings](10*time.Millisecond))
	mustStart(t, w)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := w.OnReload(func(watchedSettings) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}

	// Keep reloads flowing while handlers churn.
	for i := range 10 {
		rewrite(t, path, fmt.Sprintf("gain = %d\n", i))
		time.Sleep(20 * time.Millisecond)
	}
	wg.Wait()
}

func TestWatcherStop(t *testing.T) {
	path := writeConfigFile(t, "gain = 1\n")

	var fired atomic.Int32
	w := NewConfigWatcher(path, loadSettings, testLogger(),
		WithDebounce[watchedSettings](50*time.Millisecond))
	w.OnReload(func(watchedSettings) {
		fired.Add(1)
	})

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Second Stop should be a no-op, got %v", err)
	}

	rewrite(t, path, "gain = 99\n")
	time.Sleep(200 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Errorf("Expected no reloads after Stop, got %d", got)
	}
}
