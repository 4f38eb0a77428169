package watcher

import (
	"context"
	"os"
	"testing"
	"time"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestDebouncerBatchesBursts(t *testing.T) {
	input := make(chan ChangeEvent, 10)
	d := NewDebouncer(input, 50*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Paths: []string{"doc.json"}, Timestamp: time.Now()}
	input <- ChangeEvent{Paths: []string{"doc.json"}, Timestamp: time.Now()}
	input <- ChangeEvent{Paths: []string{"doc.json"}, Timestamp: time.Now()}

	select {
	case event := <-d.Output():
		if len(event.Paths) != 3 {
			t.Errorf("Expected 3 accumulated paths, got %d", len(event.Paths))
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for debounced event")
	}

	select {
	case extra := <-d.Output():
		t.Errorf("Expected a single batch, got another: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerMaxWaitForcesFlush(t *testing.T) {
	input := make(chan ChangeEvent, 100)
	d := NewDebouncer(input, 200*time.Millisecond, 300*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep the input busy so the quiet period never elapses.
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(600 * time.Millisecond)
		for time.Now().Before(deadline) {
			input <- ChangeEvent{Paths: []string{"doc.json"}, Timestamp: time.Now()}
			time.Sleep(50 * time.Millisecond)
		}
	}()

	select {
	case <-d.Output():
		// Flushed despite constant churn.
	case <-time.After(time.Second):
		t.Fatal("Expected max wait to force a flush")
	}
	<-done
}

func TestDebouncerFlushesOnShutdown(t *testing.T) {
	input := make(chan ChangeEvent, 10)
	d := NewDebouncer(input, time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	input <- ChangeEvent{Paths: []string{"doc.json"}, Timestamp: time.Now()}
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case event, ok := <-d.Output():
		if !ok {
			t.Fatal("Expected pending batch before close")
		}
		if len(event.Paths) != 1 {
			t.Errorf("Expected 1 path, got %d", len(event.Paths))
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for shutdown flush")
	}
}

func TestDocumentWatcherFiltersToWatchedFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/doc.json"
	if err := writeFile(path, `{"nodes": []}`); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	dw, err := NewDocumentWatcher(path)
	if err != nil {
		t.Fatalf("NewDocumentWatcher failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := dw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A change to an unrelated file in the same directory is ignored.
	if err := writeFile(dir+"/other.json", "{}"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	select {
	case event := <-dw.Events():
		t.Errorf("Expected unrelated file ignored, got %+v", event)
	case <-time.After(300 * time.Millisecond):
	}

	if err := writeFile(path, `{"nodes": [{"id": "n1"}]}`); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	select {
	case event := <-dw.Events():
		if len(event.Paths) == 0 {
			t.Error("Expected changed paths in the event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for change event")
	}
}
