package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestSummaryCounts(t *testing.T) {
	before := GetSummary()

	IncTicks()
	IncTicks()
	IncFaults()
	IncEvents("print_started", "test")
	IncPollErrors("prusalink")
	SetActiveAnimation("none", "print_started")

	after := GetSummary()
	if after.Ticks != before.Ticks+2 {
		t.Errorf("Ticks = %d, want %d", after.Ticks, before.Ticks+2)
	}
	if after.Faults != before.Faults+1 {
		t.Errorf("Faults = %d, want %d", after.Faults, before.Faults+1)
	}
	if after.Events != before.Events+1 {
		t.Errorf("Events = %d, want %d", after.Events, before.Events+1)
	}
	if after.PollErrors != before.PollErrors+1 {
		t.Errorf("PollErrors = %d, want %d", after.PollErrors, before.PollErrors+1)
	}
	if after.Active != "print_started" {
		t.Errorf("Active = %q, want print_started", after.Active)
	}
}

func TestSummaryConcurrentAccess(_ *testing.T) {
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				IncTicks()
				IncFrames("print_progress")
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				_ = GetSummary()
			}
		}()
	}
	wg.Wait()
}

func TestHandler(t *testing.T) {
	handler := Handler()
	if handler == nil {
		t.Fatal("expected non-nil handler")
	}

	IncFrames("print_done")
	SetProgress(42)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	for _, want := range []string{
		"glownode_scheduler_frames_total",
		"glownode_progress_percent 42",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
