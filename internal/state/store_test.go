package state

import (
	"sync"
	"testing"

	"github.com/smazurov/glownode/internal/animation"
)

func TestStoreInitial(t *testing.T) {
	s := New()
	got := s.Snapshot()
	if got.Active != animation.None || got.Progress != 0 {
		t.Errorf("initial snapshot = %+v, want {None 0}", got)
	}
}

func TestSetActiveKeepsProgress(t *testing.T) {
	s := New()
	s.SetProgress(42, animation.PrintProgress)
	s.SetActive(animation.PrintDone)

	got := s.Snapshot()
	if got.Active != animation.PrintDone {
		t.Errorf("Active = %v, want PrintDone", got.Active)
	}
	if got.Progress != 42 {
		t.Errorf("Progress = %d, want 42 (last value retained)", got.Progress)
	}
}

func TestSnapshotNeverTorn(t *testing.T) {
	s := New()

	// Each writer pairs a distinct kind with a distinct progress range, so a
	// torn read shows up as a kind with a progress from another writer.
	writers := []struct {
		kind animation.Kind
		base int
	}{
		{animation.PrintProgress, 0},
		{animation.PrintFailed, 1000},
		{animation.PrintDone, 2000},
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for _, w := range writers {
		wg.Add(1)
		go func(kind animation.Kind, base int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				s.SetProgress(base+i%1000, kind)
			}
		}(w.kind, w.base)
	}

	for i := 0; i < 20000; i++ {
		snap := s.Snapshot()
		for _, w := range writers {
			if snap.Active != w.kind {
				continue
			}
			if snap.Progress < w.base || snap.Progress >= w.base+1000 {
				close(stop)
				wg.Wait()
				t.Fatalf("torn snapshot: %+v", snap)
			}
		}
	}
	close(stop)
	wg.Wait()
}
