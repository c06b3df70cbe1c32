package stage

import (
	"sync"
	"testing"

	"github.com/pagetailor/pagetailor/internal/model"
)

// TestStoreGetSet tests basic store operations.
func TestStoreGetSet(t *testing.T) {
	t.Parallel()

	t.Run("missing page reports absence", func(t *testing.T) {
		t.Parallel()

		s := NewStore[DeskewSettings]()
		if _, ok := s.Get(model.NewPageID("a.tif")); ok {
			t.Error("expected absence for unknown page")
		}
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		t.Parallel()

		s := NewStore[DeskewSettings]()
		page := model.NewPageID("a.tif")
		s.Set(page, DeskewSettings{Mode: DeskewManual, Angle: 1.5})

		got, ok := s.Get(page)
		if !ok {
			t.Fatal("expected entry")
		}
		if got.Mode != DeskewManual || got.Angle != 1.5 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("set replaces existing entry", func(t *testing.T) {
		t.Parallel()

		s := NewStore[DeskewSettings]()
		page := model.NewPageID("a.tif")
		s.Set(page, DeskewSettings{Angle: 1})
		s.Set(page, DeskewSettings{Angle: 2})

		got, _ := s.Get(page)
		if got.Angle != 2 {
			t.Errorf("Angle = %v, want 2", got.Angle)
		}
		if s.Len() != 1 {
			t.Errorf("Len = %d, want 1", s.Len())
		}
	})

	t.Run("delete removes entry", func(t *testing.T) {
		t.Parallel()

		s := NewStore[DeskewSettings]()
		page := model.NewPageID("a.tif")
		s.Set(page, DeskewSettings{})
		s.Delete(page)

		if _, ok := s.Get(page); ok {
			t.Error("entry survived delete")
		}
	})
}

// TestStoreSnapshotRestore tests the persistence hooks.
func TestStoreSnapshotRestore(t *testing.T) {
	t.Parallel()

	s := NewStore[OrientationSettings]()
	s.Set(model.NewPageID("a.tif"), OrientationSettings{Rotation: model.Rotation90CW})
	s.Set(model.NewPageID("b.tif"), OrientationSettings{Rotation: model.Rotation180})

	snap := s.Snapshot()

	// Mutating the snapshot must not affect the store.
	snap[model.NewPageID("c.tif")] = OrientationSettings{}
	if s.Len() != 2 {
		t.Errorf("Len = %d after snapshot mutation, want 2", s.Len())
	}

	restored := NewStore[OrientationSettings]()
	restored.Restore(snap)
	got, ok := restored.Get(model.NewPageID("a.tif"))
	if !ok || got.Rotation != model.Rotation90CW {
		t.Errorf("restored entry = %+v, ok = %v", got, ok)
	}
}

// TestStoreConcurrentPages exercises the store under page-parallel access.
func TestStoreConcurrentPages(t *testing.T) {
	t.Parallel()

	s := NewStore[DeskewSettings]()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			page := model.NewPageID(string(rune('a'+n)) + ".tif")
			for j := 0; j < 100; j++ {
				s.Set(page, DeskewSettings{Angle: float64(j)})
				_, _ = s.Get(page)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 16 {
		t.Errorf("Len = %d, want 16", s.Len())
	}
}
