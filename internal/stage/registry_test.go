package stage

import "testing"

// newTestRegistry builds a registry with default collaborators.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(Deps{})
}

// TestRegistryOrder tests that the stage order is the fixed pipeline order.
func TestRegistryOrder(t *testing.T) {
	t.Parallel()

	want := []string{
		"fix_orientation",
		"page_split",
		"deskew",
		"select_content",
		"page_layout",
		"output",
	}

	r := newTestRegistry(t)
	if r.StageCount() != len(want) {
		t.Fatalf("StageCount = %d, want %d", r.StageCount(), len(want))
	}

	for i, name := range want {
		s, err := r.StageAt(i)
		if err != nil {
			t.Fatalf("StageAt(%d): %v", i, err)
		}
		if s.Name() != name {
			t.Errorf("StageAt(%d).Name() = %q, want %q", i, s.Name(), name)
		}
		if int(s.ID()) != i {
			t.Errorf("StageAt(%d).ID() = %d, want %d", i, s.ID(), i)
		}
	}
}

// TestRegistryStageAtOutOfRange tests index validation.
func TestRegistryStageAtOutOfRange(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	if _, err := r.StageAt(-1); err == nil {
		t.Error("expected error for negative index")
	}
	if _, err := r.StageAt(Count); err == nil {
		t.Error("expected error for index past the end")
	}
}

// TestRegistryIndexOf tests name lookup.
func TestRegistryIndexOf(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	idx, err := r.IndexOf("deskew")
	if err != nil {
		t.Fatalf("IndexOf(deskew): %v", err)
	}
	if idx != int(DeskewID) {
		t.Errorf("IndexOf(deskew) = %d, want %d", idx, DeskewID)
	}

	if _, err := r.IndexOf("polish"); err == nil {
		t.Error("expected error for unknown stage name")
	}
}

// TestRegistryLastIndex tests the full-pipeline index.
func TestRegistryLastIndex(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	if r.LastIndex() != int(OutputID) {
		t.Errorf("LastIndex = %d, want %d", r.LastIndex(), OutputID)
	}
}
