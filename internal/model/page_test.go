package model

import "testing"

// TestParseSubPage tests sub-page parsing from project file values.
func TestParseSubPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    SubPage
		wantErr bool
	}{
		{name: "single", input: "single", want: SubPageSingle},
		{name: "empty defaults to single", input: "", want: SubPageSingle},
		{name: "left", input: "left", want: SubPageLeft},
		{name: "right", input: "right", want: SubPageRight},
		{name: "case insensitive", input: "Left", want: SubPageLeft},
		{name: "unknown value", input: "middle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSubPage(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSubPage(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestPageIDString tests the log representation of page identifiers.
func TestPageIDString(t *testing.T) {
	t.Parallel()

	t.Run("single page shows base name only", func(t *testing.T) {
		t.Parallel()

		p := NewPageID("/scans/book/001.tif")
		if got := p.String(); got != "001.tif" {
			t.Errorf("String() = %q, want %q", got, "001.tif")
		}
	})

	t.Run("split page shows sub-page", func(t *testing.T) {
		t.Parallel()

		p := PageID{Image: "/scans/book/001.tif", SubPage: SubPageRight}
		if got := p.String(); got != "001.tif (right)" {
			t.Errorf("String() = %q, want %q", got, "001.tif (right)")
		}
	})

	t.Run("usable as map key", func(t *testing.T) {
		t.Parallel()

		m := map[PageID]int{
			{Image: "a.tif", SubPage: SubPageLeft}:  1,
			{Image: "a.tif", SubPage: SubPageRight}: 2,
		}
		if m[PageID{Image: "a.tif", SubPage: SubPageLeft}] != 1 {
			t.Error("left sub-page lookup failed")
		}
		if m[PageID{Image: "a.tif", SubPage: SubPageRight}] != 2 {
			t.Error("right sub-page lookup failed")
		}
	})
}
