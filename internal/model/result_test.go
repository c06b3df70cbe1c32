package model

import "testing"

// TestRunResultIncomplete tests the incompleteness predicate.
func TestRunResultIncomplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result RunResult
		want   bool
	}{
		{
			name:   "all pages processed",
			result: RunResult{Processed: 3, State: RunCompleted},
			want:   false,
		},
		{
			name:   "one page failed",
			result: RunResult{Processed: 2, Failed: 1, State: RunCompleted},
			want:   true,
		},
		{
			name:   "pages skipped",
			result: RunResult{Processed: 1, Skipped: 2, State: RunCompleted},
			want:   true,
		},
		{
			name:   "aborted run",
			result: RunResult{Processed: 1, State: RunAborted},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.result.Incomplete(); got != tt.want {
				t.Errorf("Incomplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestRunResultTotal tests page accounting.
func TestRunResultTotal(t *testing.T) {
	t.Parallel()

	r := RunResult{Processed: 2, Failed: 1, Skipped: 3}
	if got := r.Total(); got != 6 {
		t.Errorf("Total() = %d, want 6", got)
	}
}

// TestRunStateString tests run state rendering.
func TestRunStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state RunState
		want  string
	}{
		{state: RunNotStarted, want: "not started"},
		{state: RunRunning, want: "running"},
		{state: RunCompleted, want: "completed"},
		{state: RunAborted, want: "aborted"},
		{state: RunState(42), want: "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
