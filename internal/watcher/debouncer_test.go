package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func receive(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(waitFor):
		t.Fatal("timeout waiting for debounced batch")
		return nil
	}
}

func ev(path string, op Operation) FileEvent {
	return FileEvent{Path: path, Operation: op, Timestamp: time.Now()}
}

func TestDebouncer_SingleEventPassesThrough(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	// When: one event is added
	d.Add(ev("docs/+page.md", OpCreate))

	// Then: it is emitted after the window
	batch := receive(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "docs/+page.md", batch[0].Path)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_BurstBecomesOneBatch(t *testing.T) {
	// Given: a debouncer
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: several files change in quick succession
	d.Add(ev("b/+page.md", OpModify))
	d.Add(ev("a/+page.md", OpModify))
	d.Add(ev("b/+page.md", OpModify))

	// Then: one batch, one event per path, sorted by path
	batch := receive(t, d)
	require.Len(t, batch, 2)
	assert.Equal(t, "a/+page.md", batch[0].Path)
	assert.Equal(t, "b/+page.md", batch[1].Path)
}

func TestDebouncer_Coalescing(t *testing.T) {
	tests := []struct {
		name   string
		ops    []Operation
		want   Operation
		cancel bool
	}{
		{"create then modify", []Operation{OpCreate, OpModify}, OpCreate, false},
		{"create then delete", []Operation{OpCreate, OpDelete}, 0, true},
		{"modify then delete", []Operation{OpModify, OpDelete}, OpDelete, false},
		{"delete then create", []Operation{OpDelete, OpCreate}, OpModify, false},
		{"modify then modify", []Operation{OpModify, OpModify}, OpModify, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(20 * time.Millisecond)
			defer d.Stop()

			for _, op := range tt.ops {
				d.Add(ev("x/+page.md", op))
			}
			if tt.cancel {
				// A second path proves the window elapsed.
				d.Add(ev("marker", OpModify))
				batch := receive(t, d)
				require.Len(t, batch, 1)
				assert.Equal(t, "marker", batch[0].Path)
				return
			}

			batch := receive(t, d)
			require.Len(t, batch, 1)
			assert.Equal(t, tt.want, batch[0].Operation)
		})
	}
}

func TestDebouncer_StopClosesOutput(t *testing.T) {
	d := NewDebouncer(time.Hour)
	d.Add(ev("a", OpCreate))

	d.Stop()
	d.Stop()

	_, ok := <-d.Output()
	assert.False(t, ok)
	d.Add(ev("b", OpCreate))
}
