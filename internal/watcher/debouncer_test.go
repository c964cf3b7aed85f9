package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveBatch(t *testing.T, d *Debouncer, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case events := <-d.Output():
		return events
	case <-time.After(timeout):
		t.Fatal("timeout waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(30*time.Millisecond, nil)
	defer d.Stop()

	// When: a single event is added
	d.Add(FileEvent{Path: "guide.md", Operation: OpCreate, Timestamp: time.Now()})

	// Then: it passes through after the window
	events := receiveBatch(t, d, time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, "guide.md", events[0].Path)
	assert.Equal(t, OpCreate, events[0].Operation)
}

func TestDebouncer_BurstBecomesOneBatch(t *testing.T) {
	// Given: a debouncer
	d := NewDebouncer(80*time.Millisecond, nil)
	defer d.Stop()

	// When: a burst of saves hits several files
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "b.md", Operation: OpModify})
		d.Add(FileEvent{Path: "a.md", Operation: OpModify})
		time.Sleep(10 * time.Millisecond)
	}

	// Then: one batch, one event per path, sorted
	events := receiveBatch(t, d, time.Second)
	require.Len(t, events, 2)
	assert.Equal(t, "a.md", events[0].Path)
	assert.Equal(t, "b.md", events[1].Path)

	select {
	case extra := <-d.Output():
		t.Fatalf("unexpected second batch: %v", extra)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name   string
		first  Operation
		next   Operation
		want   Operation
		wantOK bool
	}{
		{"create then modify stays create", OpCreate, OpModify, OpCreate, true},
		{"create then delete cancels", OpCreate, OpDelete, 0, false},
		{"modify then delete is delete", OpModify, OpDelete, OpDelete, true},
		{"modify then modify is modify", OpModify, OpModify, OpModify, true},
		{"delete then create is modify", OpDelete, OpCreate, OpModify, true},
		{"rename keeps latest", OpRename, OpCreate, OpCreate, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := FileEvent{Path: "x.md", Operation: tt.first}
			next := FileEvent{Path: "x.md", Operation: tt.next}

			got, ok := coalesce(tt.first, pending, next)

			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got.Operation)
			}
		})
	}
}

func TestDebouncer_CreateThenDelete_NoEvent(t *testing.T) {
	// Given: a debouncer
	d := NewDebouncer(30*time.Millisecond, nil)
	defer d.Stop()

	// When: a temp file appears and disappears
	d.Add(FileEvent{Path: "draft.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "draft.md", Operation: OpDelete})

	// Then: nothing is emitted
	select {
	case events := <-d.Output():
		t.Fatalf("expected no batch, got %v", events)
	case <-time.After(120 * time.Millisecond):
	}
}

func TestDebouncer_StopClosesOutputAndIgnoresLateEvents(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, nil)
	d.Add(FileEvent{Path: "a.md", Operation: OpModify})

	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "b.md", Operation: OpModify})

	_, open := <-d.Output()
	assert.False(t, open)
}
