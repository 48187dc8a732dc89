package agent

import (
	"testing"
	"time"
)

func TestSampleRing_AppendAndTail(t *testing.T) {
	r := newSampleRing(3)

	for i := 0; i < 3; i++ {
		r.Append(Sample{Timestamp: t0.Add(time.Duration(i) * time.Second), Score: float64(i)})
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}

	tail := r.Tail(2)
	if len(tail) != 2 || tail[0].Score != 1 || tail[1].Score != 2 {
		t.Errorf("Tail(2) = %v, want scores [1 2]", tail)
	}
}

func TestSampleRing_FIFOEviction(t *testing.T) {
	r := newSampleRing(3)

	for i := 0; i < 5; i++ {
		r.Append(Sample{Score: float64(i)})
	}
	if r.Len() != 3 {
		t.Fatalf("len after overflow = %d, want 3", r.Len())
	}

	all := r.Snapshot()
	want := []float64{2, 3, 4}
	for i, s := range all {
		if s.Score != want[i] {
			t.Errorf("snapshot[%d].Score = %f, want %f", i, s.Score, want[i])
		}
	}
}

func TestSampleRing_TailLargerThanSize(t *testing.T) {
	r := newSampleRing(5)
	r.Append(Sample{Score: 0.5})

	if tail := r.Tail(10); len(tail) != 1 {
		t.Errorf("Tail(10) on one sample = %d entries, want 1", len(tail))
	}
}

func TestSampleRing_RestoreTruncatesToCapacity(t *testing.T) {
	r := newSampleRing(2)

	r.Restore([]Sample{{Score: 1}, {Score: 2}, {Score: 3}, {Score: 4}})
	if r.Len() != 2 {
		t.Fatalf("len after restore = %d, want 2", r.Len())
	}
	all := r.Snapshot()
	if all[0].Score != 3 || all[1].Score != 4 {
		t.Errorf("restore should keep the most recent samples, got %v", all)
	}
}

func TestSampleRing_RestoreClearsPrevious(t *testing.T) {
	r := newSampleRing(4)
	r.Append(Sample{Score: 9})

	r.Restore([]Sample{{Score: 1}})
	if r.Len() != 1 || r.Snapshot()[0].Score != 1 {
		t.Errorf("restore should replace contents, got %v", r.Snapshot())
	}
}
