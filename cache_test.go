package htmlentry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/entrykit/htmlentry/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStoreResolveMemoizesSuccess(t *testing.T) {
	s := NewStore()
	var calls int32

	for i := 0; i < 3; i++ {
		text, err := s.Resolve("a", func() (string, error) {
			atomic.AddInt32(&calls, 1)
			return "body", nil
		})
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if text != "body" {
			t.Errorf("resolve %d: got %q, want %q", i, text, "body")
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("resolve ran %d times, want 1", n)
	}
}

func TestStoreResolveMemoizesFailure(t *testing.T) {
	s := NewStore()
	var calls int32
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, err := s.Resolve("a", func() (string, error) {
			atomic.AddInt32(&calls, 1)
			return "", boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("resolve %d: got %v, want %v", i, err, boom)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("failed resolve ran %d times, want 1", n)
	}
}

func TestStoreResolveCoalescesConcurrent(t *testing.T) {
	s := NewStore()
	var calls int32
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			text, err := s.Resolve("a", func() (string, error) {
				atomic.AddInt32(&calls, 1)
				return "shared", nil
			})
			if err != nil || text != "shared" {
				t.Errorf("resolve: got %q, %v", text, err)
			}
		}()
	}
	close(gate)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("resolve ran %d times under contention, want 1", n)
	}
}

func TestStoreRecordsOneMetricPerLookup(t *testing.T) {
	s := NewStore()
	m := monitoring.New()
	s.instrument("script", m)

	for i := 0; i < 3; i++ {
		if _, err := s.Resolve("a", func() (string, error) { return "x", nil }); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}

	if got := testutil.ToFloat64(m.CacheMisses.WithLabelValues("script")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheHits.WithLabelValues("script")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
}

func TestStoreInstrumentFirstWins(t *testing.T) {
	s := NewStore()
	first := monitoring.New()
	second := monitoring.New()
	s.instrument("script", first)
	s.instrument("style", second)

	s.Resolve("a", func() (string, error) { return "x", nil })

	if got := testutil.ToFloat64(first.CacheMisses.WithLabelValues("script")); got != 1 {
		t.Errorf("first sink misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(second.CacheMisses.WithLabelValues("style")); got != 0 {
		t.Errorf("second sink misses = %v, want 0", got)
	}
}

func TestStoreInstrumentConcurrentWithResolve(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			s.Resolve(key, func() (string, error) { return key, nil })
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.instrument("script", monitoring.New())
	}()
	wg.Wait()
}

func TestStoreKeysAreIndependent(t *testing.T) {
	s := NewStore()

	a, _ := s.Resolve("a", func() (string, error) { return "A", nil })
	b, _ := s.Resolve("b", func() (string, error) { return "B", nil })

	if a != "A" || b != "B" {
		t.Errorf("got %q, %q; want A, B", a, b)
	}
}
