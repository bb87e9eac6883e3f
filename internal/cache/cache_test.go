package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStore_GetSet(t *testing.T) {
	s := New(time.Minute, time.Minute)

	if _, found := s.Get("missing"); found {
		t.Error("Get() on empty store should miss")
	}

	s.Set("key", []float32{1, 2, 3})
	val, found := s.Get("key")
	if !found {
		t.Fatal("Get() should hit after Set()")
	}
	vec := val.([]float32)
	if len(vec) != 3 || vec[0] != 1 {
		t.Errorf("Get() = %v, want [1 2 3]", vec)
	}
}

func TestKey_Deterministic(t *testing.T) {
	if Key("some text") != Key("some text") {
		t.Error("Key() must be deterministic")
	}
	if Key("some text") == Key("other text") {
		t.Error("Key() must differ for different inputs")
	}
}

func TestCompositeKey(t *testing.T) {
	a := CompositeKey("query", "10.1000/a1")
	b := CompositeKey("query", "10.1000/b2")
	if a == b {
		t.Error("CompositeKey() must incorporate the source id")
	}
}

func TestStore_GetOrCompute(t *testing.T) {
	s := New(time.Minute, time.Minute)
	computed := 0

	for i := 0; i < 3; i++ {
		val, err := s.GetOrCompute("key", func() (any, error) {
			computed++
			return 42, nil
		})
		if err != nil {
			t.Fatalf("GetOrCompute() unexpected error: %v", err)
		}
		if val.(int) != 42 {
			t.Errorf("GetOrCompute() = %v, want 42", val)
		}
	}
	if computed != 1 {
		t.Errorf("compute ran %d times, want 1", computed)
	}
}

func TestStore_GetOrCompute_FailuresNotCached(t *testing.T) {
	s := New(time.Minute, time.Minute)
	calls := 0

	_, err := s.GetOrCompute("key", func() (any, error) {
		calls++
		return nil, errors.New("transient")
	})
	if err == nil {
		t.Fatal("GetOrCompute() should propagate the compute error")
	}

	val, err := s.GetOrCompute("key", func() (any, error) {
		calls++
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute() unexpected error after recovery: %v", err)
	}
	if val.(string) != "recovered" || calls != 2 {
		t.Errorf("failure was cached: val=%v calls=%d", val, calls)
	}
}

func TestStore_GetOrCompute_Concurrent(t *testing.T) {
	s := New(time.Minute, time.Minute)
	var mu sync.Mutex
	computed := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := s.GetOrCompute("shared", func() (any, error) {
				mu.Lock()
				computed++
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				return "value", nil
			})
			if err != nil || val.(string) != "value" {
				t.Errorf("GetOrCompute() = %v, %v", val, err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if computed != 1 {
		t.Errorf("compute ran %d times under concurrency, want 1", computed)
	}
}

func TestStore_Stats(t *testing.T) {
	s := New(time.Minute, time.Minute)
	s.Set("a", 1)
	s.Get("a")       // hit
	s.Get("missing") // miss

	stats := s.Stats()
	if stats.Entries != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 entry, 1 hit, 1 miss", stats)
	}
}

func TestStore_Clear(t *testing.T) {
	s := New(time.Minute, time.Minute)
	s.Set("a", 1)
	s.Clear()
	if _, found := s.Get("a"); found {
		t.Error("Get() should miss after Clear()")
	}
}
