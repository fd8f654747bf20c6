package service

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	const iterations = 1000
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := km.Lock("rule-1")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != 8*iterations {
		t.Fatalf("counter = %d, want %d", counter, 8*iterations)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock("a")

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()

	// a held lock on "a" must not block "b"
	<-done
	unlockA()
}

func TestKeyedMutexCleansUp(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("x")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	if len(km.locks) != 0 {
		t.Fatalf("lock table has %d entries, want 0", len(km.locks))
	}
}
