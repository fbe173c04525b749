package keylock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/briarpatch/jeopardy-coordinator/internal/keylock"
)

func TestWithLockSerializesSameKey(t *testing.T) {
	r := keylock.NewRegistry()
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.WithLock("game-a", func() {
				cur := counter
				time.Sleep(time.Microsecond)
				counter = cur + 1
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestDistinctKeysDoNotBlockEachOther(t *testing.T) {
	r := keylock.NewRegistry()
	r.Lock("game-a")
	defer r.Unlock("game-a")

	done := make(chan struct{})
	go func() {
		r.WithLock("game-b", func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for a different key blocked unexpectedly")
	}
}
