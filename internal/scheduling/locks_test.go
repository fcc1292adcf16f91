package scheduling

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLocksExcludeSameKey(t *testing.T) {
	locks := newKeyLocks()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("join|2025-03-01|1")
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside)
	assert.Empty(t, locks.locks, "released keys are forgotten")
}

func TestKeyLocksLockAll(t *testing.T) {
	locks := newKeyLocks()
	var wg sync.WaitGroup
	// opposite orders would deadlock without sorting
	for i := 0; i < 20; i++ {
		keys := []string{"a", "b", "c"}
		if i%2 == 1 {
			keys = []string{"c", "b", "a", "a"}
		}
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			locks.LockAll(keys)()
		}(keys)
	}
	wg.Wait()
	assert.Empty(t, locks.locks)
}

func TestSortedUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, sortedUnique([]string{"b", "a", "b"}))
	assert.Empty(t, sortedUnique(nil))
}
