package circulation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMutex_SerializesSameKey(t *testing.T) {
	m := newKeyMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("copy-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyMutex_IndependentKeysDoNotBlock(t *testing.T) {
	m := newKeyMutex()

	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := m.Lock("b")
		unlockB()
		close(done)
	}()

	<-done
}

func TestKeyMutex_OverlappingSetsNoDeadlock(t *testing.T) {
	m := newKeyMutex()

	// opposite declaration order; sorted acquisition prevents the deadlock
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := m.Lock("user-1", "copy-1")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := m.Lock("copy-1", "user-1")
			unlock()
		}()
	}
	wg.Wait()
}

func TestKeyMutex_DuplicateKeys(t *testing.T) {
	m := newKeyMutex()

	unlock := m.Lock("k", "k", "k")
	unlock()

	// map must be empty again once everything is released
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.locks)
}
