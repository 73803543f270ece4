package engine

import (
	"sync"
	"testing"
	"time"
)

func TestProfileLockSerializesSameProfile(t *testing.T) {
	reg := newLockRegistry()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.withProfileLock("chief-1", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

func TestProfileLockIndependentProfiles(t *testing.T) {
	reg := newLockRegistry()

	// Hold chief-1's lock; chief-2 must still proceed.
	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = reg.withProfileLock("chief-1", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan struct{})
	go func() {
		_ = reg.withProfileLock("chief-2", func() error {
			close(done)
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chief-2 blocked behind chief-1's lock")
	}
	close(release)
}

func TestProfileLockReuse(t *testing.T) {
	reg := newLockRegistry()
	if reg.get("chief-1") != reg.get("chief-1") {
		t.Error("same profile id must map to the same lock")
	}
	if reg.get("chief-1") == reg.get("chief-2") {
		t.Error("distinct profiles must not share a lock")
	}
}
