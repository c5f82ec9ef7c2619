package app

import (
	"sync"
	"testing"
)

func TestKeyedLocksReleaseRemovesEntry(t *testing.T) {
	locks := newKeyedLocks()

	unlock := locks.lock("tenant-1|2024-05-15|easy|alice")
	if locks.size() != 1 {
		t.Fatalf("expected one live entry, got %d", locks.size())
	}
	unlock()
	if locks.size() != 0 {
		t.Fatalf("expected the entry removed after release, got %d", locks.size())
	}
}

func TestKeyedLocksSerializesHoldersAndDrains(t *testing.T) {
	locks := newKeyedLocks()

	const holders = 20
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < holders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("shared")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != holders {
		t.Fatalf("expected %d serialized increments, got %d", holders, counter)
	}
	if locks.size() != 0 {
		t.Fatalf("expected no entries once all holders released, got %d", locks.size())
	}
}

func TestKeyedLocksIndependentKeys(t *testing.T) {
	locks := newKeyedLocks()

	unlockA := locks.lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()

	if locks.size() != 0 {
		t.Fatalf("expected both entries released, got %d", locks.size())
	}
}
