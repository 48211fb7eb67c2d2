package epoch_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/frobware/ebpfcore/epoch"
)

func TestSynchronizeRunsDeferredWork(t *testing.T) {
	d := epoch.NewDomain()

	ran := false
	d.Defer(func() { ran = true })
	d.Synchronize()

	assert.True(t, ran)
}

func TestSynchronizeWaitsForActiveReader(t *testing.T) {
	d := epoch.NewDomain()

	tok := d.Enter()

	ran := make(chan struct{})
	d.Defer(func() { close(ran) })

	done := make(chan struct{})
	go func() {
		d.Synchronize()
		close(done)
	}()

	select {
	case <-ran:
		t.Fatal("deferred work ran before the active reader exited")
	case <-time.After(20 * time.Millisecond):
	}

	d.Exit(tok)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("deferred work never ran after reader exited")
	}
	<-done
}

func TestSynchronizeOnEmptyDomainDoesNotBlock(t *testing.T) {
	d := epoch.NewDomain()

	done := make(chan struct{})
	go func() {
		d.Synchronize()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("synchronize blocked with no active readers")
	}
}

func TestConcurrentEnterExit(t *testing.T) {
	d := epoch.NewDomain()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok := d.Enter()
			d.Exit(tok)
		}()
	}
	wg.Wait()

	d.Synchronize()
}
