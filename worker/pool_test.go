package worker

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
)

func TestPoolRuns(t *testing.T) {
	p := NewPool(2)
	var counter int32
	var uuids []string
	for i := 0; i < 5; i++ {
		uuid := p.Submit("count", func() error {
			atomic.AddInt32(&counter, 1)
			return nil
		})
		uuids = append(uuids, uuid)
	}
	for _, uuid := range uuids {
		if err := p.Wait(uuid); err != nil {
			t.Fatalf("request %s: %v", uuid, err)
		}
	}
	if counter != 5 {
		t.Errorf("ran %d requests; want 5", counter)
	}
}

func TestPoolError(t *testing.T) {
	p := NewPool(1)
	uuid := p.Submit("fail", func() error {
		return fmt.Errorf("bad input")
	})
	err := p.Wait(uuid)
	if err == nil || err.Error() != "bad input" {
		t.Errorf("Wait = %v; want bad input", err)
	}
	res, _, err := p.Status(uuid)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Done || res.Error == nil {
		t.Errorf("Status after failure = %+v", res)
	}
}

func TestPoolQueuePosition(t *testing.T) {
	p := NewPool(1)
	release := make(chan bool)
	started := make(chan bool)
	first := p.Submit("block", func() error {
		started <- true
		<-release
		return nil
	})
	<-started
	second := p.Submit("queued", func() error { return nil })

	res, pos, err := p.Status(second)
	if err != nil {
		t.Fatal(err)
	}
	if res.Done || pos != 0 {
		t.Errorf("queued request: done=%v pos=%d; want pending at position 0", res.Done, pos)
	}

	res, pos, err = p.Status(first)
	if err != nil {
		t.Fatal(err)
	}
	if res.Done || pos != -1 {
		t.Errorf("running request: done=%v pos=%d; want running", res.Done, pos)
	}

	close(release)
	if err := p.Wait(second); err != nil {
		t.Fatal(err)
	}
}

// a panicking request must fail its own result, not kill the runner
func TestPoolRecoversPanic(t *testing.T) {
	p := NewPool(1)
	uuid := p.Submit("explode", func() error {
		panic("training blew up")
	})
	err := p.Wait(uuid)
	if err == nil {
		t.Fatalf("panicking request should report an error")
	}
	if !strings.Contains(err.Error(), "training blew up") {
		t.Errorf("error should carry the panic value, got: %v", err)
	}

	// the runner must still be alive to serve the next request
	next := p.Submit("ok", func() error { return nil })
	if err := p.Wait(next); err != nil {
		t.Errorf("pool dead after panic: %v", err)
	}
}

func TestPoolResultEviction(t *testing.T) {
	p := NewPool(1)
	first := p.Submit("first", func() error { return nil })
	var last string
	for i := 0; i < maxResults; i++ {
		last = p.Submit("filler", func() error { return nil })
	}
	if err := p.Wait(last); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Status(first); err == nil {
		t.Errorf("oldest result should have been evicted")
	}
	if res, _, err := p.Status(last); err != nil || !res.Done {
		t.Errorf("latest result should be retained: res=%+v err=%v", res, err)
	}
}

func TestPoolUnknownUUID(t *testing.T) {
	p := NewPool(1)
	if _, _, err := p.Status("nope"); err == nil {
		t.Errorf("Status of unknown UUID should fail")
	}
	if err := p.Wait("nope"); err == nil {
		t.Errorf("Wait of unknown UUID should fail")
	}
}
