// Package worker runs queued training jobs with a bounded number of
// concurrent slots. Requests are identified by UUID so callers can poll
// queue position and collect results.
package worker

import (
	"fmt"
	"log"
	"sync"

	gouuid "github.com/google/uuid"
)

type Request struct {
	UUID string
	Name string
	Run func() error
}

// Result of a request after it exits the queue.
type Result struct {
	Done bool
	Error error
}

// Completed results are retained for polling; once more than maxResults
// have finished, the oldest are evicted.
const maxResults = 1000

type Pool struct {
	mu sync.Mutex
	cond *sync.Cond
	q []*Request
	running int
	slots int
	results map[string]*Result
	doneOrder []string
}

func NewPool(slots int) *Pool {
	if slots <= 0 {
		slots = 1
	}
	p := &Pool{
		slots: slots,
		results: make(map[string]*Result),
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < slots; i++ {
		go p.runner()
	}
	return p
}

// Submit appends a request to the queue and returns its UUID.
func (p *Pool) Submit(name string, run func() error) string {
	uuid := gouuid.New().String()
	log.Printf("[pool] append new request %s (%s) to the queue", uuid, name)
	p.mu.Lock()
	p.q = append(p.q, &Request{
		UUID: uuid,
		Name: name,
		Run: run,
	})
	p.results[uuid] = &Result{}
	p.cond.Broadcast()
	p.mu.Unlock()
	return uuid
}

func (p *Pool) runner() {
	for {
		p.mu.Lock()
		for len(p.q) == 0 {
			p.cond.Wait()
		}
		req := p.q[0]
		n := copy(p.q[0:], p.q[1:])
		p.q = p.q[0:n]
		p.running++
		p.mu.Unlock()

		log.Printf("[pool] [req %s] starting %s", req.UUID, req.Name)
		err := runRequest(req)
		if err == nil {
			log.Printf("[pool] [req %s] %s finished", req.UUID, req.Name)
		} else {
			log.Printf("[pool] [req %s] %s failed: %v", req.UUID, req.Name, err)
		}

		p.mu.Lock()
		p.running--
		p.results[req.UUID] = &Result{
			Done: true,
			Error: err,
		}
		p.doneOrder = append(p.doneOrder, req.UUID)
		for len(p.doneOrder) > maxResults {
			delete(p.results, p.doneOrder[0])
			p.doneOrder = p.doneOrder[1:]
		}
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// runRequest runs the request function, converting a panic into an error so
// that a misbehaving job cannot take down the runner goroutine.
func runRequest(req *Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("request panicked: %v", r)
		}
	}()
	return req.Run()
}

// Status returns the result for a request, or its position in the queue
// (0-based) if it is still pending. Running requests report position -1.
func (p *Pool) Status(uuid string) (*Result, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := p.results[uuid]
	if res == nil {
		return nil, 0, fmt.Errorf("UUID not found")
	}
	if res.Done {
		return res, 0, nil
	}
	for i, req := range p.q {
		if req.UUID == uuid {
			return res, i, nil
		}
	}
	return res, -1, nil
}

// Wait blocks until the request completes and returns its error.
func (p *Pool) Wait(uuid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		res := p.results[uuid]
		if res == nil {
			return fmt.Errorf("UUID not found")
		}
		if res.Done {
			return res.Error
		}
		p.cond.Wait()
	}
}
