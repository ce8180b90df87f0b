package kafkaconsumer

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// jobDedupe remembers the newest job timestamp stored per job id.
type jobDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, int64]
}

func newJobDedupe(size int) *jobDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, int64](size)
	return &jobDedupe{lru: c}
}

// returns true if the job has not been stored at ts or later
func (d *jobDedupe) shouldProcess(id string, ts int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(id); ok && ts <= last {
		return false
	}
	return true
}

func (d *jobDedupe) markDone(id string, ts int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(id); ok && ts <= last {
		return
	}
	d.lru.Add(id, ts)
}
