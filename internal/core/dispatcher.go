package core

import "sync"

// Dispatcher runs submitted jobs one at a time, in submission order, on the
// goroutine that called Run.
type Dispatcher struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

func NewDispatcher(size int) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Submit queues job. It blocks only while the queue is full and returns
// false once the dispatcher has been stopped.
func (d *Dispatcher) Submit(job func()) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.queue <- job:
		return true
	case <-d.done:
		return false
	}
}

func (d *Dispatcher) Run() {
	for {
		select {
		case <-d.done:
			return
		case job := <-d.queue:
			job()
		}
	}
}

// Stop ends Run. Jobs still queued are discarded.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.done) })
}

func (d *Dispatcher) Done() <-chan struct{} { return d.done }
