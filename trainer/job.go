package trainer

import (
	"sync"

	"github.com/plantops/forgeml/preprocessing"
)

// Job runs Train on its own goroutine and relays its progress as a channel.
//
// The training goroutine never blocks on the consumer: events are queued and
// forwarded by a relay goroutine. Events closes after the last event has
// been delivered. Consumers that stop reading must call Abandon so the relay
// can exit.
type Job struct {
	events  chan Progress
	done    chan struct{}
	notify  chan struct{}
	abandon chan struct{}
	once    sync.Once

	mu       sync.Mutex
	queue    []Progress
	finished bool

	models []*TrainedModel
	err    error
}

// Start launches a training run. The progress option, if any, is replaced by
// the job's own relay.
func Start(rows []preprocessing.Row, cfg Config, opts ...Option) *Job {
	j := &Job{
		events:  make(chan Progress, 16),
		done:    make(chan struct{}),
		notify:  make(chan struct{}, 1),
		abandon: make(chan struct{}),
	}
	opts = append(append([]Option(nil), opts...), WithProgress(j.enqueue))

	go j.relay()
	go func() {
		models, err := Train(rows, cfg, opts...)
		j.mu.Lock()
		j.models, j.err = models, err
		j.finished = true
		j.mu.Unlock()
		j.signal()
		close(j.done)
	}()
	return j
}

func (j *Job) enqueue(p Progress) {
	j.mu.Lock()
	j.queue = append(j.queue, p)
	j.mu.Unlock()
	j.signal()
}

func (j *Job) signal() {
	select {
	case j.notify <- struct{}{}:
	default:
	}
}

func (j *Job) relay() {
	defer close(j.events)
	for {
		j.mu.Lock()
		batch := j.queue
		j.queue = nil
		finished := j.finished
		j.mu.Unlock()

		for _, p := range batch {
			select {
			case j.events <- p:
			case <-j.abandon:
				return
			}
		}
		if finished && len(batch) == 0 {
			return
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-j.notify:
		case <-j.abandon:
			return
		}
	}
}

// Events returns the ordered progress stream.
func (j *Job) Events() <-chan Progress {
	return j.events
}

// Done is closed when training has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until training finishes and returns its result.
// It does not require Events to be drained.
func (j *Job) Wait() ([]*TrainedModel, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.models, j.err
}

// Abandon stops relaying events and closes Events. The training goroutine
// keeps running to completion; its result remains available through Wait.
func (j *Job) Abandon() {
	j.once.Do(func() { close(j.abandon) })
}
