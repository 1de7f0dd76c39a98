package reminder

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nhle/remindme/internal/notify"
)

var (
	ErrWorkerStopped   = errors.New("reminder: worker stopped")
	ErrInvalidInterval = errors.New("reminder: invalid interval")
)

// Fired is emitted each time a task's timer elapses.
type Fired struct {
	ID    string
	Title string
	At    time.Time
}

type armed struct {
	gen      uint64
	title    string
	interval time.Duration
	timer    *time.Timer
}

type firing struct {
	id  string
	gen uint64
}

// Worker is the background execution context holding reminder timers.
// It is reachable only through Post, which hands it encoded commands; it
// never touches the task store.
type Worker struct {
	mu       sync.Mutex
	postMu   sync.RWMutex // guards stopped against in-flight sends
	timers   map[string]*armed
	gen      uint64
	inbox    chan []byte
	fires    chan firing
	out      chan Fired
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	stopped  bool
	dropped  uint64
	notifier notify.Notifier
}

// NewWorker creates a worker whose Fired channel buffers bufferSize
// events. n may be nil when the host has no notification capability.
func NewWorker(bufferSize int, n notify.Notifier) *Worker {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Worker{
		timers:   make(map[string]*armed),
		inbox:    make(chan []byte, 64),
		fires:    make(chan firing, 16),
		out:      make(chan Fired, bufferSize),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		notifier: n,
	}
}

// C delivers firings. It is closed when the worker stops.
func (w *Worker) C() <-chan Fired {
	return w.out
}

func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.loop()
}

// Stop disarms every timer and waits for the loop to exit. Commands
// posted after Stop has begun are rejected.
func (w *Worker) Stop() {
	w.postMu.Lock()
	w.mu.Lock()
	if !w.started || w.stopped {
		w.stopped = true
		w.mu.Unlock()
		w.postMu.Unlock()
		return
	}
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()
	w.postMu.Unlock()
	<-w.doneCh
}

// Post encodes cmd and enqueues it. Commands are applied in the order
// posted.
func (w *Worker) Post(cmd Command) error {
	if s, ok := cmd.(ScheduleReminder); ok && s.Interval <= 0 {
		return ErrInvalidInterval
	}
	data, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}

	w.postMu.RLock()
	defer w.postMu.RUnlock()
	if w.stopped {
		return ErrWorkerStopped
	}
	w.inbox <- data
	return nil
}

// Dropped returns the number of firings discarded because the consumer
// of C was not keeping up.
func (w *Worker) Dropped() uint64 {
	return atomic.LoadUint64(&w.dropped)
}

func (w *Worker) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

func (w *Worker) armedInterval(id string) (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.timers[id]
	if !ok {
		return 0, false
	}
	return a.interval, true
}

func (w *Worker) loop() {
	defer close(w.doneCh)
	defer close(w.out)

	for {
		select {
		case data := <-w.inbox:
			cmd, err := DecodeCommand(data)
			if err != nil {
				log.Printf("reminder: worker: %v", err)
				continue
			}
			w.apply(cmd)
		case f := <-w.fires:
			w.fire(f)
		case <-w.stopCh:
			w.disarmAll()
			return
		}
	}
}

func (w *Worker) apply(cmd Command) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch c := cmd.(type) {
	case ScheduleReminder:
		if prev, ok := w.timers[c.ID]; ok {
			prev.timer.Stop()
		}
		w.gen++
		a := &armed{gen: w.gen, title: c.Title, interval: c.Interval}
		a.timer = w.arm(c.ID, a)
		w.timers[c.ID] = a
	case CancelReminder:
		if prev, ok := w.timers[c.ID]; ok {
			prev.timer.Stop()
			delete(w.timers, c.ID)
		}
	}
}

func (w *Worker) fire(f firing) {
	w.mu.Lock()
	a, ok := w.timers[f.id]
	if !ok || a.gen != f.gen {
		// Superseded or cancelled after the timer had already elapsed.
		w.mu.Unlock()
		return
	}
	a.timer = w.arm(f.id, a)
	title := a.title
	w.mu.Unlock()

	select {
	case w.out <- Fired{ID: f.id, Title: title, At: time.Now()}:
	default:
		atomic.AddUint64(&w.dropped, 1)
	}
	if w.notifier != nil {
		go notify.Send(w.notifier, "Reminder", title)
	}
}

func (w *Worker) arm(id string, a *armed) *time.Timer {
	f := firing{id: id, gen: a.gen}
	return time.AfterFunc(a.interval, func() {
		select {
		case w.fires <- f:
		case <-w.stopCh:
		}
	})
}

func (w *Worker) disarmAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, a := range w.timers {
		a.timer.Stop()
		delete(w.timers, id)
	}
}
