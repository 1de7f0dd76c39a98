package sync

import (
	"context"
	"fmt"
	"log"
	"strings"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/notify"
	"github.com/nhle/remindme/internal/reminder"
)

// defaultInterval is the sweep cadence when none is configured.
const defaultInterval = 120 * time.Second

// sweepTimeout is the maximum time allowed for the store work of a sweep.
const sweepTimeout = 10 * time.Second

// OverdueMsg is a tea.Msg sent after every sweep.
type OverdueMsg struct {
	Tasks    []model.Task
	At       time.Time
	Advanced int
}

// Source is the task store as seen by the poller.
type Source interface {
	List() []model.Task
	Rollover(ctx context.Context, now time.Time) (int, error)
}

// Options configures a Poller. Nil capabilities are skipped.
type Options struct {
	Interval time.Duration
	Notifier notify.Notifier
	Speaker  notify.Speaker
	Now      func() time.Time
}

// Poller periodically sweeps the task list for overdue tasks and raises
// one aggregated notification and one spoken message per sweep. It keeps
// no state between sweeps, so a task that stays overdue is announced
// again on every sweep.
type Poller struct {
	source    Source
	notifier  notify.Notifier
	speaker   notify.Speaker
	interval  time.Duration
	now       func() time.Time
	resultCh  chan OverdueMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a Poller over src.
func New(src Source, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{
		source:    src,
		notifier:  opts.Notifier,
		speaker:   opts.Speaker,
		interval:  opts.Interval,
		now:       opts.Now,
		resultCh:  make(chan OverdueMsg, 16),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start returns a tea.Cmd that starts the sweep loop and subscribes to
// its results.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go p.loop(stop)

	return p.waitForResult()
}

// Stop halts the sweep loop. A stopped poller may be started again.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// RefreshNow triggers an immediate sweep.
func (p *Poller) RefreshNow() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A sweep is already pending.
	}
	return nil
}

// WaitForNextResult returns a tea.Cmd that waits for the next sweep.
// This should be called after processing an OverdueMsg to continue
// listening for future results.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}

func (p *Poller) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.sendResult(p.Sweep())

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.sendResult(p.Sweep())
		case <-p.triggerCh:
			p.sendResult(p.Sweep())
		}
	}
}

// Sweep advances due recurring tasks, collects the overdue set and, if
// it is non-empty, announces it once.
func (p *Poller) Sweep() OverdueMsg {
	now := p.now()

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	advanced, err := p.source.Rollover(ctx, now)
	if err != nil {
		log.Printf("sweep: advancing recurring tasks: %v", err)
	}

	overdue := reminder.Overdue(p.source.List(), now)
	if len(overdue) > 0 {
		// Speech can take seconds; keep it off the sweep cadence.
		go notify.Send(p.notifier, "Overdue tasks", Summary(overdue))
		go notify.Say(p.speaker, Spoken(overdue))
	}

	return OverdueMsg{Tasks: overdue, At: now, Advanced: advanced}
}

// Summary names the overdue count and up to three titles.
func Summary(overdue []model.Task) string {
	titles := reminder.Titles(overdue, 3)
	s := fmt.Sprintf("%d overdue: %s", len(overdue), strings.Join(titles, ", "))
	if extra := len(overdue) - len(titles); extra > 0 {
		s += fmt.Sprintf(" and %d more", extra)
	}
	return s
}

// Spoken is the sentence read aloud for an overdue set.
func Spoken(overdue []model.Task) string {
	noun := "tasks"
	if len(overdue) == 1 {
		noun = "task"
	}
	return fmt.Sprintf("You have %d overdue %s: %s.",
		len(overdue), noun, strings.Join(reminder.Titles(overdue, 3), ", "))
}

// sendResult sends an OverdueMsg on the result channel without blocking.
func (p *Poller) sendResult(msg OverdueMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}
