// Package poll owns the background measurement drain.
//
// A single goroutine repeatedly issues GetData against the shared trough
// client, accumulating buffered samples until the pending count reaches
// zero, then hands the batch to the data callback. Failures latch the
// poller until an explicit ClearError; controls travel over an explicit
// channel so state transitions stay race-free.
package poll

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/troughctl/internal/trough"
)

// State is the poller lifecycle state.
type State int32

const (
	StateRunning State = iota
	StateErrorLatched
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateErrorLatched:
		return "error-latched"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IntervalSuspended makes the poller wait indefinitely between cycles
// until a control wakes it.
const IntervalSuspended = time.Duration(-1)

// DataFunc receives one completed batch, oldest sample first.
type DataFunc func(batch []trough.Measurement)

// ErrorFunc receives the failure message and whatever partial batch had
// been accumulated before the cycle failed.
type ErrorFunc func(msg string, partial []trough.Measurement)

// Client is the command surface the poller needs from the trough client.
type Client interface {
	Call(method string, args ...any) (trough.Fields, error)
}

// Config carries the poller construction parameters.
type Config struct {
	// Interval is the pause between poll cycles. Negative values mean
	// suspended: wait until a control wakes the loop.
	Interval time.Duration

	OnData  DataFunc
	OnError ErrorFunc
}

type ctrlKind uint8

const (
	ctrlSetInterval ctrlKind = iota
	ctrlClearError
	ctrlStop
)

type control struct {
	kind     ctrlKind
	interval time.Duration
}

// Poller drains buffered measurements on a cadence. interval is owned by
// the loop goroutine; the atomic mirrors exist for outside observers.
type Poller struct {
	client  Client
	onData  DataFunc
	onError ErrorFunc

	interval time.Duration

	ctrl     chan control
	done     chan struct{}
	stopOnce sync.Once

	state       atomic.Int32
	curInterval atomic.Int64
}

// Start constructs the poller and launches its goroutine. The first
// cycle runs immediately; the interval applies between cycles.
func Start(client Client, cfg Config) *Poller {
	interval := cfg.Interval
	if interval < 0 {
		interval = IntervalSuspended
	}
	p := &Poller{
		client:   client,
		onData:   cfg.OnData,
		onError:  cfg.OnError,
		interval: interval,
		ctrl:     make(chan control, 4),
		done:     make(chan struct{}),
	}
	p.state.Store(int32(StateRunning))
	p.curInterval.Store(int64(interval))
	go p.run()
	return p
}

// State reports the current lifecycle state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

// Interval reports the current polling interval (IntervalSuspended when
// suspended). A pending SetInterval is reflected once the loop applies it.
func (p *Poller) Interval() time.Duration {
	return time.Duration(p.curInterval.Load())
}

// SetInterval updates the polling interval. A strictly shorter interval
// wakes the timer immediately so the new cadence takes effect without
// waiting out the old period; otherwise it applies at the next natural
// wake. Suspending (negative) never wakes early.
func (p *Poller) SetInterval(d time.Duration) {
	if d < 0 {
		d = IntervalSuspended
	}
	p.send(control{kind: ctrlSetInterval, interval: d})
}

// ClearError transitions ErrorLatched back to Running and wakes the
// timer so polling resumes without delay.
func (p *Poller) ClearError() {
	p.send(control{kind: ctrlClearError})
}

// Stop requests shutdown, wakes the timer, and blocks until the loop has
// exited: after Stop returns no poll cycle is in flight and no further
// callback will fire. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.send(control{kind: ctrlStop})
	})
	<-p.done
}

// send delivers a control unless the loop has already exited.
func (p *Poller) send(msg control) {
	select {
	case p.ctrl <- msg:
	case <-p.done:
	}
}

func (p *Poller) run() {
	defer func() {
		p.state.Store(int32(StateStopped))
		close(p.done)
	}()

	for {
		if p.State() == StateRunning {
			p.cycle()
		}
		if stop := p.wait(); stop {
			return
		}
	}
}

// cycle runs one drain to completion. It is never preempted mid-flight;
// shutdown and error state are re-evaluated only between cycles.
func (p *Poller) cycle() {
	batch, err := p.drain()
	if err != nil {
		p.state.Store(int32(StateErrorLatched))
		log.Error().Err(err).Int("partial", len(batch)).Msg("poll cycle failed; latched")
		if p.onError != nil {
			p.onError(err.Error(), batch)
		}
		return
	}
	if p.onData != nil {
		p.onData(batch)
	}
}

// drain invokes GetData until the pending count reaches zero. On failure
// it returns the samples gathered so far alongside the error.
func (p *Poller) drain() ([]trough.Measurement, error) {
	var batch []trough.Measurement
	for {
		fields, err := p.client.Call(trough.MethodGetData)
		if err != nil {
			return batch, err
		}
		m, err := trough.NewMeasurement(fields)
		if err != nil {
			return batch, err
		}
		batch = append(batch, m)
		if m.PendingCount() <= 0 {
			return batch, nil
		}
	}
}

// wait blocks for the current interval, or indefinitely when suspended.
// Controls received while waiting are applied in place; only a strictly
// shorter interval, an error clear, or a stop ends the wait early.
func (p *Poller) wait() (stop bool) {
	var timerC <-chan time.Time
	if p.interval >= 0 {
		timer := time.NewTimer(p.interval)
		defer timer.Stop()
		timerC = timer.C
	}

	for {
		select {
		case <-timerC:
			return false
		case msg := <-p.ctrl:
			switch msg.kind {
			case ctrlStop:
				return true
			case ctrlClearError:
				if p.State() == StateErrorLatched {
					p.state.Store(int32(StateRunning))
				}
				return false
			case ctrlSetInterval:
				prev := p.interval
				p.interval = msg.interval
				p.curInterval.Store(int64(msg.interval))
				if wakesEarly(msg.interval, prev) {
					return false
				}
				// Not shorter: keep waiting out the period already
				// in progress; the new interval applies next wake.
			}
		}
	}
}

// wakesEarly reports whether switching from prev to next should cut the
// in-progress wait short. Suspended counts as infinitely long.
func wakesEarly(next, prev time.Duration) bool {
	if next < 0 {
		return false
	}
	if prev < 0 {
		return true
	}
	return next < prev
}
