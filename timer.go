package fsmrt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrUnknownTimer is passed to die() when Set, Get, Toggle, or Stop names
// a TimerID that was never Create'd. Spec §7 classifies this as a
// programmer error: fatal, not recoverable. Exported so tests can
// recognize the condition with osExit stubbed out.
var ErrUnknownTimer = fmt.Errorf("fsmrt: unknown timer")

// pollInterval bounds how long the service thread blocks in its
// readiness poll, per spec §4.4/§5: short enough that cancellation is
// noticed promptly without busy-looping.
const pollInterval = 200 * time.Millisecond

// timerPoller multiplexes the expirations of several kernel timer
// handles. On Linux this is epoll over timerfds; elsewhere it is a
// portable emulation with the same external behavior. Implemented in
// poller_linux.go / poller_other.go.
type timerPoller interface {
	add(fd int) error
	wait(timeout time.Duration) (ready []int, err error)
	close() error
}

type timerEntry struct {
	id             TimerID
	event          EventID
	fd             int
	currentPeriod  time.Duration
	previousPeriod time.Duration
}

// TimerService owns a set of named periodic timers backed by kernel
// timer handles, multiplexed through a single dedicated poll loop, and
// broadcasts the configured event for each expiry through the Registry
// it was constructed with.
type TimerService struct {
	mu       sync.Mutex
	timers   map[TimerID]*timerEntry
	fdToID   map[int]TimerID
	registry *Registry
	logger   *slog.Logger
	poller   timerPoller
	closed   bool
}

// NewTimerService allocates the timer registry and the readiness-polling
// primitive, and wires expiry broadcasts to reg. The returned service is
// idle until Run is called on its own goroutine.
func NewTimerService(reg *Registry, logger *slog.Logger) *TimerService {
	if logger == nil {
		logger = Logger
	}
	s := &TimerService{
		timers:   make(map[TimerID]*timerEntry),
		fdToID:   make(map[int]TimerID),
		registry: reg,
		logger:   logger,
	}

	p, err := newTimerPoller()
	if err != nil {
		die(logger, "timer service: poller init failed", err)
	}
	s.poller = p

	return s
}

// Create allocates a kernel periodic-timer handle for timerID, disarmed
// (current period 0), and registers it with the poller. It fails with
// ErrDuplicateTimer if timerID already exists — the one Timer Service
// failure mode spec §4.4 treats as recoverable rather than fatal.
func (s *TimerService) Create(timerID TimerID, event EventID) error {
	s.mu.Lock()
	if _, ok := s.timers[timerID]; ok {
		s.mu.Unlock()
		return ErrDuplicateTimer
	}
	s.mu.Unlock()

	fd, err := newKernelTimer()
	if err != nil {
		die(s.logger, "timer service: create kernel timer failed", err)
		return err
	}
	if err := s.poller.add(fd); err != nil {
		die(s.logger, "timer service: register timer with poller failed", err)
		return err
	}

	s.mu.Lock()
	if _, ok := s.timers[timerID]; ok {
		// A concurrent Create registered timerID while the lock was
		// released; discard the handle allocated here.
		s.mu.Unlock()
		closeKernelTimer(fd)
		return ErrDuplicateTimer
	}
	s.timers[timerID] = &timerEntry{id: timerID, event: event, fd: fd}
	s.fdToID[fd] = timerID
	s.mu.Unlock()

	return nil
}

// Set saves the timer's current period as its previous period, assigns
// the new period, and arms (or, if period is 0, disarms) the kernel
// timer. Calling Set on an unknown timerID is a programmer error: fatal.
func (s *TimerService) Set(timerID TimerID, period time.Duration) error {
	s.mu.Lock()
	entry, ok := s.timers[timerID]
	if !ok {
		s.mu.Unlock()
		die(s.logger, "timer service: set on unknown timer", fmt.Errorf("%w: %s", ErrUnknownTimer, timerID))
		return ErrUnknownTimer
	}
	entry.previousPeriod = entry.currentPeriod
	entry.currentPeriod = period
	fd := entry.fd
	s.mu.Unlock()

	if err := armKernelTimer(fd, period); err != nil {
		die(s.logger, "timer service: arm kernel timer failed", err)
		return err
	}
	return nil
}

// Get returns the kernel timer's remaining time until next expiry.
// Calling Get on an unknown timerID is a programmer error: fatal.
func (s *TimerService) Get(timerID TimerID) (time.Duration, error) {
	s.mu.Lock()
	entry, ok := s.timers[timerID]
	if !ok {
		s.mu.Unlock()
		die(s.logger, "timer service: get on unknown timer", fmt.Errorf("%w: %s", ErrUnknownTimer, timerID))
		return 0, ErrUnknownTimer
	}
	fd := entry.fd
	s.mu.Unlock()

	remaining, err := remainingKernelTimer(fd)
	if err != nil {
		die(s.logger, "timer service: read kernel timer failed", err)
		return 0, err
	}
	return remaining, nil
}

// Toggle stops a running timer, or restores a stopped one to its prior
// period — pause/resume, per spec §4.4.
func (s *TimerService) Toggle(timerID TimerID) error {
	s.mu.Lock()
	entry, ok := s.timers[timerID]
	if !ok {
		s.mu.Unlock()
		die(s.logger, "timer service: toggle on unknown timer", fmt.Errorf("%w: %s", ErrUnknownTimer, timerID))
		return ErrUnknownTimer
	}
	var next time.Duration
	if entry.currentPeriod != 0 {
		next = 0
	} else {
		next = entry.previousPeriod
	}
	s.mu.Unlock()

	return s.Set(timerID, next)
}

// Stop is equivalent to Set(timerID, 0).
func (s *TimerService) Stop(timerID TimerID) error {
	return s.Set(timerID, 0)
}

// Snapshot returns diagnostic info for every known timer.
func (s *TimerService) Snapshot() []TimerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TimerInfo, 0, len(s.timers))
	for _, e := range s.timers {
		out = append(out, TimerInfo{
			ID:             e.id,
			Event:          e.event,
			CurrentPeriod:  e.currentPeriod.Milliseconds(),
			PreviousPeriod: e.previousPeriod.Milliseconds(),
		})
	}
	return out
}

// Run is the timer service's dedicated loop: it polls with a bounded
// 200ms timeout so cancellation is noticed promptly, and broadcasts the
// configured event for each timer the poller reports ready. It returns
// when ctx is cancelled.
func (s *TimerService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		ready, err := s.poller.wait(pollInterval)
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				// Close() tore down the poller out from under us; this
				// is a normal shutdown race, not a system-resource
				// failure, so it does not warrant die().
				return nil
			}
			die(s.logger, "timer service: poll failed", err)
			return err
		}

		for _, fd := range ready {
			s.mu.Lock()
			timerID, ok := s.fdToID[fd]
			var event EventID
			if ok {
				event = s.timers[timerID].event
			}
			s.mu.Unlock()

			if !ok {
				continue
			}
			s.logger.Debug("timer expired", "timer", timerID, "event", event)
			s.registry.Broadcast(event)
		}
	}
}

// Close releases every kernel timer handle and the poller itself,
// addressing spec §9's note that the source never releases timerfds.
func (s *TimerService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	fds := make([]int, 0, len(s.timers))
	for _, e := range s.timers {
		fds = append(fds, e.fd)
	}
	s.mu.Unlock()

	var firstErr error
	for _, fd := range fds {
		if err := closeKernelTimer(fd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.poller.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
