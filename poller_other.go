//go:build !linux

package fsmrt

import (
	"fmt"
	"sync"
	"time"
)

// This file is the Timer Service's portable backend for GOOS other than
// linux, where no timerfd/epoll pair exists. It reproduces the same
// external behavior — a periodic kernel-style timer handle multiplexed
// through a single poll loop — with time.AfterFunc and a fan-in channel,
// mirroring joeycumines-go-utilpkg/eventloop's poller_darwin.go split: a
// build-tag-selected backend behind one internal interface.

var (
	fbMu     sync.Mutex
	fbNextFD int
	fbTimers = make(map[int]*fbTimer)
)

type fbTimer struct {
	period   time.Duration
	timer    *time.Timer
	nextFire time.Time
	notify   func(fd int)
	gen      uint64
}

func newKernelTimer() (int, error) {
	fbMu.Lock()
	defer fbMu.Unlock()
	fd := fbNextFD
	fbNextFD++
	fbTimers[fd] = &fbTimer{}
	return fd, nil
}

func armKernelTimer(fd int, period time.Duration) error {
	fbMu.Lock()
	t, ok := fbTimers[fd]
	if !ok {
		fbMu.Unlock()
		return fmt.Errorf("fsmrt: unknown timer handle %d", fd)
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.period = period
	if period <= 0 {
		t.timer = nil
		t.nextFire = time.Time{}
		fbMu.Unlock()
		return nil
	}
	t.nextFire = time.Now().Add(period)
	t.timer = time.AfterFunc(period, func() { fireFallbackTimer(fd, gen) })
	fbMu.Unlock()
	return nil
}

// fireFallbackTimer reschedules itself before notifying, so the timer
// stays periodic the way a rearmed timerfd does. gen guards against a
// callback that was already superseded by a Stop/Set racing against it.
func fireFallbackTimer(fd int, gen uint64) {
	fbMu.Lock()
	t, ok := fbTimers[fd]
	if !ok || t.gen != gen || t.period <= 0 {
		fbMu.Unlock()
		return
	}
	notify := t.notify
	t.nextFire = time.Now().Add(t.period)
	t.timer = time.AfterFunc(t.period, func() { fireFallbackTimer(fd, gen) })
	fbMu.Unlock()

	if notify != nil {
		notify(fd)
	}
}

func remainingKernelTimer(fd int) (time.Duration, error) {
	fbMu.Lock()
	defer fbMu.Unlock()
	t, ok := fbTimers[fd]
	if !ok {
		return 0, fmt.Errorf("fsmrt: unknown timer handle %d", fd)
	}
	if t.period <= 0 {
		return 0, nil
	}
	remaining := time.Until(t.nextFire)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func closeKernelTimer(fd int) error {
	fbMu.Lock()
	defer fbMu.Unlock()
	if t, ok := fbTimers[fd]; ok {
		if t.timer != nil {
			t.timer.Stop()
		}
		delete(fbTimers, fd)
	}
	return nil
}

// fallbackPoller is the non-Linux timerPoller: every armed fbTimer
// notifies it by fd on expiry, and wait() batches whatever has arrived
// within the timeout into one dedup'd ready list, the same one-report-
// per-fd-per-poll contract unix.EpollWait gives the Linux backend.
type fallbackPoller struct {
	readyCh chan int
}

func newTimerPoller() (timerPoller, error) {
	return &fallbackPoller{readyCh: make(chan int, 64)}, nil
}

func (p *fallbackPoller) add(fd int) error {
	fbMu.Lock()
	defer fbMu.Unlock()
	t, ok := fbTimers[fd]
	if !ok {
		return fmt.Errorf("fsmrt: unknown timer handle %d", fd)
	}
	t.notify = func(fd int) {
		select {
		case p.readyCh <- fd:
		default:
		}
	}
	return nil
}

func (p *fallbackPoller) wait(timeout time.Duration) ([]int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case fd := <-p.readyCh:
		seen := map[int]bool{fd: true}
		ready := []int{fd}
		for {
			select {
			case fd2 := <-p.readyCh:
				if !seen[fd2] {
					seen[fd2] = true
					ready = append(ready, fd2)
				}
			default:
				return ready, nil
			}
		}
	case <-timer.C:
		return nil, nil
	}
}

func (p *fallbackPoller) close() error {
	return nil
}
