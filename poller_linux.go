//go:build linux

package fsmrt

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// This file is the Timer Service's Linux backend: real kernel timerfds
// multiplexed with epoll, the same pairing the source builds on
// (timerfd_create/timerfd_settime/timerfd_gettime plus epoll_wait), and
// the same unix.EpollCreate1/EpollCtl/EpollWait sequence
// joeycumines-go-utilpkg/eventloop's poller_linux.go uses for readiness
// polling.

// newKernelTimer creates a disarmed, non-blocking monotonic timerfd.
func newKernelTimer() (int, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return -1, fmt.Errorf("fsmrt: timerfd_create: %w", err)
	}
	return fd, nil
}

// armKernelTimer arms fd to fire every period (periodic, not one-shot),
// matching the source's set_timer(). A zero period disarms it.
func armKernelTimer(fd int, period time.Duration) error {
	spec := durationToTimespec(period)
	new := unix.ItimerSpec{
		Interval: spec,
		Value:    spec,
	}
	if err := unix.TimerfdSettime(fd, 0, &new, nil); err != nil {
		return fmt.Errorf("fsmrt: timerfd_settime: %w", err)
	}
	return nil
}

// remainingKernelTimer reads time-to-next-expiry, matching the source's
// get_timer() (timerfd_gettime, report it_value).
func remainingKernelTimer(fd int) (time.Duration, error) {
	var cur unix.ItimerSpec
	if err := unix.TimerfdGettime(fd, &cur); err != nil {
		return 0, fmt.Errorf("fsmrt: timerfd_gettime: %w", err)
	}
	return timespecToDuration(cur.Value), nil
}

func closeKernelTimer(fd int) error {
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("fsmrt: close timerfd: %w", err)
	}
	return nil
}

func durationToTimespec(d time.Duration) unix.Timespec {
	return unix.NsecToTimespec(d.Nanoseconds())
}

func timespecToDuration(ts unix.Timespec) time.Duration {
	return time.Duration(ts.Sec)*time.Second + time.Duration(ts.Nsec)*time.Nanosecond
}

// epollPoller is the Linux timerPoller: one epoll instance watching every
// created timerfd in level-triggered mode.
type epollPoller struct {
	epfd int
}

func newTimerPoller() (timerPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("fsmrt: epoll_create1: %w", err)
	}
	return &epollPoller{epfd: epfd}, nil
}

func (p *epollPoller) add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("fsmrt: epoll_ctl add: %w", err)
	}
	return nil
}

func (p *epollPoller) wait(timeout time.Duration) ([]int, error) {
	events := make([]unix.EpollEvent, 16)
	n, err := unix.EpollWait(p.epfd, events, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("fsmrt: epoll_wait: %w", err)
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		var buf [8]byte
		// Draining the expiry counter re-arms readiness for a
		// level-triggered periodic timerfd and tells us how many
		// periods elapsed since the last read; a count greater than
		// one means expiries coalesced while the poller was busy.
		if _, err := unix.Read(fd, buf[:]); err != nil && err != unix.EAGAIN {
			return nil, fmt.Errorf("fsmrt: read timerfd: %w", err)
		}
		ready = append(ready, fd)
	}
	return ready, nil
}

func (p *epollPoller) close() error {
	if err := unix.Close(p.epfd); err != nil {
		return fmt.Errorf("fsmrt: close epoll fd: %w", err)
	}
	return nil
}
