package game

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	cmdPending int32 = iota
	cmdRunning
	cmdCancelled
)

// command is claimed exactly once: by the actor to run it, or by its caller
// (or the actor on an expired ctx) to cancel it. A cancelled fn never runs.
type command struct {
	ctx   context.Context
	fn    func(*Room)
	done  chan struct{}
	state atomic.Int32
}

// actor owns a Room and applies commands to it one at a time in arrival order.
type actor struct {
	room       *Room
	inbox      chan *command
	quit       chan struct{}
	stopped    atomic.Bool
	lastActive atomic.Int64 // unix nanos
}

func newActor(room *Room) *actor {
	a := &actor{
		room:  room,
		inbox: make(chan *command, 256),
		quit:  make(chan struct{}),
	}
	a.touch(room.startTime)
	return a
}

func (a *actor) loop() {
	for {
		select {
		case cmd := <-a.inbox:
			if cmd.claim() {
				cmd.fn(a.room)
				a.touch(a.room.now())
			}
			close(cmd.done)
		case <-a.quit:
			return
		}
	}
}

// claim marks cmd as running unless its caller already gave up on it
func (cmd *command) claim() bool {
	if cmd.ctx.Err() != nil {
		cmd.state.CompareAndSwap(cmdPending, cmdCancelled)
		return false
	}
	return cmd.state.CompareAndSwap(cmdPending, cmdRunning)
}

// do runs fn on the actor goroutine and waits for it to finish. An error
// means fn did not run; once fn has started, do waits for it regardless of ctx.
func (a *actor) do(ctx context.Context, fn func(*Room)) error {
	if a.stopped.Load() {
		return ErrRoomClosed
	}
	cmd := &command{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case a.inbox <- cmd:
	case <-a.quit:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
	case <-a.quit:
		if cmd.state.CompareAndSwap(cmdPending, cmdCancelled) {
			return ErrRoomClosed
		}
		<-cmd.done
	case <-ctx.Done():
		if cmd.state.CompareAndSwap(cmdPending, cmdCancelled) {
			return ctx.Err()
		}
		<-cmd.done
	}
	if cmd.state.Load() == cmdCancelled {
		return ctx.Err()
	}
	return nil
}

func (a *actor) stop() {
	if a.stopped.CompareAndSwap(false, true) {
		close(a.quit)
	}
}

func (a *actor) touch(t time.Time) {
	a.lastActive.Store(t.UnixNano())
}

func (a *actor) lastActivity() time.Time {
	return time.Unix(0, a.lastActive.Load())
}
