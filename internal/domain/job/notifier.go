// Package job holds queue-wide policies shared by workers and sweepers: the
// task-added wake-up notifier and the worn-out staleness policy.
package job

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaiterRequired indicates a notifier cannot be constructed without a waiter.
var ErrWaiterRequired = errors.New("notifier waiter is required")

// Waiter blocks until a task-added notification arrives or ctx ends.
type Waiter interface {
	WaitForNotification(ctx context.Context) error
}

// Notifier fans task-added notifications out to idle workers and long-poll peeks.
type Notifier interface {
	Subscribe() (func(), <-chan struct{})
	StopAll()
}

// NotifierOptions configure the default notifier.
type NotifierOptions struct {
	Waiter Waiter
	// WaitWindow bounds one WaitForNotification call. Subscribers are woken
	// at least this often even without notifications.
	WaitWindow time.Duration
	// Backoff is the pause after a failed wait.
	Backoff time.Duration
}

// DefaultNotifier runs one wait loop while anybody is subscribed. Each time a
// wait returns, every subscriber receives at most one pending signal.
//
// After StopAll the notifier is finished: later subscriptions get a closed
// channel and no loop is started.
type DefaultNotifier struct {
	waiter     Waiter
	waitWindow time.Duration
	backoff    time.Duration

	mu      sync.Mutex
	subs    map[chan struct{}]struct{}
	loop    *waitLoop
	stopped bool
}

type waitLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifier constructs the default notifier implementation.
func NewNotifier(opts NotifierOptions) (*DefaultNotifier, error) {
	if opts.Waiter == nil {
		return nil, ErrWaiterRequired
	}
	n := &DefaultNotifier{
		waiter:     opts.Waiter,
		waitWindow: opts.WaitWindow,
		backoff:    opts.Backoff,
		subs:       make(map[chan struct{}]struct{}),
	}
	if n.waitWindow <= 0 {
		n.waitWindow = time.Minute
	}
	if n.backoff <= 0 {
		n.backoff = 250 * time.Millisecond
	}
	return n, nil
}

// Subscribe registers a wake-up channel with room for one signal. The returned
// func unregisters and closes it; calling it twice is harmless.
func (n *DefaultNotifier) Subscribe() (func(), <-chan struct{}) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		close(ch)
		return func() {}, ch
	}

	n.subs[ch] = struct{}{}
	if n.loop == nil {
		n.loop = n.startLoop()
	}

	var once sync.Once
	return func() { once.Do(func() { n.unsubscribe(ch) }) }, ch
}

func (n *DefaultNotifier) unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	if _, ok := n.subs[ch]; !ok {
		n.mu.Unlock()
		return
	}
	delete(n.subs, ch)
	closeDrained(ch)

	var idle *waitLoop
	if len(n.subs) == 0 {
		idle, n.loop = n.loop, nil
	}
	n.mu.Unlock()

	if idle != nil {
		idle.cancel()
	}
}

// StopAll closes every subscriber channel and stops the wait loop, returning
// once the loop has exited.
func (n *DefaultNotifier) StopAll() {
	n.mu.Lock()
	n.stopped = true
	for ch := range n.subs {
		closeDrained(ch)
	}
	clear(n.subs)
	loop := n.loop
	n.loop = nil
	n.mu.Unlock()

	if loop != nil {
		loop.cancel()
		<-loop.done
	}
}

func (n *DefaultNotifier) startLoop() *waitLoop {
	ctx, cancel := context.WithCancel(context.Background())
	loop := &waitLoop{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(loop.done)
		n.run(ctx)
	}()
	return loop
}

func (n *DefaultNotifier) run(ctx context.Context) {
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, n.waitWindow)
		err := n.waiter.WaitForNotification(waitCtx)
		cancel()

		n.signal()

		if err == nil || ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(n.backoff):
		}
	}
}

func (n *DefaultNotifier) signal() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// closeDrained empties ch before closing it so a receiver sees the close
// rather than a stale signal.
func closeDrained(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
	close(ch)
}

var _ Notifier = (*DefaultNotifier)(nil)
