package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWaiter struct {
	calls chan struct{}
	err   error
	sleep time.Duration
}

func (s *stubWaiter) WaitForNotification(ctx context.Context) error {
	select {
	case s.calls <- struct{}{}:
	default:
	}

	if s.sleep > 0 {
		timer := time.NewTimer(s.sleep)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if s.err != nil {
		return s.err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

func waitCall(t *testing.T, w *stubWaiter) {
	t.Helper()
	select {
	case <-w.calls:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected waiter to be invoked")
	}
}

func TestNewNotifierRequiresWaiter(t *testing.T) {
	notifier, err := NewNotifier(NotifierOptions{})
	require.ErrorIs(t, err, ErrWaiterRequired)
	assert.Nil(t, notifier)
}

func TestNotifier_SubscribeReceivesNotifications(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan struct{}, 4), sleep: 10 * time.Millisecond}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	unsub, ch := notifier.Subscribe()
	defer unsub()

	waitCall(t, waiter)
	select {
	case <-ch:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected notification to be delivered")
	}
}

func TestNotifier_WakesEverySubscriber(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan struct{}, 4), sleep: 10 * time.Millisecond}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)
	defer notifier.StopAll()

	_, first := notifier.Subscribe()
	_, second := notifier.Subscribe()

	for _, ch := range []<-chan struct{}{first, second} {
		select {
		case <-ch:
		case <-time.After(200 * time.Millisecond):
			t.Fatal("expected every subscriber to be woken")
		}
	}
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan struct{}, 1), sleep: 10 * time.Millisecond}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	unsub, ch := notifier.Subscribe()
	waitCall(t, waiter)

	unsub()
	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected channel to close after unsubscribe")
	}
}

func TestNotifier_StopAllClosesChannels(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan struct{}, 2), err: errors.New("boom")}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter, Backoff: 5 * time.Millisecond})
	require.NoError(t, err)

	unsubA, chA := notifier.Subscribe()
	unsubB, chB := notifier.Subscribe()
	waitCall(t, waiter)

	notifier.StopAll()

	for _, ch := range []<-chan struct{}{chA, chB} {
		select {
		case _, ok := <-ch:
			for ok {
				_, ok = <-ch
			}
		case <-time.After(200 * time.Millisecond):
			t.Fatal("expected channel to close after StopAll")
		}
	}

	unsubA()
	unsubB()
}

func TestNotifier_SubscribeAfterStopAllIsClosed(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan struct{}, 1), sleep: 10 * time.Millisecond}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	notifier.StopAll()

	unsub, ch := notifier.Subscribe()
	_, ok := <-ch
	assert.False(t, ok, "late subscription should be closed immediately")
	unsub()

	select {
	case <-waiter.calls:
		t.Fatal("no wait loop should start after StopAll")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_LastUnsubscribeStopsLoop(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan struct{}, 16), sleep: 5 * time.Millisecond}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	unsub, _ := notifier.Subscribe()
	waitCall(t, waiter)
	unsub()

	// Let an in-flight wait finish, then expect silence.
	time.Sleep(30 * time.Millisecond)
	for len(waiter.calls) > 0 {
		<-waiter.calls
	}
	select {
	case <-waiter.calls:
		t.Fatal("wait loop kept running without subscribers")
	case <-time.After(50 * time.Millisecond):
	}

	// A new subscriber restarts it.
	unsub, ch := notifier.Subscribe()
	defer unsub()
	select {
	case <-ch:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected restarted loop to signal")
	}
}
