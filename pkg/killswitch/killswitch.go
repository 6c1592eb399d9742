// Package killswitch cancels the run when the kill key is pressed or
// a termination signal arrives. Cancellation is delivered through a
// context so every long-running call observes it at its next poll
// instead of reading a shared global flag.
package killswitch

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/term"

	"serpgrab/pkg/logger"
)

// DefaultKey is the hotkey that aborts the run.
const DefaultKey = 'q'

// Listener watches stdin and OS signals for an abort request. On
// trigger it cancels the run context and invokes the teardown callback
// exactly once.
type Listener struct {
	key      byte
	input    io.Reader
	rawMode  bool
	cancel   context.CancelFunc
	teardown func()
	log      logger.Logger

	once    sync.Once
	stopCh  chan struct{}
	stopped sync.Once
}

// Option configures a Listener.
type Option func(*Listener)

// WithKey overrides the abort hotkey.
func WithKey(key byte) Option {
	return func(l *Listener) { l.key = key }
}

// WithInput replaces stdin with another reader and disables raw mode.
// Used by tests.
func WithInput(r io.Reader) Option {
	return func(l *Listener) {
		l.input = r
		l.rawMode = false
	}
}

// New wraps parent in a cancellable context watched by the listener.
// teardown runs once, before cancellation, so the browser session is
// closed before callers unwind. Start must be called to begin
// listening.
func New(parent context.Context, teardown func(), opts ...Option) (*Listener, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	l := &Listener{
		key:      DefaultKey,
		input:    os.Stdin,
		rawMode:  true,
		cancel:   cancel,
		teardown: teardown,
		log:      logger.GetLogger(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, ctx
}

// Start begins watching for the kill key and for SIGINT/SIGTERM.
func (l *Listener) Start() {
	go l.watchSignals()
	go l.watchKeys()
}

// Stop ends listening and restores the terminal. Safe to call after a
// trigger.
func (l *Listener) Stop() {
	l.stopped.Do(func() { close(l.stopCh) })
}

// Trigger runs the teardown callback and cancels the run context.
// Idempotent; concurrent triggers collapse into one teardown.
func (l *Listener) Trigger(reason string) {
	l.once.Do(func() {
		l.log.WarnWithFields("aborting run", map[string]interface{}{
			"reason": reason,
		})
		if l.teardown != nil {
			l.teardown()
		}
		l.cancel()
	})
}

func (l *Listener) watchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		l.Trigger(sig.String())
	case <-l.stopCh:
	}
}

func (l *Listener) watchKeys() {
	restore := func() {}
	if l.rawMode {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			// Not an interactive session; signals still work.
			return
		}
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			l.log.WithError(err).Debug("kill key disabled, cannot enter raw mode")
			return
		}
		restore = func() { _ = term.Restore(fd, oldState) }
	}
	defer restore()

	keyCh := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := l.input.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				select {
				case keyCh <- buf[0]:
				case <-l.stopCh:
					return
				}
			}
		}
	}()

	for {
		select {
		case key := <-keyCh:
			// Ctrl+C arrives as a raw byte rather than SIGINT while
			// the terminal is in raw mode.
			if key == l.key || key == 0x03 {
				restore()
				l.Trigger("kill key pressed")
				return
			}
		case <-l.stopCh:
			return
		}
	}
}
