package capture

import (
	"os"
	"time"
	"unicode"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyBackspace
	// KeyInterrupt is Ctrl-C. Capture ignores it; the surrounding REPL owns it.
	KeyInterrupt
)

type KeyEvent struct {
	Rune rune
	Kind KeyKind
}

// Driver produces raw key events. The line-assembly state machine never
// touches the OS input stream directly, so tests can drive it with a
// ChannelDriver.
type Driver interface {
	Start() error
	Stop() error
	Events() <-chan KeyEvent
}

// ChannelDriver is a synthetic driver for tests and embedding.
type ChannelDriver struct {
	ch chan KeyEvent
}

var _ Driver = (*ChannelDriver)(nil)

func NewChannelDriver() *ChannelDriver {
	return &ChannelDriver{ch: make(chan KeyEvent, 64)}
}

func (d *ChannelDriver) Start() error            { return nil }
func (d *ChannelDriver) Events() <-chan KeyEvent { return d.ch }

func (d *ChannelDriver) Stop() error {
	close(d.ch)
	return nil
}

func (d *ChannelDriver) Send(ev KeyEvent) {
	d.ch <- ev
}

// SendText feeds a string of printable runes.
func (d *ChannelDriver) SendText(s string) {
	for _, r := range s {
		d.ch <- KeyEvent{Rune: r, Kind: KeyRune}
	}
}

// SendLine feeds a string followed by enter.
func (d *ChannelDriver) SendLine(s string) {
	d.SendText(s)
	d.ch <- KeyEvent{Kind: KeyEnter}
}

// TerminalDriver reads raw bytes from a terminal and translates them to key
// events.
type TerminalDriver struct {
	f        *os.File
	ch       chan KeyEvent
	done     chan struct{}
	loopDone chan struct{}
	started  bool
	oldState *term.State
}

var _ Driver = (*TerminalDriver)(nil)

func NewTerminalDriver(f *os.File) *TerminalDriver {
	if f == nil {
		f = os.Stdin
	}
	return &TerminalDriver{
		f:        f,
		ch:       make(chan KeyEvent, 64),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

func (d *TerminalDriver) Events() <-chan KeyEvent { return d.ch }

func (d *TerminalDriver) Start() error {
	fd := int(d.f.Fd())
	if !isatty.IsTerminal(d.f.Fd()) && !isatty.IsCygwinTerminal(d.f.Fd()) {
		return errors.New("capture: input is not a terminal")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return errors.Wrap(err, "capture: enter raw mode")
	}
	d.oldState = oldState

	d.begin()
	return nil
}

func (d *TerminalDriver) begin() {
	d.started = true
	go d.readLoop()
}

func (d *TerminalDriver) readLoop() {
	defer close(d.loopDone)
	defer close(d.ch)
	buf := make([]byte, 1)
	for {
		select {
		case <-d.done:
			return
		default:
		}

		n, err := d.f.Read(buf)
		if err != nil {
			select {
			case <-d.done:
				return
			default:
			}
			// a deadline fired while the driver is still live, keep reading
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			log.Debug().Err(err).Msg("capture: terminal read ended")
			return
		}
		if n == 0 {
			continue
		}

		b := buf[0]
		switch {
		case b == '\r' || b == '\n':
			d.emit(KeyEvent{Kind: KeyEnter})
		case b == 0x7f || b == 0x08:
			d.emit(KeyEvent{Kind: KeyBackspace})
		case b == 0x03:
			d.emit(KeyEvent{Kind: KeyInterrupt})
		case unicode.IsPrint(rune(b)):
			d.emit(KeyEvent{Rune: rune(b), Kind: KeyRune})
		}
	}
}

func (d *TerminalDriver) emit(ev KeyEvent) {
	select {
	case d.ch <- ev:
	case <-d.done:
	}
}

// Stop tears the reader down before returning: the pending Read is unblocked
// with a deadline and the loop is joined, so a byte typed after Stop goes to
// whoever reads the stream next, not to a stale capture goroutine.
func (d *TerminalDriver) Stop() error {
	close(d.done)
	if d.started {
		if err := d.f.SetReadDeadline(time.Now()); err != nil {
			// deadlines unsupported on this stream, the loop exits on its
			// next read instead of being joined here
			log.Debug().Err(err).Msg("capture: cannot interrupt pending read")
		} else {
			<-d.loopDone
			if err := d.f.SetReadDeadline(time.Time{}); err != nil {
				log.Debug().Err(err).Msg("capture: clear read deadline")
			}
		}
	}
	if d.oldState != nil {
		if err := term.Restore(int(d.f.Fd()), d.oldState); err != nil {
			return errors.Wrap(err, "capture: restore terminal")
		}
	}
	return nil
}
