package capture

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/corbat-tech/coco/pkg/queue"
)

const DefaultAnimationInterval = 100 * time.Millisecond

// Capture assembles raw key events into completed lines and feeds them to
// the message queue, while rendering a live status line. It runs on its own
// goroutine alongside the turn loop; it is never blocked by provider or tool
// calls.
type Capture struct {
	driver   Driver
	queue    *queue.MessageQueue
	renderer StatusRenderer
	interval time.Duration

	mu      sync.Mutex
	buf     []rune
	active  bool
	working bool
	frame   int

	done chan struct{}
	wg   sync.WaitGroup
}

type Option func(*Capture)

func WithRenderer(r StatusRenderer) Option {
	return func(c *Capture) { c.renderer = r }
}

func WithAnimationInterval(d time.Duration) Option {
	return func(c *Capture) { c.interval = d }
}

func New(driver Driver, q *queue.MessageQueue, opts ...Option) *Capture {
	c := &Capture{
		driver:   driver,
		queue:    q,
		renderer: NopRenderer{},
		interval: DefaultAnimationInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins capturing. Calling Start on an active capture is a no-op.
func (c *Capture) Start() error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = true
	c.buf = nil
	c.done = make(chan struct{})
	c.mu.Unlock()

	if err := c.driver.Start(); err != nil {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
		return err
	}

	c.wg.Add(2)
	go c.eventLoop()
	go c.animationLoop()

	log.Debug().Msg("capture: started")
	return nil
}

// Stop tears down the event loop and the animation timer and clears the
// status line. Stopping an inactive capture is a no-op.
func (c *Capture) Stop() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	done := c.done
	c.mu.Unlock()

	if err := c.driver.Stop(); err != nil {
		log.Warn().Err(err).Msg("capture: driver stop failed")
	}
	close(done)
	c.wg.Wait()
	c.renderer.Clear()

	log.Debug().Msg("capture: stopped")
}

// Active reports whether capture is currently running.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetWorking toggles the working indicator in the status line.
func (c *Capture) SetWorking(working bool) {
	c.mu.Lock()
	c.working = working
	c.mu.Unlock()
	c.render()
}

func (c *Capture) eventLoop() {
	defer c.wg.Done()
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	events := c.driver.Events()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Capture) animationLoop() {
	defer c.wg.Done()
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			working := c.working
			if working {
				c.frame++
			}
			c.mu.Unlock()
			if working {
				c.render()
			}
		}
	}
}

func (c *Capture) handleEvent(ev KeyEvent) {
	switch ev.Kind {
	case KeyEnter:
		c.finalizeLine()
	case KeyBackspace:
		c.mu.Lock()
		if len(c.buf) > 0 {
			c.buf = c.buf[:len(c.buf)-1]
		}
		c.mu.Unlock()
	case KeyInterrupt:
		// handled by the surrounding REPL
		return
	case KeyRune:
		c.mu.Lock()
		c.buf = append(c.buf, ev.Rune)
		c.mu.Unlock()
	}
	c.render()
}

// finalizeLine completes the current buffer as one message. Empty lines are
// dropped.
func (c *Capture) finalizeLine() {
	c.mu.Lock()
	line := strings.TrimSpace(string(c.buf))
	c.buf = nil
	c.mu.Unlock()

	if line == "" {
		return
	}
	c.queue.Enqueue(line)
	log.Debug().Str("line", line).Msg("capture: captured message")
}

func (c *Capture) render() {
	c.mu.Lock()
	s := Status{
		Working: c.working,
		Frame:   c.frame,
		Buffer:  string(c.buf),
		Pending: c.queue.Size(),
	}
	c.mu.Unlock()
	c.renderer.Render(s)
}
