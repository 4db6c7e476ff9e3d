package driver

import (
	"sync"

	"github.com/glium/glium/fence"
	"github.com/glium/glium/queue"
)

func init() {
	Register("null", func() Device { return NewNullDevice() })
}

// NullDevice executes nothing and records everything. It backs tests
// that assert on the exact command stream a draw produces, and lets
// tests control fence retirement and inject device loss.
type NullDevice struct {
	mu       sync.Mutex
	caps     Capabilities
	retire   FenceFunc
	cmds     []queue.Command
	held     []fence.ID
	manual   bool
	failNext error
	closed   bool
}

// NewNullDevice returns a null device with default capabilities and
// immediate fence retirement.
func NewNullDevice() *NullDevice {
	return &NullDevice{caps: DefaultCapabilities()}
}

// SetCapabilities overrides the reported limits. Call before handing
// the device to a context.
func (d *NullDevice) SetCapabilities(caps Capabilities) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.caps = caps
}

// SetManualFences switches fence retirement to explicit RetireFences
// calls, so tests can hold work in flight.
func (d *NullDevice) SetManualFences(manual bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manual = manual
}

// FailNext makes the next Execute return err, simulating device loss.
func (d *NullDevice) FailNext(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = err
}

// Commands returns a snapshot of every command executed so far.
func (d *NullDevice) Commands() []queue.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]queue.Command, len(d.cmds))
	copy(out, d.cmds)
	return out
}

// Reset forgets recorded commands. Held fences are kept.
func (d *NullDevice) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = nil
}

// RetireFences retires all held fence points in order. Only meaningful
// in manual mode.
func (d *NullDevice) RetireFences() {
	d.mu.Lock()
	held := d.held
	d.held = nil
	retire := d.retire
	d.mu.Unlock()

	if retire == nil {
		return
	}
	for _, id := range held {
		retire(id)
	}
}

func (d *NullDevice) Name() string { return "null" }

func (d *NullDevice) Init() error { return nil }

func (d *NullDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *NullDevice) Capabilities() Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps
}

func (d *NullDevice) OnFenceRetire(fn FenceFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retire = fn
}

func (d *NullDevice) Execute(cmd queue.Command) error {
	d.mu.Lock()
	if err := d.failNext; err != nil {
		d.failNext = nil
		d.mu.Unlock()
		return err
	}
	d.cmds = append(d.cmds, cmd)

	var reply func()
	switch c := cmd.(type) {
	case queue.SignalFence:
		if d.manual {
			d.held = append(d.held, c.Fence)
		} else if d.retire != nil {
			retire, id := d.retire, c.Fence
			reply = func() { retire(id) }
		}
	case queue.ReadBuffer:
		// Nothing is stored; answer with zeroes of the requested size.
		reply = func() {
			c.Reply <- queue.ReadResult{Data: make([]byte, c.Size)}
		}
	}
	d.mu.Unlock()

	if reply != nil {
		reply()
	}
	return nil
}
