package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/sim"
)

// ErrNoPageBuffer is returned when a page arrives on a connection that has
// nowhere to put it.
var ErrNoPageBuffer = errors.New("page payload without a page buffer")

// A StreamConnection connects a local port to a peer port on the other end
// of a byte stream. Sending writes records on the goroutine of the sender;
// Serve reads records and delivers them to the local port.
type StreamConnection struct {
	sim.HookableBase

	name   string
	stream io.ReadWriter
	peer   sim.RemotePort
	pages  PageBuffer

	port      sim.Port
	writeLock sync.Mutex
	available chan struct{}
}

// A Builder can build StreamConnections.
type Builder struct {
	stream io.ReadWriter
	peer   sim.RemotePort
	pages  PageBuffer
}

// MakeBuilder creates a new Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithStream sets the stream that carries the records.
func (b Builder) WithStream(s io.ReadWriter) Builder {
	b.stream = s
	return b
}

// WithPeer sets the name of the port on the other end. Messages read from
// the stream are sent from it.
func (b Builder) WithPeer(p sim.RemotePort) Builder {
	b.peer = p
	return b
}

// WithPageBuffer makes page loads and write backs carry the page content.
func (b Builder) WithPageBuffer(p PageBuffer) Builder {
	b.pages = p
	return b
}

// Build creates the connection.
func (b Builder) Build(name string) *StreamConnection {
	if b.stream == nil {
		log.Panicf("%s: a stream is required", name)
	}

	return &StreamConnection{
		name:      name,
		stream:    b.stream,
		peer:      b.peer,
		pages:     b.pages,
		available: make(chan struct{}, 1),
	}
}

// Name returns the name of the connection.
func (c *StreamConnection) Name() string {
	return c.name
}

// PlugIn connects the local port. A stream carries a single port.
func (c *StreamConnection) PlugIn(port sim.Port) {
	if c.port != nil {
		log.Panicf("%s: port %s already plugged in", c.name, c.port.Name())
	}

	c.port = port
	port.SetConnection(c)
}

// NotifySend writes every outgoing message of the local port.
func (c *StreamConnection) NotifySend() {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	for {
		msg := c.port.PeekOutgoing()
		if msg == nil {
			return
		}

		if err := c.write(msg); err != nil {
			log.Panicf("%s: %v", c.name, err)
		}

		c.port.RetrieveOutgoing()
	}
}

// NotifyAvailable wakes up a delivery that waits for a full port.
func (c *StreamConnection) NotifyAvailable(_ sim.Port) {
	select {
	case c.available <- struct{}{}:
	default:
	}
}

func (c *StreamConnection) write(msg sim.Msg) error {
	rec, err := Encode(msg)
	if err != nil {
		return err
	}

	buf := rec[:]

	if frame, ok := payloadFrame(msg); ok && c.pages != nil {
		rec.setPayload()

		page := make([]byte, vm.PageSize)
		copy(page, c.pages.FetchPage(frame))

		buf = append(rec[:], page...)
	}

	_, err = c.stream.Write(buf)

	return err
}

// Serve delivers the messages read from the stream until the stream ends.
// Closing the stream is how to stop it; the context only interrupts a
// delivery that waits for a full port.
func (c *StreamConnection) Serve(ctx context.Context) error {
	for {
		msg, err := c.read()
		if isClosed(err) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}

		if err := c.deliver(ctx, msg); err != nil {
			return err
		}
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}

func (c *StreamConnection) read() (sim.Msg, error) {
	var rec Record

	if _, err := io.ReadFull(c.stream, rec[:]); err != nil {
		return nil, err
	}

	msg, err := Decode(&rec, c.peer, c.port.AsRemote())
	if err != nil {
		return nil, err
	}

	if !rec.HasPayload() {
		return msg, nil
	}

	page := make([]byte, vm.PageSize)
	if _, err := io.ReadFull(c.stream, page); err != nil {
		return nil, err
	}

	frame, ok := payloadFrame(msg)
	if !ok || c.pages == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPageBuffer, msg.Meta().TrafficClass)
	}

	c.pages.PushPage(frame, page)

	return msg, nil
}

func (c *StreamConnection) deliver(ctx context.Context, msg sim.Msg) error {
	for {
		if err := c.port.Deliver(msg); err == nil {
			break
		}

		select {
		case <-c.available:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{Domain: c, Pos: sim.HookPosConnDeliver, Item: msg})
	}

	return nil
}
