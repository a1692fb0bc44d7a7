package sim

import (
	"log"
	"sync"
)

// DirectConnection connects ports without latency. Messages are forwarded as
// soon as they are sent, on the goroutine of the sender. A message whose
// destination is full stays in the sender's outgoing buffer until the
// destination frees a slot.
type DirectConnection struct {
	HookableBase

	name string

	lock       sync.Mutex
	ports      map[RemotePort]Port
	order      []Port
	forwarding bool
	dirty      bool
}

// NewDirectConnection creates a new DirectConnection object
func NewDirectConnection(name string) *DirectConnection {
	return &DirectConnection{
		name:  name,
		ports: make(map[RemotePort]Port),
	}
}

// Name returns the name of the connection.
func (c *DirectConnection) Name() string {
	return c.name
}

// PlugIn marks the port connects to this DirectConnection.
func (c *DirectConnection) PlugIn(port Port) {
	c.lock.Lock()
	if _, found := c.ports[port.AsRemote()]; found {
		c.lock.Unlock()
		log.Panicf("port %s already plugged in to %s", port.Name(), c.name)
	}

	c.ports[port.AsRemote()] = port
	c.order = append(c.order, port)
	c.lock.Unlock()

	port.SetConnection(c)
}

// NotifySend forwards everything that can be forwarded.
func (c *DirectConnection) NotifySend() {
	c.forwardAll()
}

// NotifyAvailable retries messages that were blocked by a full destination.
func (c *DirectConnection) NotifyAvailable(_ Port) {
	c.forwardAll()
}

// forwardAll is reentrant: a delivery may cause the receiver to send right
// away. Nested calls only mark the connection dirty and the outermost call
// keeps forwarding until nothing moves.
func (c *DirectConnection) forwardAll() {
	c.lock.Lock()
	if c.forwarding {
		c.dirty = true
		c.lock.Unlock()

		return
	}

	c.forwarding = true
	c.lock.Unlock()

	for {
		c.lock.Lock()
		c.dirty = false
		ports := append([]Port(nil), c.order...)
		c.lock.Unlock()

		moved := false
		for _, p := range ports {
			moved = c.forwardFrom(p) || moved
		}

		c.lock.Lock()
		if !moved && !c.dirty {
			c.forwarding = false
			c.lock.Unlock()

			return
		}
		c.lock.Unlock()
	}
}

func (c *DirectConnection) forwardFrom(src Port) bool {
	moved := false

	for {
		msg := src.PeekOutgoing()
		if msg == nil {
			return moved
		}

		c.lock.Lock()
		dst, found := c.ports[msg.Meta().Dst]
		c.lock.Unlock()

		if !found {
			log.Panicf("%s: destination %s is not connected",
				c.name, msg.Meta().Dst)
		}

		if err := dst.Deliver(msg); err != nil {
			return moved
		}

		src.RetrieveOutgoing()
		moved = true

		if c.NumHooks() > 0 {
			c.InvokeHook(HookCtx{Domain: c, Pos: HookPosConnDeliver, Item: msg})
		}
	}
}
