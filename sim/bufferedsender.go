package sim

import (
	"log"
)

// BufferedSender can delegate the sending process.
//
// A handler that produces several messages for one input pushes them into a
// BufferedSender after checking CanSend, and the component's Tick sends them
// out when the port has room. The input is only consumed when every reply
// fits, so a full port never loses a reply.
type BufferedSender interface {
	// CanSend checks if the buffer has enough space to hold "count" messages.
	CanSend(count int) bool

	// Send enqueues a message into the buffer and the message will be sent out
	// later with the Tick function.
	Send(msg Msg)

	// Clear removes all the messages to send
	Clear()

	// Tick sends out as many messages as the port accepts, in order. It
	// returns true if at least one message is sent.
	Tick() bool
}

// NewBufferedSender creates a new BufferedSender with certain buffer capacity
// and send to a certain port.
func NewBufferedSender(port Port, buffer Buffer) BufferedSender {
	return &bufferedSenderImpl{
		port:   port,
		buffer: buffer,
	}
}

type bufferedSenderImpl struct {
	port   Port
	buffer Buffer
}

func (s *bufferedSenderImpl) CanSend(count int) bool {
	if count > s.buffer.Capacity() {
		log.Panic("trying to send number of messages exceeding capacity")
	}

	return count+s.buffer.Size() <= s.buffer.Capacity()
}

func (s *bufferedSenderImpl) Send(msg Msg) {
	s.buffer.Push(msg)
}

func (s *bufferedSenderImpl) Clear() {
	s.buffer.Clear()
}

func (s *bufferedSenderImpl) Tick() bool {
	sent := false

	for {
		item := s.buffer.Peek()
		if item == nil {
			return sent
		}

		if err := s.port.Send(item.(Msg)); err != nil {
			return sent
		}

		s.buffer.Pop()

		sent = true
	}
}
