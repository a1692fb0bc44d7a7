package wire

import (
	"log"
	"sync"

	"github.com/sarchlab/flexmmu/mem/vm"
)

// A PageBuffer is where a connection takes outgoing page payloads from and
// puts incoming ones into.
type PageBuffer interface {
	PushPage(frame vm.FrameID, data []byte)
	FetchPage(frame vm.FrameID) []byte
}

// RemotePageBuffer stands in for the page buffer of an accelerator on the
// other end of a stream. The MMU stages pages into it and reads write backs
// from it; the connection moves the pages over the stream.
type RemotePageBuffer struct {
	lock    sync.Mutex
	staged  map[vm.FrameID][]byte
	written map[vm.FrameID][]byte
}

// NewRemotePageBuffer creates an empty RemotePageBuffer.
func NewRemotePageBuffer() *RemotePageBuffer {
	return &RemotePageBuffer{
		staged:  make(map[vm.FrameID][]byte),
		written: make(map[vm.FrameID][]byte),
	}
}

// PushPage stages a page that the next PageLoad of the frame carries.
func (b *RemotePageBuffer) PushPage(frame vm.FrameID, data []byte) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.staged[frame] = append([]byte(nil), data...)
}

// FetchPage returns the page that arrived with the PageEvictDone of the
// frame.
func (b *RemotePageBuffer) FetchPage(frame vm.FrameID) []byte {
	b.lock.Lock()
	defer b.lock.Unlock()

	data, found := b.written[frame]
	if !found {
		log.Panicf("frame %d has no write back", frame)
	}

	delete(b.written, frame)

	return data
}

// Link returns the side of the buffer that a StreamConnection uses.
func (b *RemotePageBuffer) Link() PageBuffer {
	return linkSide{b}
}

type linkSide struct {
	b *RemotePageBuffer
}

func (l linkSide) PushPage(frame vm.FrameID, data []byte) {
	l.b.lock.Lock()
	defer l.b.lock.Unlock()

	l.b.written[frame] = data
}

func (l linkSide) FetchPage(frame vm.FrameID) []byte {
	l.b.lock.Lock()
	defer l.b.lock.Unlock()

	data, found := l.b.staged[frame]
	if !found {
		log.Panicf("frame %d is loaded without being staged", frame)
	}

	delete(l.b.staged, frame)

	return data
}
