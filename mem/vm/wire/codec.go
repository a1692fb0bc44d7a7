// Package wire carries the residency protocol over a byte stream, so that
// the accelerator can run in another process.
//
// Every message is a fixed 64-byte record in little endian:
//
//	| 0 tag | 1 kind | 2 flags | 3 - | 4..7 thread | 8..9 asid | 10..15 - |
//	| 16..23 vaddr | 24..31 frame | 32..39 key | 40..63 - |
//
// A PageLoad or a PageEvictDone with the payload flag is followed by the
// content of the page.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/sim"
)

// RecordSize is the size of an encoded message.
const RecordSize = 64

// A Tag identifies the type of a record.
type Tag uint8

// The record tags.
const (
	TagPageFaultNotify Tag = iota + 1
	TagPageEvictNotify
	TagPageEvictDone
	TagMissReply
	TagSynonymReply
	TagEvictRequest
	TagPageLoad
	TagPageFetch
)

const (
	flagPayload uint8 = 1 << iota
	flagModified
	flagPermissionFault
	flagFlushICache
	flagUpgrade
)

const (
	offTag    = 0
	offKind   = 1
	offFlags  = 2
	offThread = 4
	offASID   = 8
	offVAddr  = 16
	offFrame  = 24
	offKey    = 32
)

// ErrUnknownTag is returned when a record does not name a message type.
var ErrUnknownTag = errors.New("unknown record tag")

// ErrUnsupportedMsg is returned when a message is not part of the protocol.
var ErrUnsupportedMsg = errors.New("message cannot be encoded")

// ErrBadRecord is returned when a record names a page no key can hold.
var ErrBadRecord = errors.New("malformed record")

// A Record is an encoded message.
type Record [RecordSize]byte

// Tag returns the type of the record.
func (r *Record) Tag() Tag {
	return Tag(r[offTag])
}

// HasPayload reports whether a page follows the record.
func (r *Record) HasPayload() bool {
	return r[offFlags]&flagPayload != 0
}

func (r *Record) setPayload() {
	r[offFlags] |= flagPayload
}

func (r *Record) has(flag uint8) bool {
	return r[offFlags]&flag != 0
}

func (r *Record) set(flag uint8, on bool) {
	if on {
		r[offFlags] |= flag
	}
}

func (r *Record) putRef(ref vm.PageRef) {
	r[offKind] = uint8(ref.Kind)
	binary.LittleEndian.PutUint16(r[offASID:], uint16(ref.ASID))
	binary.LittleEndian.PutUint64(r[offVAddr:], ref.VAddr)
}

func (r *Record) ref() vm.PageRef {
	return vm.PageRef{
		VAddr: binary.LittleEndian.Uint64(r[offVAddr:]),
		ASID:  vm.ASID(binary.LittleEndian.Uint16(r[offASID:])),
		Kind:  vm.AccessKind(r[offKind]),
	}
}

func (r *Record) key() vm.GVPKey {
	return r.ref().Key()
}

func (r *Record) putThread(id uint32) {
	binary.LittleEndian.PutUint32(r[offThread:], id)
}

func (r *Record) thread() uint32 {
	return binary.LittleEndian.Uint32(r[offThread:])
}

func (r *Record) putFrame(frame vm.FrameID) {
	binary.LittleEndian.PutUint64(r[offFrame:], uint64(frame))
}

func (r *Record) frame() vm.FrameID {
	return vm.FrameID(binary.LittleEndian.Uint64(r[offFrame:]))
}

func (r *Record) putKey(key vm.GVPKey) {
	binary.LittleEndian.PutUint64(r[offKey:], uint64(key))
}

func (r *Record) keyField() vm.GVPKey {
	return vm.GVPKey(binary.LittleEndian.Uint64(r[offKey:]))
}

// check rejects fields that do not fit in a GVPKey, so that decoding never
// builds a key from them.
func (r *Record) check() error {
	switch r.Tag() {
	case TagPageFetch:
		return nil
	case TagPageLoad:
		return checkKind(r.keyField().Kind())
	case TagPageFaultNotify, TagPageEvictNotify, TagPageEvictDone,
		TagMissReply, TagSynonymReply, TagEvictRequest:
	default:
		return nil
	}

	ref := r.ref()
	if ref.ASID > vm.MaxASID {
		return fmt.Errorf("%w: asid %d is out of range", ErrBadRecord, ref.ASID)
	}

	if err := checkKind(ref.Kind); err != nil {
		return err
	}

	if r.Tag() == TagSynonymReply {
		return checkKind(r.keyField().Kind())
	}

	return nil
}

func checkKind(kind vm.AccessKind) error {
	if kind > vm.AccessFetch {
		return fmt.Errorf("%w: access kind %d", ErrBadRecord, kind)
	}

	return nil
}

// Encode turns a message into a record. The payload flag is left to the
// caller.
func Encode(msg sim.Msg) (Record, error) {
	var r Record

	switch msg := msg.(type) {
	case *vm.PageFaultNotify:
		r[offTag] = byte(TagPageFaultNotify)
		r.putRef(msg.PageRef)
		r.putThread(msg.ThreadID)
	case *vm.PageEvictNotify:
		r[offTag] = byte(TagPageEvictNotify)
		r.putRef(msg.PageRef)
		r.set(flagModified, msg.Modified)
	case *vm.PageEvictDone:
		r[offTag] = byte(TagPageEvictDone)
		r.putRef(msg.PageRef)
		r.putFrame(msg.Frame)
	case *vm.MissReply:
		r[offTag] = byte(TagMissReply)
		r.putRef(msg.PageRef)
		r.putThread(msg.ThreadID)
		r.putFrame(msg.Frame)
		r.set(flagPermissionFault, msg.PermissionFault)
	case *vm.SynonymReply:
		r[offTag] = byte(TagSynonymReply)
		r.putRef(msg.PageRef)
		r.putThread(msg.ThreadID)
		r.putFrame(msg.Frame)
		r.putKey(msg.Source)
		r.set(flagUpgrade, msg.Upgrade)
	case *vm.EvictRequest:
		r[offTag] = byte(TagEvictRequest)
		r.putRef(msg.PageRef)
		r.set(flagFlushICache, msg.FlushICache)
	case *vm.PageLoad:
		r[offTag] = byte(TagPageLoad)
		r.putFrame(msg.Frame)
		r.putKey(msg.Key)
	case *vm.PageFetch:
		r[offTag] = byte(TagPageFetch)
		r.putFrame(msg.Frame)
	default:
		return r, fmt.Errorf("%w: %s", ErrUnsupportedMsg, reflect.TypeOf(msg))
	}

	return r, nil
}

// Decode turns a record back into a message that travels from src to dst.
func Decode(r *Record, src, dst sim.RemotePort) (sim.Msg, error) {
	if err := r.check(); err != nil {
		return nil, err
	}

	switch r.Tag() {
	case TagPageFaultNotify:
		ref := r.ref()

		return vm.PageFaultNotifyBuilder{}.
			WithSrc(src).
			WithDst(dst).
			WithPage(ref.VAddr, ref.ASID, ref.Kind).
			WithThreadID(r.thread()).
			Build(), nil
	case TagPageEvictNotify:
		return vm.PageEvictNotifyBuilder{}.
			WithSrc(src).
			WithDst(dst).
			WithKey(r.key()).
			WithModified(r.has(flagModified)).
			Build(), nil
	case TagPageEvictDone:
		return vm.PageEvictDoneBuilder{}.
			WithSrc(src).
			WithDst(dst).
			WithKey(r.key()).
			WithFrame(r.frame()).
			Build(), nil
	case TagMissReply:
		return decodeMissReply(r, src, dst), nil
	case TagSynonymReply:
		return vm.SynonymReplyBuilder{}.
			WithSrc(src).
			WithDst(dst).
			WithRef(r.ref()).
			WithThreadID(r.thread()).
			WithFrame(r.frame()).
			WithSource(r.keyField()).
			WithUpgrade(r.has(flagUpgrade)).
			Build(), nil
	case TagEvictRequest:
		return vm.EvictRequestBuilder{}.
			WithSrc(src).
			WithDst(dst).
			WithKey(r.key()).
			Build(), nil
	case TagPageLoad:
		return vm.PageLoadBuilder{}.
			WithSrc(src).
			WithDst(dst).
			WithKey(r.keyField()).
			WithFrame(r.frame()).
			Build(), nil
	case TagPageFetch:
		return vm.PageFetchBuilder{}.
			WithSrc(src).
			WithDst(dst).
			WithFrame(r.frame()).
			Build(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, r.Tag())
	}
}

func decodeMissReply(r *Record, src, dst sim.RemotePort) sim.Msg {
	b := vm.MissReplyBuilder{}.
		WithSrc(src).
		WithDst(dst).
		WithRef(r.ref()).
		WithThreadID(r.thread()).
		WithFrame(r.frame())

	if r.has(flagPermissionFault) {
		b = b.WithPermissionFault()
	}

	return b.Build()
}

// payloadFrame returns the frame whose page travels with msg.
func payloadFrame(msg sim.Msg) (vm.FrameID, bool) {
	switch msg := msg.(type) {
	case *vm.PageLoad:
		return msg.Frame, true
	case *vm.PageEvictDone:
		return msg.Frame, true
	default:
		return 0, false
	}
}
