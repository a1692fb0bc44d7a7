package sim

// A Msg is a piece of information that is transferred between components.
type Msg interface {
	Meta() *MsgMeta
	Clone() Msg
}

// MsgMeta contains the meta data that is attached to every message.
type MsgMeta struct {
	ID           string
	Src, Dst     RemotePort
	TrafficClass string
	TrafficBytes int
}

// Rsp is a special message that is used to indicate the completion of a
// request.
type Rsp interface {
	Msg
	GetRspTo() string
}

// MsgMetaBuilder fills the fields that every message carries. Message
// builders in other packages embed it.
type MsgMetaBuilder struct {
	Src, Dst     RemotePort
	TrafficBytes int
}

// BuildMeta creates the meta data of a message of the given traffic class.
func (b MsgMetaBuilder) BuildMeta(trafficClass string) MsgMeta {
	return MsgMeta{
		ID:           GetIDGenerator().Generate(),
		Src:          b.Src,
		Dst:          b.Dst,
		TrafficClass: trafficClass,
		TrafficBytes: b.TrafficBytes,
	}
}
