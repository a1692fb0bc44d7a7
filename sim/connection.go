package sim

// SendError marks a failure send or receive
type SendError struct{}

// NewSendError creates a SendError
func NewSendError() *SendError {
	return new(SendError)
}

// Error implements the error interface so that callers can wrap it.
func (e *SendError) Error() string {
	return "send failed: buffer full"
}

// A Connection is responsible for delivering messages to its destination.
type Connection interface {
	Named

	PlugIn(port Port)

	// NotifySend is called by a port when its outgoing buffer turns
	// non-empty.
	NotifySend()

	// NotifyAvailable is called by a port when its incoming buffer can
	// accept messages again.
	NotifyAvailable(port Port)
}

// HookPosConnDeliver marks a connection delivered a message.
var HookPosConnDeliver = &HookPos{Name: "Conn Deliver"}
