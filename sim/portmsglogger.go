package sim

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// PortMsgLogger is a hook for logging messages as they go across a Port
type PortMsgLogger struct {
	LogHookBase
}

// NewPortMsgLogger returns a new PortMsgLogger which will write into the logger
func NewPortMsgLogger(logger logrus.FieldLogger) *PortMsgLogger {
	h := new(PortMsgLogger)
	h.Logger = logger

	return h
}

// Func writes the message information into the logger
func (h *PortMsgLogger) Func(ctx HookCtx) {
	msg, ok := ctx.Item.(Msg)
	if !ok {
		return
	}

	port, ok := ctx.Domain.(Port)
	if !ok {
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"port": port.Name(),
		"pos":  ctx.Pos.Name,
		"src":  msg.Meta().Src,
		"dst":  msg.Meta().Dst,
		"type": reflect.TypeOf(msg).String(),
		"id":   msg.Meta().ID,
	}).Debug("port message")
}
