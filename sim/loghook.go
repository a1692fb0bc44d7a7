package sim

import "github.com/sirupsen/logrus"

// LogHookBase holds the logger of a hook that writes what it observes into
// a log.
type LogHookBase struct {
	Logger logrus.FieldLogger
}
