package jsonschema

import "github.com/sirupsen/logrus"

var defaultLogger logrus.FieldLogger = newDefaultLogger()

func newDefaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetLogger replaces the package-level default logger used by compiles that
// don't supply their own via WithLogger. Library use stays silent by
// default (WarnLevel); the resolver's trace events are logged at
// DebugLevel, so they appear only with a logger at DebugLevel or more
// verbose.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = newDefaultLogger()
	}
	defaultLogger = l
}
