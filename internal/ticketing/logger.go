package ticketing

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

// logrusAdapter routes watermill logs through logrus.
type logrusAdapter struct {
	entry *logrus.Entry
}

func NewLogger(l *logrus.Logger) watermill.LoggerAdapter {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return logrusAdapter{entry: logrus.NewEntry(l).WithField("module", "ticketing")}
}

func (a logrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

func (a logrusAdapter) Info(msg string, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (a logrusAdapter) Debug(msg string, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (a logrusAdapter) Trace(msg string, fields watermill.LogFields) {
	a.entry.WithFields(logrus.Fields(fields)).Trace(msg)
}

func (a logrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return logrusAdapter{entry: a.entry.WithFields(logrus.Fields(fields))}
}
