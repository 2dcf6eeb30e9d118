package scheduler

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// logger adapts logrus to gocron. gocron passes key value pairs as args.
type logger struct {
	entry *logrus.Entry
}

var _ gocron.Logger = logger{}

func newLogger(entry *logrus.Entry) logger {
	return logger{entry: entry.WithField("component", "scheduler")}
}

func (l logger) with(args []any) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		fields[key] = args[i+1]
	}
	return l.entry.WithFields(fields)
}

func (l logger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }
func (l logger) Info(msg string, args ...any)  { l.with(args).Info(msg) }
func (l logger) Warn(msg string, args ...any)  { l.with(args).Warn(msg) }
func (l logger) Error(msg string, args ...any) { l.with(args).Error(msg) }
