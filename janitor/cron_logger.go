package janitor

import (
	"fmt"

	"github.com/noghresod/shopsync/clog"
)

// cronLogger 把 cron.Logger 接到 clog
type cronLogger struct {
	logger clog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(fields(keysAndValues), clog.Error(err))...)
}

func fields(kv []any) []clog.Field {
	out := make([]clog.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, clog.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
