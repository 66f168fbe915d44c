// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package log implements leveled, context-tagged logging for the query
// engine. Every entry carries the logtags attached to its context, so that
// messages emitted by different workers of the same query can be told apart:
//
//	I261019 15:04:05.000123 exec/executor.go:211 [pq=12,w3] worker fault: ...
//
// Messages are formatted with redact.Sprintf. Unless SetRedactable(true) is
// called, redaction markers are stripped before the entry is written.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/pquery/pkg/settings"
	"github.com/cockroachdb/pquery/pkg/util/syncutil"
	"github.com/cockroachdb/redact"
)

// Severity is the importance of a log entry.
type Severity int32

const (
	// SeverityInfo is used for informational messages.
	SeverityInfo Severity = iota + 1
	// SeverityWarning is used for unexpected but recoverable situations.
	SeverityWarning
	// SeverityError is used for failures.
	SeverityError
)

func (s Severity) char() byte {
	switch s {
	case SeverityWarning:
		return 'W'
	case SeverityError:
		return 'E'
	default:
		return 'I'
	}
}

var verbosity = settings.RegisterIntSetting(
	"pquery.log.verbosity",
	"maximum level of verbose events (VEventf) written to the log",
	0,
	settings.NonNegativeInt,
)

var sink struct {
	syncutil.Mutex
	w          io.Writer
	redactable bool
}

func init() {
	sink.w = os.Stderr
}

// timeNow is overridden in tests.
var timeNow = time.Now

// SetOutput redirects log entries to w. It returns a function that restores
// the previous destination.
func SetOutput(w io.Writer) (restore func()) {
	sink.Lock()
	defer sink.Unlock()
	prev := sink.w
	sink.w = w
	return func() {
		sink.Lock()
		defer sink.Unlock()
		sink.w = prev
	}
}

// SetRedactable controls whether redaction markers are kept in the output.
func SetRedactable(redactable bool) (restore func()) {
	sink.Lock()
	defer sink.Unlock()
	prev := sink.redactable
	sink.redactable = redactable
	return func() {
		sink.Lock()
		defer sink.Unlock()
		sink.redactable = prev
	}
}

// SetVerbosity sets the maximum level of verbose events that are logged.
func SetVerbosity(level int32) (restore func()) {
	return verbosity.Override(int64(level))
}

// V returns true if the verbosity is at least level.
func V(level int32) bool {
	return verbosity.Get() >= int64(level)
}

// Infof logs to the INFO severity.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, SeverityInfo, format, args)
}

// Warningf logs to the WARNING severity.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, SeverityWarning, format, args)
}

// Errorf logs to the ERROR severity.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, SeverityError, format, args)
}

// VEventf logs an INFO entry if the verbosity is at least level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		logDepth(ctx, 1, SeverityInfo, format, args)
	}
}

func logDepth(
	ctx context.Context, depth int, sev Severity, format string, args []interface{},
) {
	msg := redact.Sprintf(format, args...)
	var buf strings.Builder
	buf.WriteByte(sev.char())
	buf.WriteString(timeNow().UTC().Format("060102 15:04:05.000000"))
	buf.WriteByte(' ')
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		fmt.Fprintf(&buf, "%s:%d ", shortFile(file), line)
	}
	formatTags(ctx, &buf)

	sink.Lock()
	defer sink.Unlock()
	if sink.redactable {
		buf.WriteString(string(msg))
	} else {
		buf.WriteString(msg.StripMarkers())
	}
	buf.WriteByte('\n')
	_, _ = io.WriteString(sink.w, buf.String())
}

// shortFile trims a file path to its last directory and base name.
func shortFile(file string) string {
	dir, base := filepath.Split(file)
	return filepath.Join(filepath.Base(dir), base)
}

// formatTags writes the context tags as "[k1v1,k2=v2] ". Single letter keys
// are immediately followed by their value.
func formatTags(ctx context.Context, buf *strings.Builder) {
	tags := logtags.FromContext(ctx)
	if tags == nil {
		return
	}
	buf.WriteByte('[')
	for i, t := range tags.Get() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(t.Key())
		if v := t.Value(); v != nil {
			if len(t.Key()) > 1 {
				buf.WriteByte('=')
			}
			fmt.Fprint(buf, v)
		}
	}
	buf.WriteString("] ")
}
