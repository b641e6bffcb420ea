// Package clog provides the small leveled, structured logger used across
// this module, in the shape of the teacher's own log package: a Logger
// interface over Trace/Debug/Info/Warn/Error, each taking a message and
// an alternating key/value context slice, with caller-site capture via
// go-stack.
package clog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-stack/stack"
)

// Level is a logging severity.
type Level int

const (
	LvlError Level = iota
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Level) String() string {
	switch l {
	case LvlError:
		return "error"
	case LvlWarn:
		return "warn"
	case LvlInfo:
		return "info"
	case LvlDebug:
		return "debug"
	case LvlTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// Logger emits leveled, structured log lines with a fixed context
// prepended to every call, mirroring the teacher's log.Logger.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	New(ctx ...interface{}) Logger
}

type logger struct {
	ctx []interface{}
}

var (
	mu     sync.Mutex
	out    io.Writer = os.Stderr
	minLvl           = LvlInfo
)

// SetOutput redirects all logging output; primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel sets the minimum level emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLvl = l
}

// New returns a Logger with ctx merged into every subsequent call.
func New(ctx ...interface{}) Logger {
	return &logger{ctx: ctx}
}

// Root is the module-wide default logger with no fixed context.
var Root Logger = New()

func (l *logger) write(lvl Level, msg string, ctx []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lvl > minLvl {
		return
	}
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(lvl.String())
	b.WriteByte(' ')
	b.WriteString(msg)

	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	if c := stack.Caller(2); lvl <= LvlDebug {
		fmt.Fprintf(&b, " caller=%n", c)
	}
	b.WriteByte('\n')
	io.WriteString(out, b.String())
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{ctx: append(append([]interface{}{}, l.ctx...), ctx...)}
}
