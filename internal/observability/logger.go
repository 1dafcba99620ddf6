package observability

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes one JSON object per line. Fields bound with With are merged
// into every entry, with per-call fields taking precedence.
type Logger struct {
	mu    *sync.Mutex
	out   io.Writer
	bound map[string]any
}

func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, out: os.Stdout}
}

func NewLoggerTo(out io.Writer) *Logger {
	return &Logger{mu: &sync.Mutex{}, out: out}
}

// With returns a logger that includes the given fields in every entry. The
// returned logger shares the output and lock of the receiver.
func (l *Logger) With(fields map[string]any) *Logger {
	merged := make(map[string]any, len(l.bound)+len(fields))
	for k, v := range l.bound {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{mu: l.mu, out: l.out, bound: merged}
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.write("info", message, fields)
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.write("warn", message, fields)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.write("error", message, fields)
}

func (l *Logger) write(level, message string, fields map[string]any) {
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   message,
	}
	for k, v := range l.bound {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		encoded = []byte(`{"level":"error","message":"failed to encode log entry"}`)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(append(encoded, '\n'))
}
