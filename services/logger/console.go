package logsvc

import (
	"fmt"
	"log"
	"sync"

	"github.com/trezcool/libkiosk/core"
)

// ConsoleLogger only prints; it never reports to Rollbar. Messages are kept for tests.
type ConsoleLogger struct {
	std *log.Logger

	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(std *log.Logger) *ConsoleLogger {
	return &ConsoleLogger{std: std}
}

func (l *ConsoleLogger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.Messages = append(l.Messages, level+": "+msg)
	l.mu.Unlock()

	if l.std == nil {
		return
	}
	l.std.Output(3, level+": "+msg) //nolint:errcheck
	for _, arg := range args {
		l.std.Output(3, fmt.Sprintf("%+v", arg)) //nolint:errcheck
	}
}

// Logged returns a copy of the messages logged so far.
func (l *ConsoleLogger) Logged() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := make([]string, len(l.Messages))
	copy(msgs, l.Messages)
	return msgs
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }

func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args)
	if l.std != nil {
		l.std.Fatal(msg)
	}
}
