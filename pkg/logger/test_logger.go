package logger

import (
	"bytes"
	"fmt"
	"sync"
)

// TestLogger is a Logger implementation for tests that captures all messages
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	buffer   *bytes.Buffer
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{
		messages: make([]LogMessage, 0),
		buffer:   &bytes.Buffer{},
	}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields, nil)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields, nil)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields, nil)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields, nil)
}

// WithError returns a derived logger that records the error on every message
func (l *TestLogger) WithError(err error) Logger {
	return &derivedTestLogger{parent: l, err: err}
}

// WithField returns a derived logger that records the field on every message
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return &derivedTestLogger{parent: l, fields: map[string]interface{}{key: value}}
}

// WithFields returns a derived logger that records the fields on every message
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return &derivedTestLogger{parent: l, fields: fields}
}

// log captures a log message
func (l *TestLogger) log(level, msg string, fields map[string]interface{}, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   err,
	})

	fmt.Fprintf(l.buffer, "[%s] %s", level, msg)
	if len(fields) > 0 {
		fmt.Fprintf(l.buffer, " fields=%v", fields)
	}
	if err != nil {
		fmt.Fprintf(l.buffer, " error=%v", err)
	}
	fmt.Fprintln(l.buffer)
}

// GetMessages returns a copy of all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	messages := make([]LogMessage, len(l.messages))
	copy(messages, l.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	var filtered []LogMessage
	for _, msg := range l.messages {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, msg := range l.messages {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// HasError checks if an error was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = l.messages[:0]
	l.buffer.Reset()
}

// String returns all log messages as a string
func (l *TestLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buffer.String()
}

// derivedTestLogger carries field/error context back into the parent recorder
type derivedTestLogger struct {
	parent *TestLogger
	fields map[string]interface{}
	err    error
}

func (l *derivedTestLogger) Debug(msg string) { l.parent.log("DEBUG", msg, l.fields, l.err) }
func (l *derivedTestLogger) Info(msg string)  { l.parent.log("INFO", msg, l.fields, l.err) }
func (l *derivedTestLogger) Warn(msg string)  { l.parent.log("WARN", msg, l.fields, l.err) }
func (l *derivedTestLogger) Error(msg string) { l.parent.log("ERROR", msg, l.fields, l.err) }
func (l *derivedTestLogger) Fatal(msg string) { l.parent.log("FATAL", msg, l.fields, l.err) }

func (l *derivedTestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("DEBUG", msg, l.merge(fields), l.err)
}

func (l *derivedTestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("INFO", msg, l.merge(fields), l.err)
}

func (l *derivedTestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("WARN", msg, l.merge(fields), l.err)
}

func (l *derivedTestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("ERROR", msg, l.merge(fields), l.err)
}

func (l *derivedTestLogger) WithError(err error) Logger {
	return &derivedTestLogger{parent: l.parent, fields: l.fields, err: err}
}

func (l *derivedTestLogger) WithField(key string, value interface{}) Logger {
	return &derivedTestLogger{
		parent: l.parent,
		fields: l.merge(map[string]interface{}{key: value}),
		err:    l.err,
	}
}

func (l *derivedTestLogger) WithFields(fields map[string]interface{}) Logger {
	return &derivedTestLogger{parent: l.parent, fields: l.merge(fields), err: l.err}
}

func (l *derivedTestLogger) merge(additional map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(l.fields)+len(additional))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range additional {
		merged[k] = v
	}
	return merged
}
