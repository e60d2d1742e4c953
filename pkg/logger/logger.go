package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

type Logger struct {
	logger    *log.Logger
	level     Level
	mu        sync.RWMutex
	publisher Publisher
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Entry is a single emitted log line in structured form.
type Entry struct {
	Timestamp time.Time
	Level     string
	Message   string
	Fields    map[string]interface{}
}

// Publisher receives every entry that passes the level filter.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

func NewWithWriter(level string, w io.Writer) *Logger {
	l := &Logger{
		logger: log.New(w, "", 0),
		level:  parseLevel(level),
	}
	return l
}

// SetLogPublisher attaches a remote sink. Passing nil detaches it.
func (l *Logger) SetLogPublisher(p Publisher) {
	l.mu.Lock()
	l.publisher = p
	l.mu.Unlock()
}

func parseLevel(level string) Level {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DEBUG {
		l.log("DEBUG", msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= INFO {
		l.log("INFO", msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WARN {
		l.log("WARN", msg, args...)
	}
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if l.level <= ERROR {
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.log("ERROR", msg, args...)
	}
}

func (l *Logger) log(level, msg string, args ...interface{}) {
	now := time.Now()
	message := fmt.Sprintf("[%s] [%s] %s", now.Format("2006-01-02 15:04:05"), level, msg)

	if len(args) > 0 {
		message += " |"
		for i := 0; i < len(args); i += 2 {
			if i+1 < len(args) {
				message += fmt.Sprintf(" %v=%v", args[i], args[i+1])
			}
		}
	}

	l.logger.Println(message)

	l.mu.RLock()
	publisher := l.publisher
	l.mu.RUnlock()
	if publisher == nil {
		return
	}

	// Publisher errors are dropped: reporting them here would recurse.
	_ = publisher.Publish(context.Background(), Entry{
		Timestamp: now,
		Level:     level,
		Message:   msg,
		Fields:    fieldsOf(args),
	})
}

func fieldsOf(args []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}
	return fields
}
