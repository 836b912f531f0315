package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Logger is a leveled, category-tagged console logger. Every subsystem logs
// through it with a short uppercase category (DATABASE, KAFKA, QUEUE, ...).
type Logger struct {
	mu    sync.Mutex
	debug bool
}

var (
	infoColor    = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	debugColor   = color.New(color.FgCyan)
	fatalColor   = color.New(color.FgRed, color.Bold)
	processColor = color.New(color.FgMagenta)
)

func NewLogger() *Logger {
	return &Logger{
		debug: os.Getenv("LOG_DEBUG") == "true",
	}
}

func (l *Logger) write(c *color.Color, level, category, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	c.Printf("[%s] [%s] [%s] %s\n", timestamp, level, category, message)
}

func (l *Logger) Info(category, message string) {
	l.write(infoColor, "INFO", category, message)
}

func (l *Logger) Warn(category, message string) {
	l.write(warnColor, "WARN", category, message)
}

func (l *Logger) Error(category, message string) {
	l.write(errorColor, "ERROR", category, message)
}

func (l *Logger) Debug(category, message string) {
	if !l.debug {
		return
	}
	l.write(debugColor, "DEBUG", category, message)
}

func (l *Logger) Fatal(category, message string) {
	l.write(fatalColor, "FATAL", category, message)
	os.Exit(1)
}

// LogProcess marks a lifecycle stage (startup, shutdown, component init).
func (l *Logger) LogProcess(stage, message string) {
	l.write(processColor, "PROC", stage, message)
}

// LogDatabase logs a storage operation against a named table.
func (l *Logger) LogDatabase(action, table, message string) {
	l.Info("DATABASE", fmt.Sprintf("[%s] [%s] %s", action, table, message))
}

// LogKafka logs a producer/consumer operation on a topic.
func (l *Logger) LogKafka(action, topic, message string) {
	l.Info("KAFKA", fmt.Sprintf("[%s] [%s] %s", action, topic, message))
}

// LogBooking logs a booking lifecycle step.
func (l *Logger) LogBooking(action, bookingID, message string) {
	l.Info("BOOKING", fmt.Sprintf("[%s] [%s] %s", action, bookingID, message))
}

// LogQueue logs a wait-list mutation for a listing.
func (l *Logger) LogQueue(action, listingID, message string) {
	l.Info("QUEUE", fmt.Sprintf("[%s] [%s] %s", action, listingID, message))
}

// LogPayout logs a payout processing step.
func (l *Logger) LogPayout(action, id, message string) {
	l.Info("PAYOUT", fmt.Sprintf("[%s] [%s] %s", action, id, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogSecurity(event, message string) {
	l.Warn("SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	// Console logger holds no resources; kept for symmetry with main's defer.
}
