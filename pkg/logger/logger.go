package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// Options controls where and how much the logger writes
type Options struct {
	Level string
	// File, when set, receives a copy of every record through a rotating writer.
	File string
	JSON bool
}

// New creates a new logger instance from the environment
func New() *Logger {
	return NewWithOptions(Options{
		Level: os.Getenv("LOG_LEVEL"),
		File:  os.Getenv("LOG_FILE"),
		JSON:  gin.Mode() != gin.DebugMode,
	})
}

// NewWithOptions creates a logger with explicit options
func NewWithOptions(o Options) *Logger {
	level := getLogLevel(o.Level)

	var out io.Writer = os.Stdout
	if o.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		})
	}

	return NewWithWriter(out, level, o.JSON, level == slog.LevelDebug)
}

// NewWithWriter builds a logger on top of an arbitrary writer
func NewWithWriter(w io.Writer, level slog.Level, json, addSource bool) *Logger {
	opts := &slog.HandlerOptions{Level: level, AddSource: addSource}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		// text handler is easier to read while developing
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything, handy in tests
func Discard() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError, false, false)
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithUserID adds user ID to logger context
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("user_id", userID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", c.GetString("request_id")),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("request_id", c.GetString("request_id")),
	)
}

// Business logic logging methods

// LogReservationTransition logs a committed reservation status change
func (l *Logger) LogReservationTransition(ctx context.Context, reservationID, tripID, actorID, status string) {
	l.Logger.InfoContext(ctx,
		"Reservation Transition",
		slog.String("reservation_id", reservationID),
		slog.String("trip_id", tripID),
		slog.String("actor_id", actorID),
		slog.String("status", status),
	)
}

// LogTicketIssued logs when a ticket debits the seat ledger
func (l *Logger) LogTicketIssued(ctx context.Context, ticketID, reservationID, tripID string, seats int) {
	l.Logger.InfoContext(ctx,
		"Ticket Issued",
		slog.String("ticket_id", ticketID),
		slog.String("reservation_id", reservationID),
		slog.String("trip_id", tripID),
		slog.Int("seats", seats),
	)
}

// LogTicketTransition logs a ticket status change after issuance
func (l *Logger) LogTicketTransition(ctx context.Context, ticketID, tripID, status string, seats int) {
	l.Logger.InfoContext(ctx,
		"Ticket Transition",
		slog.String("ticket_id", ticketID),
		slog.String("trip_id", tripID),
		slog.String("status", status),
		slog.Int("seats", seats),
	)
}

// LogLedgerAlarm reports a seat ledger invariant violation. These are never
// expected and must be looked at by a human.
func (l *Logger) LogLedgerAlarm(ctx context.Context, tripID string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)+3)
	args = append(args,
		slog.Bool("alarm", true),
		slog.String("trip_id", tripID),
		slog.String("error", err.Error()),
	)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, "Seat Ledger Inconsistency", args...)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
