package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a user-facing level enum decoupled from slog's levels.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns the level's conventional upper-case name.
func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// slogLevel maps the enum onto slog's level space.
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is the minimal structured-logging interface components depend on.
// Args are slog-style alternating key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter makes a *slog.Logger satisfy Logger.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs at debug level.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs at info level.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs at warn level.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs at error level.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter wraps an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger adapts slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NoOpLogger discards everything. The default for library components so that
// logging is strictly opt-in.
type NoOpLogger struct{}

// Debug discards the entry.
func (NoOpLogger) Debug(string, ...any) {}

// Info discards the entry.
func (NoOpLogger) Info(string, ...any) {}

// Warn discards the entry.
func (NoOpLogger) Warn(string, ...any) {}

// Error discards the entry.
func (NoOpLogger) Error(string, ...any) {}

// LoggerConfig configures a GaiaLogger.
type LoggerConfig struct {
	Level          LogLevel
	Format         string // "json" or "text"
	Output         io.Writer
	AddSource      bool
	Component      string
	ConversationID string
	TurnID         string
	CustomAttrs    map[string]any
}

// DefaultLoggerConfig is JSON at info level to stdout.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout, AddSource: true, CustomAttrs: map[string]any{}}
}

// GaiaLogger is a Logger with contextual attributes attached to every entry.
// The With* methods return modified copies, so one base logger can fan out
// per component and per turn without interference.
type GaiaLogger struct {
	logger         *slog.Logger
	level          LogLevel
	context        map[string]any
	component      string
	conversationID string
	turnID         string
}

// NewLogger builds a GaiaLogger from cfg; nil selects DefaultLoggerConfig.
func NewLogger(cfg *LoggerConfig) *GaiaLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel(), AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	l := &GaiaLogger{
		logger:         slog.New(handler),
		level:          cfg.Level,
		context:        map[string]any{},
		component:      cfg.Component,
		conversationID: cfg.ConversationID,
		turnID:         cfg.TurnID,
	}
	for k, v := range cfg.CustomAttrs {
		l.context[k] = v
	}

	return l
}

// NewSlogLogger is the common-case constructor: level, "json" or "text"
// ("" keeps the default), and source annotation.
func NewSlogLogger(level LogLevel, format string, addSource bool) *GaiaLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource

	return NewLogger(cfg)
}

func (l *GaiaLogger) clone() *GaiaLogger {
	nl := *l
	nl.context = make(map[string]any, len(l.context))
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext returns a copy that attaches key=value to every entry.
func (l *GaiaLogger) WithContext(key string, value any) *GaiaLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent returns a copy tagged with the logical component (engine,
// transform, tool, ...).
func (l *GaiaLogger) WithComponent(c string) *GaiaLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithTurn returns a copy tagged with conversation and turn identifiers,
// replacing any previous pair.
func (l *GaiaLogger) WithTurn(conversationID, turnID string) *GaiaLogger {
	nl := l.clone()
	nl.conversationID = conversationID
	nl.turnID = turnID
	return nl
}

// contextArgs renders the contextual attributes as slog key-value args,
// prepended to each entry's own args.
func (l *GaiaLogger) contextArgs() []any {
	args := make([]any, 0, 2*(len(l.context)+3))
	if l.component != "" {
		args = append(args, "component", l.component)
	}
	if l.conversationID != "" {
		args = append(args, "conversation_id", l.conversationID)
	}
	if l.turnID != "" {
		args = append(args, "turn_id", l.turnID)
	}
	for k, v := range l.context {
		args = append(args, k, v)
	}
	return args
}

func (l *GaiaLogger) log(at LogLevel, msg string, args ...any) {
	if l.level > at {
		return
	}
	l.logger.Log(context.Background(), at.slogLevel(), msg, append(l.contextArgs(), args...)...)
}

// Debug logs at debug level with slog-style key-value args.
func (l *GaiaLogger) Debug(msg string, args ...any) { l.log(LogLevelDebug, msg, args...) }

// Info logs at info level with slog-style key-value args.
func (l *GaiaLogger) Info(msg string, args ...any) { l.log(LogLevelInfo, msg, args...) }

// Warn logs at warn level with slog-style key-value args.
func (l *GaiaLogger) Warn(msg string, args ...any) { l.log(LogLevelWarn, msg, args...) }

// Error logs at error level with slog-style key-value args.
func (l *GaiaLogger) Error(msg string, args ...any) { l.log(LogLevelError, msg, args...) }

// outcome picks the level and message for a success/failure record.
func outcome(success bool, done, failed string) (LogLevel, string) {
	if success {
		return LogLevelInfo, done
	}
	return LogLevelError, failed
}

// errArgs appends an error attribute when err is set.
func errArgs(args []any, err error) []any {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	return args
}

// LogToolCall records one tool invocation.
func (l *GaiaLogger) LogToolCall(tool, category string, dur time.Duration, success bool, err error) {
	level, msg := outcome(success, "Tool execution completed", "Tool execution failed")
	args := errArgs([]any{
		"tool_name", tool,
		"tool_category", category,
		"duration", dur,
		"success", success,
	}, err)
	l.log(level, msg, args...)
}

// LogModelCall records one model call with latency and token usage.
func (l *GaiaLogger) LogModelCall(model string, tokens int, dur time.Duration, success bool, err error) {
	level, msg := outcome(success, "Model call completed", "Model call failed")
	args := errArgs([]any{
		"model", model,
		"token_count", tokens,
		"duration", dur,
		"success", success,
	}, err)
	l.log(level, msg, args...)
}

// LogTurn records aggregate metrics for one conversational turn.
func (l *GaiaLogger) LogTurn(agent string, roundTrips int, dur time.Duration, success bool, err error) {
	level, msg := outcome(success, "Turn completed", "Turn failed")
	args := errArgs([]any{
		"agent", agent,
		"round_trips", roundTrips,
		"duration", dur,
		"success", success,
	}, err)
	l.log(level, msg, args...)
}
