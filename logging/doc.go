// Package logging defines the Logger interface the rest of the module logs
// through, plus the implementations shipped with it.
//
// Components depend only on the four-method Logger (Debug, Info, Warn, Error
// with slog-style key-value args) and default to NoOpLogger, so logging is
// opt-in and any structured logger can be plugged in. SlogAdapter wraps an
// existing *slog.Logger; GaiaLogger adds per-component and per-turn context
// plus domain helpers for recording tool calls, model calls and turns.
//
// Typical wiring:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	eng := engine.New(mainAgent, func(o *engine.Options) { o.Logger = logger })
package logging
