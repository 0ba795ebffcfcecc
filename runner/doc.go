// Package runner drives interactive console conversations against the
// engine. It reads one user line per turn, streams the turn's events to the
// terminal as they happen, and carries the text transcript forward so the
// model sees the whole conversation.
package runner
