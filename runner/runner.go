package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/engine"
	"github.com/hupe1980/gaiakit/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// Input is the line source. Defaults to os.Stdin.
	Input io.Reader
	// Output receives streamed text, progress lines and suggestions.
	// Defaults to os.Stdout.
	Output io.Writer
	// Prompt is printed before each read.
	Prompt string
	// ConversationID identifies the conversation. Defaults to a random ID.
	ConversationID string
	// UserID identifies the user on the turn state.
	UserID string
	// UserName is interpolated into the injected session context.
	UserName string
	// ShowProgress toggles tool progress lines between answers.
	ShowProgress bool

	Logger logging.Logger
}

// Runner is an interactive console loop over the engine. It keeps the text
// transcript between turns; tool exchanges stay inside each turn.
type Runner struct {
	engine         *engine.Engine
	input          io.Reader
	output         io.Writer
	prompt         string
	conversationID string
	userID         string
	userName       string
	showProgress   bool
	logger         logging.Logger
}

// New builds a Runner around an engine, applying any option overrides.
func New(eng *engine.Engine, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Input:          os.Stdin,
		Output:         os.Stdout,
		Prompt:         "> ",
		ConversationID: uuid.NewString(),
		UserID:         "local",
		ShowProgress:   true,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		engine:         eng,
		input:          opts.Input,
		output:         opts.Output,
		prompt:         opts.Prompt,
		conversationID: opts.ConversationID,
		userID:         opts.UserID,
		userName:       opts.UserName,
		showProgress:   opts.ShowProgress,
		logger:         opts.Logger,
	}
}

// Run reads lines until EOF or an exit command, executing one engine turn per
// line. Turn failures are reported and the loop continues; only scanner
// failures end the run with an error.
func (r *Runner) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.input)

	var history []core.Message

	for {
		fmt.Fprint(r.output, r.prompt)

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		state := core.NewState(append(history, core.NewHumanMessage(line))...)
		state.ConversationID = r.conversationID
		state.UserID = r.userID
		state.UserName = r.userName

		final, err := r.turn(ctx, state)
		if err != nil {
			r.logger.Error("turn failed", "conversation_id", r.conversationID, "error", err)
			fmt.Fprintf(r.output, "error: %v\n", err)
			continue
		}

		history = append(history,
			core.NewHumanMessage(line),
			core.NewAssistantMessage(final).WithScope(core.MainScope()),
		)
	}
}

// turn streams one engine turn to the output and returns the final text.
func (r *Runner) turn(ctx context.Context, state *core.State) (string, error) {
	events, errs, err := r.engine.Stream(ctx, state)
	if err != nil {
		return "", err
	}

	var (
		final       string
		streamedAny bool
		suggestions []string
	)

	for ev := range events {
		switch ev := ev.(type) {
		case core.TextEvent:
			streamedAny = true
			fmt.Fprint(r.output, ev.Text)
		case core.ProgressEvent:
			if r.showProgress {
				fmt.Fprintf(r.output, "[%s] %s\n", ev.ToolCategory, ev.Message)
			}
		case core.SuggestionsEvent:
			suggestions = ev.Suggestions
		case core.CompleteEvent:
			final = ev.Message
		}
	}

	if err := <-errs; err != nil {
		return "", err
	}

	if streamedAny {
		fmt.Fprintln(r.output)
	} else if final != "" {
		// No deltas arrived; print the assembled answer instead.
		fmt.Fprintln(r.output, final)
	}

	if len(suggestions) > 0 {
		fmt.Fprintln(r.output, "Try next:")
		for _, s := range suggestions {
			fmt.Fprintf(r.output, "  - %s\n", s)
		}
	}

	return final, nil
}
