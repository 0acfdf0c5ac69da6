package auth

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/chzyer/readline"

	"trellis/pkg/logging"
)

// ManualResult is a (code, state) pair obtained from user paste instead of
// the loopback listener. Used over SSH or in environments with no local
// browser.
type ManualResult struct {
	Code  string
	State string

	// StateImplicit is true for the bare-code paste mode, where no state
	// travels with the input and CSRF validation is skipped. This weakens
	// the CSRF protection of the manual path; it is a deliberate,
	// documented trade-off for headless usability, not an oversight to be
	// silently hardened.
	StateImplicit bool
}

// ParseManualInput parses pasted user input: either the full redirect URL
// (code and state are read from its query string) or a bare authorization
// code.
func ParseManualInput(input string) (*ManualResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &ValidationError{Msg: "empty input"}
	}

	if strings.Contains(input, "://") {
		u, err := url.Parse(input)
		if err != nil {
			return nil, &ValidationError{Msg: "could not parse the pasted URL: " + err.Error()}
		}
		query := u.Query()
		if errCode := query.Get("error"); errCode != "" {
			return nil, &ProtocolError{Code: errCode, Description: query.Get("error_description")}
		}
		code := query.Get("code")
		if code == "" {
			return nil, &ValidationError{Msg: "the pasted URL has no code parameter"}
		}
		return &ManualResult{Code: code, State: query.Get("state")}, nil
	}

	// Bare code. There is no state to compare against.
	if strings.ContainsAny(input, " \t") {
		return nil, &ValidationError{Msg: "authorization codes do not contain whitespace; paste the full redirect URL or the bare code"}
	}
	return &ManualResult{Code: input, StateImplicit: true}, nil
}

// PromptManualInput reads the redirect URL or authorization code from the
// terminal. It keeps prompting on malformed input and returns ctx.Err when
// the context is cancelled, which happens when the loopback listener wins
// the race.
func PromptManualInput(ctx context.Context) (*ManualResult, error) {
	rl, err := readline.New("  Paste the redirect URL or authorization code: ")
	if err != nil {
		return nil, err
	}
	defer rl.Close()

	// Closing the readline instance unblocks Readline with io.EOF, which
	// is how the losing branch of the callback race gets cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rl.Close()
		case <-done:
		}
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil, context.Canceled
			}
			return nil, err
		}

		result, err := ParseManualInput(line)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				logging.Debug("Auth", "rejected manual input: %s", verr.Msg)
				rl.SetPrompt("  Invalid input (" + verr.Msg + "), try again: ")
				continue
			}
			return nil, err
		}
		return result, nil
	}
}
