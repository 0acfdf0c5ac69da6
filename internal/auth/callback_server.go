package auth

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"trellis/pkg/logging"
)

// CallbackPath is the fixed path the provider redirects to. It is part of
// the redirect URIs registered with the provider and cannot vary per attempt.
const CallbackPath = "/oauth/callback"

// DefaultCallbackTimeout is how long to wait for the provider redirect
// before the login attempt fails.
const DefaultCallbackTimeout = 300 * time.Second

// shutdownGrace is how long the server lingers after answering the
// callback, so the HTML response flushes before the socket closes.
const shutdownGrace = 1 * time.Second

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTemplate = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTemplate   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// CallbackResult is a validated (code, state) pair from the provider redirect.
type CallbackResult struct {
	Code  string
	State string
}

// CallbackServer is a temporary loopback-only HTTP server that captures a
// single OAuth redirect. It validates the redirect against the login
// attempt's state before handing the code to the caller, then shuts down.
type CallbackServer struct {
	ports         []int
	expectedState string

	server   *http.Server
	listener net.Listener
	port     int
	resultCh chan *CallbackResult
	errCh    chan error
	once     sync.Once
	stopOnce sync.Once
}

// NewCallbackServer creates a callback server that will bind the first free
// port from the given ordered list. Every port in the list must be
// pre-registered with the provider; wildcard redirect ports are not assumed
// to be supported.
func NewCallbackServer(ports []int, expectedState string) *CallbackServer {
	return &CallbackServer{
		ports:         ports,
		expectedState: expectedState,
		resultCh:      make(chan *CallbackResult, 1),
		errCh:         make(chan error, 1),
	}
}

// Start binds the listener and begins serving. When the preferred port is
// taken (a second CLI invocation, another tool on the port) the next
// registered fallback port is tried in order. The server stops when ctx is
// cancelled.
//
// Returns the redirect URI to use in the authorization request.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	var bindErrs []error
	for _, port := range s.ports {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			logging.Debug("Callback", "port %d unavailable, trying next registered port: %v", port, err)
			bindErrs = append(bindErrs, err)
			continue
		}
		s.listener = listener
		s.port = port
		break
	}
	if s.listener == nil {
		return "", fmt.Errorf("failed to bind any registered callback port %v: %w", s.ports, errors.Join(bindErrs...))
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s.RedirectURI(), nil
}

// Wait blocks until the redirect arrives, the timeout elapses, or ctx is
// cancelled. Cancellation is how the manager aborts this branch when the
// manual-input fallback wins the race; it surfaces as ctx.Err, which the
// caller discards rather than reporting to the user.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*CallbackResult, error) {
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errCh:
		return nil, err
	case <-timer.C:
		s.Stop()
		return nil, &TimeoutError{Waited: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handleCallback accepts exactly one redirect; later requests get a 400.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.once.Do(func() {
		handled = true
		s.processCallback(w, r)
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

// processCallback validates the redirect. Validation order is fixed:
// provider error first, then code presence, then state. A state mismatch
// must fail before any code is accepted, so a forged redirect can never
// reach the token exchange.
func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()

	var outcome error
	switch {
	case query.Get("error") != "":
		outcome = &ProtocolError{
			Code:        query.Get("error"),
			Description: query.Get("error_description"),
		}
	case query.Get("code") == "":
		outcome = &ValidationError{Msg: "authorization callback is missing the code parameter"}
	case subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(s.expectedState)) != 1:
		logging.Warn("Callback", "OAuth state mismatch detected - possible CSRF attack (expected %d chars, received %d)",
			len(s.expectedState), len(query.Get("state")))
		outcome = &ProtocolError{Code: "state_mismatch", Description: "state parameter does not match this login attempt"}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if outcome != nil {
		s.renderFailure(w, outcome)
		select {
		case s.errCh <- outcome:
		default:
		}
	} else {
		if err := successTemplate.Execute(w, nil); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		select {
		case s.resultCh <- &CallbackResult{Code: query.Get("code"), State: query.Get("state")}:
		default:
		}
	}

	// Linger briefly so the response reaches the browser before the
	// socket closes, then shut down.
	go func() {
		time.Sleep(shutdownGrace)
		s.Stop()
	}()
}

func (s *CallbackServer) renderFailure(w http.ResponseWriter, outcome error) {
	data := map[string]string{}
	var perr *ProtocolError
	if errors.As(outcome, &perr) {
		data["Error"] = perr.Code
		data["Description"] = perr.Description
	}
	if err := errorTemplate.Execute(w, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Stop shuts the server down and releases the port. Safe to call more than
// once and from concurrent goroutines.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// RedirectURI returns the redirect URI for the bound port.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d%s", s.port, CallbackPath)
}

// Port returns the port the server is listening on.
func (s *CallbackServer) Port() int {
	return s.port
}
