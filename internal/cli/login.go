package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/neonddos/console/internal/protocol"
	"github.com/neonddos/console/internal/store"
)

// Messages shown by the login form.
const (
	MsgCredentialsRequired = "Username and password are required"
	MsgLoginFailed         = "Login failed"
	MsgConnectionError     = "Connection error. Please try again."
)

// ErrValidation is returned when a field is missing.
var ErrValidation = errors.New("username and password are required")

// ErrRejected is returned when the server refuses the credentials.
var ErrRejected = errors.New("login rejected")

// ErrUnreachable is returned when no answer could be read from the server.
var ErrUnreachable = errors.New("login server unreachable")

// Reported reports whether err comes from Submit, which has already shown
// it on the View.
func Reported(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrRejected) || errors.Is(err, ErrUnreachable)
}

// View is where the login form shows its outcome.
type View interface {
	// ShowError replaces the visible error message.
	ShowError(text string)
	// Redirect navigates to path on the server.
	Redirect(path string)
}

// SessionSaver persists the session cookie.
type SessionSaver interface {
	SaveCookie(host string, c *http.Cookie) error
}

// LoginSubmitter validates credentials, submits them and reports the outcome
// to a View.
type LoginSubmitter struct {
	client   *Client
	sessions SessionSaver
	view     View
	logger   *store.Logger
}

// NewLoginSubmitter creates a submitter. sessions and logger may be nil.
func NewLoginSubmitter(client *Client, sessions SessionSaver, view View, logger *store.Logger) *LoginSubmitter {
	if logger == nil {
		logger = store.Discard()
	}
	return &LoginSubmitter{
		client:   client,
		sessions: sessions,
		view:     view,
		logger:   logger,
	}
}

// Submit runs one login attempt.
func (s *LoginSubmitter) Submit(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		s.view.ShowError(MsgCredentialsRequired)
		return ErrValidation
	}

	resp, err := s.client.Login(ctx, username, password)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"server": s.client.Host(),
			"user":   username,
		}).Error("Login error: %v", err)
		s.view.ShowError(MsgConnectionError)
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = MsgLoginFailed
		}
		s.logger.WithField("user", username).Warn("Login rejected: %s", msg)
		s.view.ShowError(msg)
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	if ck := s.client.SessionCookie(); ck != nil && s.sessions != nil {
		if err := s.sessions.SaveCookie(s.client.Host(), ck); err != nil {
			s.logger.Warn("Failed to save session: %v", err)
		}
	}

	s.logger.WithField("user", username).Info("Logged in")
	s.view.Redirect(protocol.DashboardPath)
	return nil
}

// TerminalView shows login errors on a single terminal line that is
// rewritten on every call.
type TerminalView struct {
	out       io.Writer
	serverURL func(path string) string
	shown     bool

	// RedirectedTo is the last redirect target.
	RedirectedTo string
}

// NewTerminalView creates a view writing to out. serverURL resolves
// redirect paths for display.
func NewTerminalView(out io.Writer, serverURL func(path string) string) *TerminalView {
	return &TerminalView{out: out, serverURL: serverURL}
}

func (v *TerminalView) ShowError(text string) {
	if v.shown {
		fmt.Fprint(v.out, "\033[1A\r\033[2K")
	}
	fmt.Fprintf(v.out, "%s✗ %s%s\n", colorRed, text, colorReset)
	v.shown = true
}

func (v *TerminalView) Redirect(path string) {
	v.RedirectedTo = path
	if v.shown {
		fmt.Fprint(v.out, "\033[1A\r\033[2K")
		v.shown = false
	}
	target := path
	if v.serverURL != nil {
		target = v.serverURL(path)
	}
	fmt.Fprintf(v.out, "%s✓ Logged in%s  %s\n", colorGreen, colorReset, target)
	fmt.Fprintln(v.out, "Run 'neonddos dashboard' to open the live dashboard.")
}

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
)
