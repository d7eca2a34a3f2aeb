package bulletin

import (
	"context"
	"log/slog"
	"os"
	"zjubulletin/lib/scrapers/webvpn"
)

type AuthStatus int

const (
	// no login attempt has been made yet
	AuthNotAttempted AuthStatus = iota
	// credentials were absent, not an error
	AuthSkipped
	AuthAuthenticated
	AuthFailed
)

func (s AuthStatus) String() string {
	switch s {
	case AuthSkipped:
		return "skipped"
	case AuthAuthenticated:
		return "authenticated"
	case AuthFailed:
		return "failed"
	}
	return "not attempted"
}

// AuthState is the run-wide authentication outcome. It is resolved
// exactly once before any college is scraped and never changes
// afterwards, even when a session dies mid-run.
type AuthState struct {
	Status AuthStatus
	// only set when Status == AuthAuthenticated
	Session *webvpn.Client
	// only set when Status == AuthFailed
	Reason string
}

func (a AuthState) Authenticated() bool {
	return a.Status == AuthAuthenticated
}

type Credentials struct {
	Username string
	Password string
}

func CredentialsFromEnv() Credentials {
	return Credentials{
		Username: os.Getenv("ZJU_USERNAME"),
		Password: os.Getenv("ZJU_PASSWORD"),
	}
}

// Authenticate performs the run's single login transition. Missing
// credentials short-circuit to AuthSkipped; every login failure is
// absorbed into AuthFailed, so callers treat all of them uniformly as
// "authentication unavailable".
func Authenticate(ctx context.Context, gatewayURL string, creds Credentials) AuthState {
	if creds.Username == "" || creds.Password == "" {
		slog.Info("credentials not set, skipping webvpn login")
		return AuthState{Status: AuthSkipped}
	}

	session, err := webvpn.NewClient(webvpn.ClientOptions{BaseURL: gatewayURL})
	if err != nil {
		slog.Warn("webvpn login failed, using public fallback urls", "err", err)
		return AuthState{Status: AuthFailed, Reason: err.Error()}
	}
	err = session.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		slog.Warn("webvpn login failed, using public fallback urls", "err", err)
		return AuthState{Status: AuthFailed, Reason: err.Error()}
	}

	slog.Info("webvpn session ready")
	return AuthState{Status: AuthAuthenticated, Session: session}
}
