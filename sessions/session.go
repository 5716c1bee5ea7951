package sessions

import (
	"context"
	"time"

	"github.com/jrsteele09/go-bingo-admin/token"
)

// Record is the persisted form of a session: only the token pair survives a restart,
// everything else is derived from it again.
type Record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	SavedAt      time.Time `json:"saved_at"`
}

func (r *Record) Pair() token.Pair {
	return token.Pair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// Refresher exchanges a refresh token for a new pair at the token endpoint
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (token.Pair, error)
}

// RefresherFunc adapts a function to Refresher
type RefresherFunc func(ctx context.Context, refreshToken string) (token.Pair, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	return f(ctx, refreshToken)
}

// EventType identifies a session state transition
type EventType string

const (
	EventLogin   EventType = "login"
	EventRestore EventType = "restore"
	EventRefresh EventType = "refresh"
	EventLogout  EventType = "logout"
)

// Event is delivered to subscribers after a transition is committed
type Event struct {
	Type   EventType
	Claims *token.Claims // nil for EventLogout
	Err    error         // set when a logout was forced by a failed refresh
}
