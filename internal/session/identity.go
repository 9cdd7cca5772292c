package session

import (
	"context"
	"strings"

	"github.com/tair/stock-ledger/internal/storage"
)

// Identity resolves the logged-in user
type Identity interface {
	CurrentUser(ctx context.Context) (string, bool)
}

// StaticIdentity always reports the same user
type StaticIdentity string

func (s StaticIdentity) CurrentUser(context.Context) (string, bool) {
	return string(s), s != ""
}

// StoreIdentity reads the user recorded under storage.CurrentUserKey, the way
// the login page records it
type StoreIdentity struct {
	Store storage.Store
}

func (s StoreIdentity) CurrentUser(ctx context.Context) (string, bool) {
	user, found, err := s.Store.Get(ctx, storage.CurrentUserKey)
	if err != nil || !found {
		return "", false
	}
	user = strings.TrimSpace(user)
	return user, user != ""
}

type contextKey string

const userKey contextKey = "ledger_user"

// ContextWithUser stores user in ctx
func ContextWithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// ContextIdentity reads the user stored by ContextWithUser
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey).(string)
	return user, ok && user != ""
}

// FirstOf tries each identity in order
type FirstOf []Identity

func (f FirstOf) CurrentUser(ctx context.Context) (string, bool) {
	for _, id := range f {
		if id == nil {
			continue
		}
		if user, ok := id.CurrentUser(ctx); ok {
			return user, true
		}
	}
	return "", false
}

// Resolve returns the current user or DefaultUser
func Resolve(ctx context.Context, id Identity) string {
	if id != nil {
		if user, ok := id.CurrentUser(ctx); ok {
			return user
		}
	}
	return DefaultUser
}
