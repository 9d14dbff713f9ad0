package service

import "github.com/sifan077/spectra/internal/app/model"

// Actor is whoever issued a request. The zero value is an anonymous guest.
type Actor struct {
	// UserID is the account id, or the guest id of a temporary token.
	UserID string
	// User is nil for anonymous callers and temporary tokens.
	User       *model.User
	SessionKey string
	Temporary  bool
}

// Anonymous returns an actor without a session.
func Anonymous() *Actor { return &Actor{} }

// Authenticated reports whether the actor is logged in as a real account.
func (a *Actor) Authenticated() bool {
	return a != nil && a.User != nil
}

func (a *Actor) Role() model.Role {
	if !a.Authenticated() {
		return model.RoleGuest
	}
	return a.User.Role()
}

// Can reports whether the actor's account holds p. Temporary tokens hold nothing.
func (a *Actor) Can(p model.Permission) bool {
	return a.Authenticated() && a.User.Can(p)
}

// Owns reports whether the actor created item, including guests holding the
// temporary token issued for it.
func (a *Actor) Owns(item *model.Item) bool {
	if a == nil || (a.User == nil && !a.Temporary) {
		return false
	}
	return item.OwnedBy(a.UserID)
}

func (a *Actor) initiator() *string {
	if a == nil || a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}
