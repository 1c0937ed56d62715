package whatsthat

import (
	"context"
	"strings"
)

// Profile is the full set of editable profile fields. Password is the desired
// password; leaving it equal to the current one keeps it unchanged.
type Profile struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Validate checks that every field is filled in and well formed.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" ||
		strings.TrimSpace(p.Email) == "" || strings.TrimSpace(p.Password) == "" {
		return invalid("profile", "Please fill all fields.")
	}
	if err := ValidateEmail(strings.TrimSpace(p.Email)); err != nil {
		return err
	}
	return ValidatePassword(strings.TrimSpace(p.Password))
}

// ProfileEditor applies profile changes for the logged-in user after checking
// the current password against the locally cached one.
type ProfileEditor struct {
	client   *Client
	sessions *SessionStore
}

// NewProfileEditor creates an editor. client must carry a session.
func NewProfileEditor(client *Client, sessions *SessionStore) *ProfileEditor {
	return &ProfileEditor{client: client, sessions: sessions}
}

// Update patches the fields of desired that differ from the server's copy of
// the user and returns what was sent. Nothing is sent when nothing differs.
// On success the cached password is replaced with desired.Password.
func (p *ProfileEditor) Update(ctx context.Context, currentPassword string, desired Profile) (UserUpdate, error) {
	if err := desired.Validate(); err != nil {
		return UserUpdate{}, err
	}
	if strings.TrimSpace(currentPassword) == "" {
		return UserUpdate{}, invalid("current_password", "Please enter a Valid Password.")
	}
	if !p.sessions.VerifyPassword(currentPassword) {
		return UserUpdate{}, invalid("current_password", "Wrong Password.")
	}

	me := p.client.Session().UserID
	current, err := p.client.Users.Get(ctx, me)
	if err != nil {
		return UserUpdate{}, err
	}

	var upd UserUpdate
	if desired.FirstName != current.FirstName {
		upd.FirstName = desired.FirstName
	}
	if desired.LastName != current.LastName {
		upd.LastName = desired.LastName
	}
	if desired.Email != current.Email {
		upd.Email = desired.Email
	}
	if desired.Password != currentPassword {
		upd.Password = desired.Password
	}
	if upd.Empty() {
		return upd, nil
	}

	if err := p.client.Users.Update(ctx, me, upd); err != nil {
		return UserUpdate{}, err
	}
	if err := p.sessions.CachePassword(desired.Password); err != nil {
		return upd, err
	}
	return upd, nil
}
