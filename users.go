package whatsthat

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ============================================================================
// Account
// ============================================================================

// AccountClient handles sign-up, login and logout.
type AccountClient struct{ c *Client }

// SignUp registers a new user and returns the new user id. Input is validated
// locally first.
func (a *AccountClient) SignUp(ctx context.Context, opts SignUpOptions) (ID, error) {
	if err := ValidateSignUp(opts); err != nil {
		return "", err
	}
	res, err := decodeJSON[createdUser](ctx, a.c, request{
		op: "account.signup", method: "POST", path: "/user", body: opts, anonymous: true,
	})
	return res.UserID, err
}

// Login exchanges credentials for a session.
func (a *AccountClient) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, invalid("credentials", "Please enter your email and password.")
	}
	sess, err := decodeJSON[Session](ctx, a.c, request{
		op: "account.login", method: "POST", path: "/login", anonymous: true,
		body: map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return Session{}, err
	}
	if !sess.LoggedIn() {
		return Session{}, &APIError{Kind: ErrServer, Op: "account.login", Method: "POST", Path: "/login",
			Status: 200, Err: fmt.Errorf("login response missing id or token")}
	}
	return sess, nil
}

// Logout invalidates the client's session token on the server. Clearing the
// local session store is the caller's job.
func (a *AccountClient) Logout(ctx context.Context) error {
	return a.c.call(ctx, request{op: "account.logout", method: "POST", path: "/logout"}, nil)
}

// ============================================================================
// Users
// ============================================================================

// UsersClient handles profiles and profile photos.
type UsersClient struct{ c *Client }

func (u *UsersClient) Get(ctx context.Context, userID ID) (*User, error) {
	user, err := decodeJSON[User](ctx, u.c, request{op: "users.get", method: "GET", path: "/user/" + escape(userID)})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update patches the non-empty fields of upd.
func (u *UsersClient) Update(ctx context.Context, userID ID, upd UserUpdate) error {
	if upd.Empty() {
		return nil
	}
	return u.c.call(ctx, request{op: "users.update", method: "PATCH", path: "/user/" + escape(userID), body: upd}, nil)
}

// Photo downloads a user's profile photo.
func (u *UsersClient) Photo(ctx context.Context, userID ID) (*Photo, error) {
	resp, err := u.c.do(ctx, request{
		op: "users.photo", method: "GET", path: "/user/" + escape(userID) + "/photo", accept: "image/png",
	})
	if err != nil {
		return nil, err
	}
	ct := resp.header.Get("Content-Type")
	if ct == "" {
		ct = "image/png"
	}
	return &Photo{ContentType: ct, Data: resp.body}, nil
}

// SetPhoto uploads raw image bytes. contentType defaults to image/jpeg.
func (u *UsersClient) SetPhoto(ctx context.Context, userID ID, data []byte, contentType string) error {
	if len(data) == 0 {
		return invalid("photo", "Photo is empty.")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if !strings.HasPrefix(contentType, "image/") {
		return invalid("photo", fmt.Sprintf("unsupported photo type %q", contentType))
	}
	return u.c.call(ctx, request{
		op: "users.set_photo", method: "POST", path: "/user/" + escape(userID) + "/photo",
		raw: data, contentType: contentType,
	}, nil)
}

// UploadPhotoFile uploads the image at path, detecting its type from the
// extension.
func (u *UsersClient) UploadPhotoFile(ctx context.Context, userID ID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}
	return u.SetPhoto(ctx, userID, data, guessImageType(path))
}

// guessImageType returns an image MIME type from a file extension.
func guessImageType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case "", ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		// Not in Go's builtin registry on every platform.
		return "image/webp"
	}
	t := mime.TypeByExtension(ext)
	if idx := strings.Index(t, ";"); idx > 0 {
		t = strings.TrimSpace(t[:idx])
	}
	if !strings.HasPrefix(t, "image/") {
		return "image/jpeg"
	}
	return t
}

// ============================================================================
// Contacts
// ============================================================================

// ContactsClient handles contacts, blocking and user search.
type ContactsClient struct{ c *Client }

func (ct *ContactsClient) List(ctx context.Context) ([]User, error) {
	return decodeJSON[[]User](ctx, ct.c, request{op: "contacts.list", method: "GET", path: "/contacts"})
}

func (ct *ContactsClient) Add(ctx context.Context, userID ID) error {
	return ct.c.call(ctx, request{op: "contacts.add", method: "POST", path: "/user/" + escape(userID) + "/contact"}, nil)
}

func (ct *ContactsClient) Remove(ctx context.Context, userID ID) error {
	return ct.c.call(ctx, request{op: "contacts.remove", method: "DELETE", path: "/user/" + escape(userID) + "/contact"}, nil)
}

func (ct *ContactsClient) Blocked(ctx context.Context) ([]User, error) {
	return decodeJSON[[]User](ctx, ct.c, request{op: "blocked.list", method: "GET", path: "/blocked"})
}

func (ct *ContactsClient) Block(ctx context.Context, userID ID) error {
	return ct.c.call(ctx, request{op: "blocked.add", method: "POST", path: "/user/" + escape(userID) + "/block"}, nil)
}

func (ct *ContactsClient) Unblock(ctx context.Context, userID ID) error {
	return ct.c.call(ctx, request{op: "blocked.remove", method: "DELETE", path: "/user/" + escape(userID) + "/block"}, nil)
}

// Search finds users. Limit defaults to 10 and scope to SearchAll.
func (ct *ContactsClient) Search(ctx context.Context, opts SearchOptions) ([]User, error) {
	if opts.In == "" {
		opts.In = SearchAll
	}
	if opts.In != SearchAll && opts.In != SearchContacts {
		return nil, invalid("search_in", fmt.Sprintf("unknown search scope %q", opts.In))
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	q := url.Values{}
	q.Set("q", opts.Query)
	q.Set("search_in", string(opts.In))
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("offset", strconv.Itoa(opts.Offset))
	return decodeJSON[[]User](ctx, ct.c, request{op: "users.search", method: "GET", path: "/search", query: q})
}
