package whatsthat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ============================================================================
// Identity
// ============================================================================

// ID is an identifier issued by the service. Some endpoints send ids as JSON
// numbers and others as strings; ID accepts both so that comparisons between
// ids from different payloads are plain string comparisons.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = canonicalNumber(n)
	return nil
}

// canonicalNumber renders whole numbers without a fraction or exponent, so
// 42, 42.0 and 4.2e1 all become "42".
func canonicalNumber(n json.Number) ID {
	if i, err := n.Int64(); err == nil {
		return ID(strconv.FormatInt(i, 10))
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return ID(n.String())
	}
	return ID(strconv.FormatInt(int64(f), 10))
}

func (id ID) String() string { return string(id) }

// Session is the authenticated identity. The zero value means logged out.
type Session struct {
	UserID ID     `json:"id"`
	Token  string `json:"token"`
}

// LoggedIn reports whether both halves of the identity are present.
func (s Session) LoggedIn() bool {
	return s.UserID != "" && s.Token != ""
}

// ============================================================================
// Users
// ============================================================================

// User is a member, contact or search result. Equality is by UserID.
type User struct {
	UserID    ID     `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// Member is a chat participant.
type Member = User

// FullName joins first and last name the way member and contact lists show them.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type SignUpOptions struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// UserUpdate carries the fields to PATCH. Empty fields are not sent.
type UserUpdate struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u UserUpdate) Empty() bool {
	return u == UserUpdate{}
}

// SearchScope restricts a user search.
type SearchScope string

const (
	SearchAll      SearchScope = "all"
	SearchContacts SearchScope = "contacts"
)

type SearchOptions struct {
	Query  string
	In     SearchScope
	Limit  int
	Offset int
}

// ============================================================================
// Chats
// ============================================================================

// Message is one entry of a chat thread. Timestamp is milliseconds since the
// Unix epoch and defines display order.
type Message struct {
	MessageID ID     `json:"message_id"`
	Author    User   `json:"author"`
	Text      string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (m Message) AuthorUserID() ID { return m.Author.UserID }

func (m Message) AuthorFirstName() string { return m.Author.FirstName }

// Chat is the full thread as returned by GET /chat/{id}. It is replaced
// wholesale on every fetch.
type Chat struct {
	ChatID   ID        `json:"chat_id,omitempty"`
	Name     string    `json:"name"`
	Creator  User      `json:"creator"`
	Members  []Member  `json:"members"`
	Messages []Message `json:"messages"`
}

// Message returns the message with the given id.
func (c *Chat) Message(id ID) (Message, bool) {
	if c == nil {
		return Message{}, false
	}
	for _, m := range c.Messages {
		if m.MessageID == id {
			return m, true
		}
	}
	return Message{}, false
}

// HasMember reports whether userID is a member of the chat.
func (c *Chat) HasMember(userID ID) bool {
	if c == nil {
		return false
	}
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// ChatSummary is one row of the chat list.
type ChatSummary struct {
	ChatID      ID       `json:"chat_id"`
	Name        string   `json:"name"`
	Creator     User     `json:"creator"`
	LastMessage *Message `json:"last_message,omitempty"`
}

// Preview returns the last message text or a placeholder.
func (s ChatSummary) Preview() string {
	if s.LastMessage == nil || s.LastMessage.Text == "" {
		return "No messages yet"
	}
	return s.LastMessage.Text
}

type createdChat struct {
	ChatID ID `json:"chat_id"`
}

type createdUser struct {
	UserID ID `json:"user_id"`
}

// Photo is a raw profile image.
type Photo struct {
	ContentType string
	Data        []byte
}
