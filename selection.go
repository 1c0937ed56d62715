package whatsthat

import "strings"

// SelectionState is the UI state of the message a user is acting on.
type SelectionState int

const (
	Idle SelectionState = iota
	Selected
	Editing
)

func (s SelectionState) String() string {
	switch s {
	case Selected:
		return "selected"
	case Editing:
		return "editing"
	}
	return "idle"
}

// Selection tracks the single selected or edited message in a thread. The
// zero value is Idle. It is not safe for concurrent use; Thread guards it.
type Selection struct {
	state     SelectionState
	messageID ID
	buffer    string
}

func (s Selection) State() SelectionState { return s.state }

// MessageID is the selected or edited message, empty when Idle.
func (s Selection) MessageID() ID { return s.messageID }

// Buffer is the in-progress edit text.
func (s Selection) Buffer() string { return s.buffer }

// Select moves to Selected on id, dropping any earlier selection or edit.
func (s *Selection) Select(id ID) {
	*s = Selection{state: Selected, messageID: id}
}

// Reset returns to Idle.
func (s *Selection) Reset() {
	*s = Selection{}
}

// BeginEdit moves from Selected to Editing. Only the author of m may edit,
// and m must be the selected message.
func (s *Selection) BeginEdit(m Message, me ID) error {
	if s.state != Selected || s.messageID != m.MessageID {
		return invalid("message", "Select a message first.")
	}
	if !IsMine(m, me) {
		return ErrNotAuthor
	}
	s.state = Editing
	s.buffer = strings.TrimSpace(m.Text)
	return nil
}

// SetBuffer replaces the edit text. It is ignored unless Editing.
func (s *Selection) SetBuffer(text string) {
	if s.state == Editing {
		s.buffer = text
	}
}

// Reconcile drops the selection if its message is no longer in chat.
func (s *Selection) Reconcile(chat *Chat) {
	if s.state == Idle {
		return
	}
	if _, ok := chat.Message(s.messageID); !ok {
		s.Reset()
	}
}
