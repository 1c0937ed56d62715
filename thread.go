package whatsthat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var errNoDrafts = errors.New("whatsthat: thread has no draft manager")

// Observer receives the outcome of every load and refresh of a Thread.
type Observer interface {
	OnResult(chat *Chat)
	OnError(err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Result func(*Chat)
	Error  func(error)
}

func (o ObserverFuncs) OnResult(chat *Chat) {
	if o.Result != nil {
		o.Result(chat)
	}
}

func (o ObserverFuncs) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

type ThreadOption func(*Thread)

// WithSessionStore makes Open read the current identity from s. Without it
// the client's session is used.
func WithSessionStore(s *SessionStore) ThreadOption {
	return func(t *Thread) { t.sessions = s }
}

func WithDrafts(d *DraftManager) ThreadOption {
	return func(t *Thread) { t.drafts = d }
}

func WithObserver(o Observer) ThreadOption {
	return func(t *Thread) { t.observer = o }
}

// WithBanner shows every failure in b.
func WithBanner(b *Banner) ThreadOption {
	return func(t *Thread) { t.banner = b }
}

func WithThreadLogger(logger zerolog.Logger) ThreadOption {
	return func(t *Thread) { t.log = logger }
}

// WithLocation sets the time zone used for date separators.
func WithLocation(loc *time.Location) ThreadOption {
	return func(t *Thread) { t.loc = loc }
}

// ============================================================================
// Thread
// ============================================================================

// Thread is the local view of one chat. It re-fetches the whole chat after
// every successful change and keeps selection, compose text and the drafts
// panel consistent with what was fetched. A failed fetch leaves the previous
// chat in place.
type Thread struct {
	id       uuid.UUID
	chatID   ID
	client   *Client
	sessions *SessionStore
	drafts   *DraftManager
	observer Observer
	banner   *Banner
	log      zerolog.Logger
	loc      *time.Location

	mu         sync.Mutex
	me         Session
	chat       *Chat
	sel        Selection
	compose    string
	draftsOpen bool
	draftList  []string
	closed     bool
}

// NewThread creates a view of chatID. client must carry a session.
func NewThread(client *Client, chatID ID, opts ...ThreadOption) *Thread {
	t := &Thread{
		id:       uuid.New(),
		chatID:   chatID,
		client:   client,
		observer: ObserverFuncs{},
		log:      client.log,
		loc:      time.Local,
		me:       client.Session(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With().Str("view", t.id.String()).Str("chat_id", chatID.String()).Logger()
	return t
}

func (t *Thread) ID() uuid.UUID { return t.id }

func (t *Thread) ChatID() ID { return t.chatID }

// Open loads the identity and the chat concurrently. A failed identity load
// falls back to the client's session; a failed chat fetch is reported but
// the identity is still applied.
func (t *Thread) Open(ctx context.Context) error {
	var (
		me   Session
		chat *Chat
		g    errgroup.Group
	)
	g.Go(func() error {
		me = t.loadIdentity()
		return nil
	})
	g.Go(func() error {
		var err error
		chat, err = t.client.Chats.Get(ctx, t.chatID)
		return err
	})
	err := g.Wait()
	t.client.metrics.refreshed(err)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.log.Debug().Msg("dropping load result for closed thread")
		return err
	}
	t.me = me
	if err == nil {
		t.chat = chat
		t.sel.Reconcile(chat)
	}
	t.mu.Unlock()

	if err != nil {
		t.fail(err)
		return err
	}
	t.log.Debug().Int("messages", len(chat.Messages)).Msg("thread opened")
	t.observer.OnResult(chat)
	return nil
}

func (t *Thread) loadIdentity() Session {
	if t.sessions != nil {
		if s := t.sessions.Load(); s.UserID != "" {
			return s
		}
	}
	return t.client.Session()
}

// Refresh re-fetches the chat and replaces the displayed copy.
func (t *Thread) Refresh(ctx context.Context) error {
	chat, err := t.client.Chats.Get(ctx, t.chatID)
	t.client.metrics.refreshed(err)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.log.Debug().Msg("dropping refresh result for closed thread")
		return err
	}
	if err == nil {
		t.chat = chat
		t.sel.Reconcile(chat)
	}
	t.mu.Unlock()

	if err != nil {
		t.fail(err)
		return err
	}
	t.observer.OnResult(chat)
	return nil
}

// mutate runs call and, only if it succeeds, resets the selection and
// refreshes. Failures are surfaced and leave everything untouched.
func (t *Thread) mutate(ctx context.Context, call func(context.Context) error) error {
	if err := call(ctx); err != nil {
		t.fail(err)
		return err
	}
	t.mu.Lock()
	closed := t.closed
	t.sel.Reset()
	t.mu.Unlock()
	if closed {
		return nil
	}
	return t.Refresh(ctx)
}

func (t *Thread) fail(err error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	t.log.Debug().Err(err).Str("kind", kindName(err)).Msg("thread action failed")
	if t.banner != nil {
		t.banner.Show(UserMessage(err))
	}
	t.observer.OnError(err)
}

// Close detaches the thread. Results that arrive afterwards are dropped.
func (t *Thread) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// ============================================================================
// Snapshot accessors
// ============================================================================

// Chat returns the last successfully fetched chat, or nil. It must not be
// modified.
func (t *Thread) Chat() *Chat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chat
}

// Me is the identity used for authorship and drafts.
func (t *Thread) Me() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.me
}

func (t *Thread) Selection() Selection {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sel
}

// Timeline renders the current messages.
func (t *Thread) Timeline() []TimelineItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.chat == nil {
		return nil
	}
	return Timeline(t.chat.Messages, t.me.UserID, t.loc)
}

func (t *Thread) Compose() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.compose
}

func (t *Thread) SetCompose(text string) {
	t.mu.Lock()
	t.compose = text
	t.mu.Unlock()
}

// ============================================================================
// Messages
// ============================================================================

// Send posts text. On success the compose box is cleared if it held the
// same text, matching drafts are evicted and the chat is refreshed.
func (t *Thread) Send(ctx context.Context, text string) error {
	return t.mutate(ctx, func(ctx context.Context) error {
		if err := t.client.Chats.Send(ctx, t.chatID, text); err != nil {
			return err
		}
		t.afterSend(text)
		return nil
	})
}

// SendCompose sends the compose box text.
func (t *Thread) SendCompose(ctx context.Context) error {
	return t.Send(ctx, t.Compose())
}

func (t *Thread) afterSend(text string) {
	t.mu.Lock()
	if strings.TrimSpace(t.compose) == strings.TrimSpace(text) {
		t.compose = ""
	}
	me := t.me.UserID
	open := t.draftsOpen
	t.mu.Unlock()

	if t.drafts == nil {
		return
	}
	if err := t.drafts.EvictSent(t.chatID, me, text); err != nil {
		t.log.Warn().Err(err).Msg("failed to evict sent drafts")
		return
	}
	if open {
		t.reloadDrafts(me)
	}
}

// Select marks messageID as the selected message, replacing any earlier
// selection or edit.
func (t *Thread) Select(messageID ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.chat.Message(messageID); !ok {
		return invalid("message", "Message not found.")
	}
	t.sel.Select(messageID)
	return nil
}

func (t *Thread) Deselect() {
	t.mu.Lock()
	t.sel.Reset()
	t.mu.Unlock()
}

// BeginEdit starts editing the selected message. Only its author may.
func (t *Thread) BeginEdit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.chat.Message(t.sel.MessageID())
	if !ok {
		return invalid("message", "Select a message first.")
	}
	return t.sel.BeginEdit(m, t.me.UserID)
}

func (t *Thread) SetEditText(text string) {
	t.mu.Lock()
	t.sel.SetBuffer(text)
	t.mu.Unlock()
}

// CancelEdit leaves edit mode without saving.
func (t *Thread) CancelEdit() {
	t.Deselect()
}

// SaveEdit sends the edit buffer. A blank buffer ends edit mode without a
// network call.
func (t *Thread) SaveEdit(ctx context.Context) error {
	t.mu.Lock()
	if t.sel.State() != Editing {
		t.mu.Unlock()
		return invalid("message", "Not editing a message.")
	}
	id, text := t.sel.MessageID(), t.sel.Buffer()
	if strings.TrimSpace(text) == "" {
		t.sel.Reset()
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	return t.mutate(ctx, func(ctx context.Context) error {
		return t.client.Chats.EditMessage(ctx, t.chatID, id, text)
	})
}

// DeleteSelected deletes the selected message. Only its author may, and not
// while the message is being edited.
func (t *Thread) DeleteSelected(ctx context.Context) error {
	t.mu.Lock()
	m, ok := t.chat.Message(t.sel.MessageID())
	if t.sel.State() != Selected || !ok {
		t.mu.Unlock()
		return invalid("message", "Select a message first.")
	}
	if !IsMine(m, t.me.UserID) {
		t.mu.Unlock()
		return ErrNotAuthor
	}
	t.mu.Unlock()

	return t.mutate(ctx, func(ctx context.Context) error {
		return t.client.Chats.DeleteMessage(ctx, t.chatID, m.MessageID)
	})
}

// ============================================================================
// Chat details
// ============================================================================

func (t *Thread) Rename(ctx context.Context, name string) error {
	return t.mutate(ctx, func(ctx context.Context) error {
		return t.client.Chats.Rename(ctx, t.chatID, name)
	})
}

func (t *Thread) AddMember(ctx context.Context, userID ID) error {
	return t.mutate(ctx, func(ctx context.Context) error {
		return t.client.Chats.AddMember(ctx, t.chatID, userID)
	})
}

// RemoveMember removes a member other than the current user.
func (t *Thread) RemoveMember(ctx context.Context, userID ID) error {
	if !CanRemoveMember(Member{UserID: userID}, t.Me().UserID) {
		return invalid("member", "You cannot remove yourself from the chat.")
	}
	return t.mutate(ctx, func(ctx context.Context) error {
		return t.client.Chats.RemoveMember(ctx, t.chatID, userID)
	})
}

// ============================================================================
// Drafts panel
// ============================================================================

// SaveDraft stores the compose text as a draft and clears the compose box.
func (t *Thread) SaveDraft() error {
	if t.drafts == nil {
		return errNoDrafts
	}
	t.mu.Lock()
	text, me, open := t.compose, t.me.UserID, t.draftsOpen
	t.mu.Unlock()

	if err := t.drafts.Save(t.chatID, me, text); err != nil {
		t.fail(err)
		return err
	}
	t.mu.Lock()
	if t.compose == text {
		t.compose = ""
	}
	t.mu.Unlock()
	if open {
		t.reloadDrafts(me)
	}
	return nil
}

// OpenDrafts loads the drafts for the panel.
func (t *Thread) OpenDrafts() ([]string, error) {
	if t.drafts == nil {
		return nil, errNoDrafts
	}
	me := t.Me().UserID
	list, err := t.drafts.List(t.chatID, me)
	if err != nil {
		t.fail(err)
		return nil, err
	}
	t.mu.Lock()
	t.draftsOpen = true
	t.draftList = list
	t.mu.Unlock()
	return append([]string(nil), list...), nil
}

func (t *Thread) CloseDrafts() {
	t.mu.Lock()
	t.draftsOpen = false
	t.draftList = nil
	t.mu.Unlock()
}

func (t *Thread) DraftsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draftsOpen
}

// Drafts is the list shown in the open panel.
func (t *Thread) Drafts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.draftList...)
}

// RemoveDraft deletes the draft at index and returns the remaining list.
func (t *Thread) RemoveDraft(index int) ([]string, error) {
	if t.drafts == nil {
		return nil, errNoDrafts
	}
	me := t.Me().UserID
	rest, err := t.drafts.RemoveAt(t.chatID, me, index)
	if err != nil {
		t.fail(err)
		return nil, err
	}
	t.mu.Lock()
	t.draftList = rest
	t.mu.Unlock()
	return append([]string(nil), rest...), nil
}

// UseDraft moves the draft at index into the compose box and closes the
// panel. Either all of that happens or none of it does.
func (t *Thread) UseDraft(index int) (string, error) {
	if t.drafts == nil {
		return "", errNoDrafts
	}
	t.mu.Lock()
	text, err := t.drafts.Consume(t.chatID, t.me.UserID, index)
	if err == nil {
		t.compose = text
		t.draftsOpen = false
		t.draftList = nil
	}
	t.mu.Unlock()

	if err != nil {
		t.fail(err)
		return "", err
	}
	return text, nil
}

func (t *Thread) reloadDrafts(me ID) {
	list, err := t.drafts.List(t.chatID, me)
	if err != nil {
		t.log.Warn().Err(err).Msg("failed to reload drafts")
		return
	}
	t.mu.Lock()
	if t.draftsOpen {
		t.draftList = list
	}
	t.mu.Unlock()
}
