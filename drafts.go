package whatsthat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ============================================================================
// DraftManager
// ============================================================================

// DraftManager keeps unsent message text per chat and user. Each key holds
// an ordered list, oldest first, stored as a JSON array. Drafts never touch
// the network.
type DraftManager struct {
	kv      KeyValueStore
	log     zerolog.Logger
	metrics *Metrics
}

type DraftOption func(*DraftManager)

func WithDraftLogger(logger zerolog.Logger) DraftOption {
	return func(d *DraftManager) { d.log = logger }
}

func WithDraftMetrics(m *Metrics) DraftOption {
	return func(d *DraftManager) { d.metrics = m }
}

func NewDraftManager(kv KeyValueStore, opts ...DraftOption) *DraftManager {
	d := &DraftManager{kv: kv, log: log.Logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

const draftPrefix = "Chatdraft"

// ErrCannotListKeys is returned by DraftManager.Chats when the backing store
// does not implement KeyLister.
var ErrCannotListKeys = errors.New("whatsthat: store cannot list keys")

// KeyLister is implemented by stores that can enumerate their keys.
type KeyLister interface {
	Keys(prefix string) ([]string, error)
}

// DraftKey is the storage key for the drafts of userID in chatID.
func DraftKey(chatID, userID ID) string {
	return draftPrefix + string(chatID) + "User" + string(userID)
}

// Chats returns the chats in which userID has at least one draft, ordered
// by storage key.
func (d *DraftManager) Chats(userID ID) ([]ID, error) {
	lister, ok := d.kv.(KeyLister)
	if !ok {
		return nil, ErrCannotListKeys
	}
	keys, err := lister.Keys(draftPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	suffix := "User" + string(userID)
	chats := []ID{}
	for _, k := range keys {
		if userID == "" || !strings.HasSuffix(k, suffix) {
			continue
		}
		chatID := ID(strings.TrimSuffix(strings.TrimPrefix(k, draftPrefix), suffix))
		if chatID == "" {
			continue
		}
		drafts, err := d.List(chatID, userID)
		if err != nil {
			return nil, err
		}
		if len(drafts) > 0 {
			chats = append(chats, chatID)
		}
	}
	return chats, nil
}

// List reads the drafts from storage. A missing key is an empty list.
func (d *DraftManager) List(chatID, userID ID) ([]string, error) {
	key := DraftKey(chatID, userID)
	raw, err := d.kv.GetItem(key)
	if err != nil {
		if isNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read drafts: %w", err)
	}
	var drafts []string
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &drafts); err != nil {
			return nil, fmt.Errorf("failed to decode drafts %s: %w", key, err)
		}
	}
	if drafts == nil {
		drafts = []string{}
	}
	return drafts, nil
}

// Save appends the trimmed text. Blank text is ignored.
func (d *DraftManager) Save(chatID, userID ID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	drafts, err := d.List(chatID, userID)
	if err != nil {
		return err
	}
	if err := d.write(chatID, userID, append(drafts, text)); err != nil {
		return err
	}
	d.metrics.draftSaved()
	return nil
}

// RemoveAt deletes the draft at index and returns the remaining list. The
// whole list is rewritten.
func (d *DraftManager) RemoveAt(chatID, userID ID, index int) ([]string, error) {
	drafts, err := d.List(chatID, userID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(drafts) {
		return nil, invalid("draft", fmt.Sprintf("no draft at position %d", index))
	}
	rest := append(drafts[:index:index], drafts[index+1:]...)
	if err := d.write(chatID, userID, rest); err != nil {
		return nil, err
	}
	return rest, nil
}

// Consume removes the draft at index and returns its text. The text is only
// returned once the shortened list has been persisted.
func (d *DraftManager) Consume(chatID, userID ID, index int) (string, error) {
	drafts, err := d.List(chatID, userID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(drafts) {
		return "", invalid("draft", fmt.Sprintf("no draft at position %d", index))
	}
	text := drafts[index]
	rest := append(drafts[:index:index], drafts[index+1:]...)
	if err := d.write(chatID, userID, rest); err != nil {
		return "", err
	}
	return text, nil
}

// EvictSent removes every draft whose text equals the sent text, so two
// identical drafts are both dropped by one send.
func (d *DraftManager) EvictSent(chatID, userID ID, sent string) error {
	sent = strings.TrimSpace(sent)
	drafts, err := d.List(chatID, userID)
	if err != nil {
		return err
	}
	kept := drafts[:0:0]
	for _, t := range drafts {
		if t != sent {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(drafts) {
		return nil
	}
	return d.write(chatID, userID, kept)
}

func (d *DraftManager) write(chatID, userID ID, drafts []string) error {
	key := DraftKey(chatID, userID)
	b, err := json.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("failed to encode drafts: %w", err)
	}
	if err := d.kv.SetItem(key, string(b)); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("draft write failed")
		return fmt.Errorf("failed to save drafts: %w", err)
	}
	return nil
}
