package whatsthat

import (
	"context"
	"strings"
)

// ChatsClient handles chats, messages and chat membership. Every method is a
// single round trip; callers re-fetch with Get after a change.
type ChatsClient struct{ c *Client }

func (ch *ChatsClient) List(ctx context.Context) ([]ChatSummary, error) {
	return decodeJSON[[]ChatSummary](ctx, ch.c, request{op: "chats.list", method: "GET", path: "/chat"})
}

// Create creates a chat and returns its id.
func (ch *ChatsClient) Create(ctx context.Context, name string) (ID, error) {
	if err := ValidateChatName(name); err != nil {
		return "", err
	}
	res, err := decodeJSON[createdChat](ctx, ch.c, request{
		op: "chats.create", method: "POST", path: "/chat",
		body: map[string]string{"name": name},
	})
	return res.ChatID, err
}

func (ch *ChatsClient) Rename(ctx context.Context, chatID ID, name string) error {
	if err := ValidateChatName(name); err != nil {
		return err
	}
	return ch.c.call(ctx, request{
		op: "chats.rename", method: "PATCH", path: "/chat/" + escape(chatID),
		body: map[string]string{"name": name},
	}, nil)
}

// Get fetches the full chat. It is the source of truth for a thread view.
func (ch *ChatsClient) Get(ctx context.Context, chatID ID) (*Chat, error) {
	chat, err := decodeJSON[Chat](ctx, ch.c, request{op: "chats.get", method: "GET", path: "/chat/" + escape(chatID)})
	if err != nil {
		return nil, err
	}
	chat.ChatID = chatID
	if chat.Messages == nil {
		chat.Messages = []Message{}
	}
	return &chat, nil
}

// Send posts a message. Blank text is rejected before any network call.
func (ch *ChatsClient) Send(ctx context.Context, chatID ID, text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("message", "Message cannot be empty.")
	}
	return ch.c.call(ctx, request{
		op: "messages.send", method: "POST", path: "/chat/" + escape(chatID) + "/message",
		body: map[string]string{"message": ch.c.normalizeText(text)},
	}, nil)
}

func (ch *ChatsClient) EditMessage(ctx context.Context, chatID, messageID ID, text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("message", "Message cannot be empty.")
	}
	return ch.c.call(ctx, request{
		op: "messages.edit", method: "PATCH", path: "/chat/" + escape(chatID) + "/message/" + escape(messageID),
		body: map[string]string{"message": ch.c.normalizeText(text)},
	}, nil)
}

func (ch *ChatsClient) DeleteMessage(ctx context.Context, chatID, messageID ID) error {
	return ch.c.call(ctx, request{
		op: "messages.delete", method: "DELETE", path: "/chat/" + escape(chatID) + "/message/" + escape(messageID),
	}, nil)
}

func (ch *ChatsClient) AddMember(ctx context.Context, chatID, userID ID) error {
	return ch.c.call(ctx, request{
		op: "members.add", method: "POST", path: "/chat/" + escape(chatID) + "/user/" + escape(userID),
	}, nil)
}

func (ch *ChatsClient) RemoveMember(ctx context.Context, chatID, userID ID) error {
	return ch.c.call(ctx, request{
		op: "members.remove", method: "DELETE", path: "/chat/" + escape(chatID) + "/user/" + escape(userID),
	}, nil)
}
