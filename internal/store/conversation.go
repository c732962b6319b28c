package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gwi.com/photo-search-assistant/internal/config"
)

const (
	ChatHistoryKey = "chat-history"

	WelcomeMessageID   = "welcome"
	WelcomeMessageText = "Hi! Tell me what you're looking for and I'll find photos that fit. You can describe a subject, a mood or a project. ✨"
)

// ErrSkipSave can be returned from an Update callback to leave the stored
// conversation untouched without reporting a failure.
var ErrSkipSave = errors.New("skip save")

type Conversation struct {
	Messages   []Message      `json:"messages"`
	LastSearch *SearchPayload `json:"lastSearchData"`
	SavedAt    time.Time      `json:"timestamp"`
}

// ConversationStore is the ordered message log of a session plus its last
// search snapshot. Mutations are serialized so insertion order is preserved.
type ConversationStore struct {
	kv KV
	mu sync.Mutex
}

func NewConversationStore(kv KV) *ConversationStore {
	return &ConversationStore{kv: kv}
}

func welcomeMessage() Message {
	return Message{
		ID:        WelcomeMessageID,
		Kind:      KindAssistant,
		Text:      WelcomeMessageText,
		CreatedAt: time.Now(),
	}
}

// Load returns the session's conversation. When nothing usable is stored the
// welcome message is seeded and persisted, so it keeps its id and timestamp.
func (c *ConversationStore) Load(sessionID string) (*Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadSeeded(sessionID)
}

func (c *ConversationStore) loadSeeded(sessionID string) (*Conversation, error) {
	conv, seeded, err := c.load(sessionID)
	if err != nil {
		return nil, err
	}
	if seeded {
		if err := c.save(sessionID, conv); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// load reports seeded=true when the welcome message was created instead of read.
func (c *ConversationStore) load(sessionID string) (conv *Conversation, seeded bool, err error) {
	raw, ok, err := c.kv.GetValue(sessionID, ChatHistoryKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load conversation: %w", err)
	}

	conv = &Conversation{}
	if ok {
		if err := json.Unmarshal([]byte(raw), conv); err != nil {
			config.Logger.WithFields(logrus.Fields{
				"session_id": sessionID,
				"error":      err,
			}).Warn("Stored chat history is corrupt, starting fresh")
			conv = &Conversation{}
		}
	}

	if len(conv.Messages) == 0 {
		conv.Messages = []Message{welcomeMessage()}
		seeded = true
	}
	return conv, seeded, nil
}

func (c *ConversationStore) save(sessionID string, conv *Conversation) error {
	conv.SavedAt = time.Now()
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := c.kv.SetValue(sessionID, ChatHistoryKey, string(data)); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Update runs fn against the current conversation under the store lock and
// persists the result. Returning ErrSkipSave discards fn's changes.
func (c *ConversationStore) Update(sessionID string, fn func(conv *Conversation) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, _, err := c.load(sessionID)
	if err != nil {
		return err
	}
	if err := fn(conv); err != nil {
		if errors.Is(err, ErrSkipSave) {
			return nil
		}
		return err
	}
	return c.save(sessionID, conv)
}

// Append adds messages in order and returns them as stored.
func (c *ConversationStore) Append(sessionID string, msgs ...Message) ([]Message, error) {
	var stored []Message
	err := c.Update(sessionID, func(conv *Conversation) error {
		stored = conv.Add(msgs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// SetLastSearch replaces the last search snapshot wholesale.
func (c *ConversationStore) SetLastSearch(sessionID string, payload *SearchPayload) error {
	return c.Update(sessionID, func(conv *Conversation) error {
		conv.LastSearch = payload
		return nil
	})
}

// Clear drops the stored history; the next Load starts from the welcome message.
func (c *ConversationStore) Clear(sessionID string) (*Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.DeleteValue(sessionID, ChatHistoryKey); err != nil {
		return nil, fmt.Errorf("failed to clear conversation: %w", err)
	}
	return c.loadSeeded(sessionID)
}

// Add appends messages to the in-memory conversation, filling in missing
// timestamps and replacing missing or duplicate ids.
func (conv *Conversation) Add(msgs ...Message) []Message {
	seen := make(map[string]struct{}, len(conv.Messages)+len(msgs))
	for _, m := range conv.Messages {
		seen[m.ID] = struct{}{}
	}

	added := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if _, dup := seen[m.ID]; m.ID == "" || dup {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		seen[m.ID] = struct{}{}
		conv.Messages = append(conv.Messages, m)
		added = append(added, m)
	}
	return added
}
