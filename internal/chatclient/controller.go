// Package chatclient holds the presentation-side state machine for the chat
// widget: the active chat list, the selected conversation, its message
// history, and the reconciliation of optimistic sends with the server's
// authoritative response.
package chatclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekinaydin/intrachat/internal/models"
)

var (
	ErrNoSelection  = errors.New("chatclient: no conversation selected")
	ErrEmptyMessage = errors.New("chatclient: message text is empty")
)

type TargetKind int

const (
	TargetUser TargetKind = iota + 1
	TargetGroup
)

// Target identifies one conversation. The kind is an explicit discriminant;
// user and group ids live in separate namespaces and never compare equal
// across kinds.
type Target struct {
	Kind TargetKind
	ID   int64
	Name string
}

func UserTarget(user *models.User) Target {
	return Target{Kind: TargetUser, ID: user.ID, Name: user.Username}
}

func GroupTarget(group *models.Group) Target {
	return Target{Kind: TargetGroup, ID: group.ID, Name: group.Name}
}

func (t Target) same(other Target) bool {
	return t.Kind == other.Kind && t.ID == other.ID
}

// Message is a history entry plus client-side bookkeeping. CorrelationID is
// set while a send awaits its authoritative response and cleared once the
// stored record replaces the optimistic entry.
type Message struct {
	models.ChatMessage
	CorrelationID string
	Pending       bool
}

// API is the server surface the controller drives. Implementations wrap the
// HTTP endpoints; tests substitute stubs.
type API interface {
	History(ctx context.Context, otherID int64, isGroup bool) ([]models.ChatMessage, error)
	Send(ctx context.Context, receiverID int64, text string, isGroup bool) (*models.ChatMessage, error)
	MarkRead(ctx context.Context, senderID int64) error
}

// Directory resolves bare ids from push events into displayable targets.
type Directory interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	GroupByID(ctx context.Context, id int64) (*models.Group, error)
}

// Controller applies three inputs to its state: user actions, synchronous
// send responses, and asynchronous push events. Every slice it exposes is
// replaced wholesale on change, never mutated in place, so callers may
// compare slice identity to detect updates.
type Controller struct {
	mu        sync.Mutex
	selfID    int64
	api       API
	directory Directory

	chats    []Target
	selected *Target
	messages []Message
}

func NewController(selfID int64, api API, directory Directory) *Controller {
	return &Controller{
		selfID:    selfID,
		api:       api,
		directory: directory,
		chats:     []Target{},
		messages:  []Message{},
	}
}

// SetChats installs the initial roster, most recent first.
func (c *Controller) SetChats(chats []Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats = append([]Target{}, chats...)
}

func (c *Controller) ActiveChats() []Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chats
}

func (c *Controller) Selected() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return Target{}, false
	}
	return *c.selected, true
}

func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages
}

// Select switches the view to one conversation: the displayed history is
// replaced by a fresh fetch, and for one-to-one chats the counterpart's
// messages are marked read on the server and flagged locally without
// waiting for confirmation.
func (c *Controller) Select(ctx context.Context, target Target) error {
	history, err := c.api.History(ctx, target.ID, target.Kind == TargetGroup)
	if err != nil {
		return err
	}

	messages := make([]Message, len(history))
	for i, record := range history {
		messages[i] = Message{ChatMessage: record}
	}

	if target.Kind == TargetUser {
		// Best effort; the flags re-derive from the next fetch anyway.
		_ = c.api.MarkRead(ctx, target.ID)
		for i := range messages {
			if messages[i].ReceiverID == c.selfID && messages[i].SenderID == target.ID {
				messages[i].IsRead = true
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	selected := target
	c.selected = &selected
	c.messages = messages
	c.chats = moveToFront(c.chats, target)
	return nil
}

// Send pushes a message to the selected conversation. An optimistic entry
// appears immediately; the server's stored record replaces it when the
// response lands. On failure the optimistic entry is rolled back.
func (c *Controller) Send(ctx context.Context, text string) (*models.ChatMessage, error) {
	optimistic, err := c.SendOptimistic(text)
	if err != nil {
		return nil, err
	}

	stored, err := c.api.Send(ctx, optimistic.ReceiverID, optimistic.Text, optimistic.IsGroup)
	if err != nil {
		c.dropPending(optimistic.CorrelationID)
		return nil, err
	}

	c.ApplySendResponse(optimistic.CorrelationID, stored)
	return stored, nil
}

// SendOptimistic appends a locally-built entry tagged with a fresh
// correlation id and moves the target conversation to the front.
func (c *Controller) SendOptimistic(text string) (Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return Message{}, ErrNoSelection
	}

	message := Message{
		ChatMessage: models.ChatMessage{
			SenderID:   c.selfID,
			ReceiverID: c.selected.ID,
			Text:       trimmed,
			IsGroup:    c.selected.Kind == TargetGroup,
			CreatedAt:  time.Now().UTC(),
		},
		CorrelationID: uuid.NewString(),
		Pending:       true,
	}

	c.messages = appendMessage(c.messages, message)
	c.chats = moveToFront(c.chats, *c.selected)
	return message, nil
}

// ApplySendResponse swaps the optimistic entry for the authoritative stored
// record, keyed by correlation id. An unmatched id appends instead, so the
// message is never lost.
func (c *Controller) ApplySendResponse(correlationID string, stored *models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := append([]Message{}, c.messages...)
	for i := range next {
		if next[i].CorrelationID == correlationID {
			next[i] = Message{ChatMessage: *stored}
			c.messages = next
			return
		}
	}
	c.messages = append(next, Message{ChatMessage: *stored})
}

// HandleEvent merges one inbound push event. Unknown conversations resolve
// through the directory and join the front of the chat list; an event whose
// conversation cannot be resolved is dropped. An event for the currently
// selected one-to-one conversation is read immediately, server and local
// state both.
func (c *Controller) HandleEvent(ctx context.Context, event models.PushEvent) {
	target := Target{Kind: TargetUser, ID: event.SenderID}
	if event.IsGroup {
		target = Target{Kind: TargetGroup, ID: event.ReceiverID}
	}

	if !c.knows(target) {
		resolved, err := c.resolve(ctx, target)
		if err != nil {
			return
		}
		target = resolved
	}

	message := Message{
		ChatMessage: models.ChatMessage{
			SenderID:   event.SenderID,
			ReceiverID: event.ReceiverID,
			Text:       event.Text,
			IsGroup:    event.IsGroup,
			CreatedAt:  time.Now().UTC(),
		},
	}

	markRead := false
	c.mu.Lock()
	if !event.IsGroup && c.selected != nil && c.selected.same(target) {
		message.IsRead = true
		markRead = true
	}
	c.messages = appendMessage(c.messages, message)
	c.chats = moveToFront(c.chats, target)
	c.mu.Unlock()

	if markRead {
		_ = c.api.MarkRead(ctx, event.SenderID)
	}
}

// Unread derives the badge count for one conversation by filtering the
// in-memory message set. Group messages carry no read state and never
// count.
func (c *Controller) Unread(target Target) int {
	if target.Kind == TargetGroup {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, message := range c.messages {
		if !message.IsGroup && !message.IsRead &&
			message.SenderID == target.ID && message.ReceiverID == c.selfID {
			count++
		}
	}
	return count
}

func (c *Controller) knows(target Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, chat := range c.chats {
		if chat.same(target) {
			return true
		}
	}
	return false
}

func (c *Controller) resolve(ctx context.Context, target Target) (Target, error) {
	if target.Kind == TargetGroup {
		group, err := c.directory.GroupByID(ctx, target.ID)
		if err != nil {
			return Target{}, err
		}
		return GroupTarget(group), nil
	}
	user, err := c.directory.UserByID(ctx, target.ID)
	if err != nil {
		return Target{}, err
	}
	return UserTarget(user), nil
}

func (c *Controller) dropPending(correlationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Message, 0, len(c.messages))
	for _, message := range c.messages {
		if message.CorrelationID == correlationID {
			continue
		}
		next = append(next, message)
	}
	c.messages = next
}

func appendMessage(messages []Message, message Message) []Message {
	next := make([]Message, 0, len(messages)+1)
	next = append(next, messages...)
	return append(next, message)
}

// moveToFront returns a fresh slice with the target first. A target not yet
// listed is inserted; names already on file win over a bare id.
func moveToFront(chats []Target, target Target) []Target {
	next := make([]Target, 0, len(chats)+1)
	front := target
	for _, chat := range chats {
		if chat.same(target) {
			front = chat
			continue
		}
		next = append(next, chat)
	}
	if front.Name == "" && target.Name != "" {
		front = target
	}
	return append([]Target{front}, next...)
}
