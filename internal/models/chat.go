package models

import "time"

// ChatMessage is a stored chat message. For one-to-one messages ReceiverID is
// a user id and IsRead is meaningful; for group messages ReceiverID is a group
// id and read state is not tracked per member.
type ChatMessage struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Text       string    `json:"text"`
	IsGroup    bool      `json:"is_group"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"timestamp"`
}

// PushEvent is the frame delivered over a recipient's push stream.
// The sender never receives its own message this way; the synchronous
// send response is the only self-echo.
type PushEvent struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Text       string `json:"text"`
	IsGroup    bool   `json:"is_group"`
}
