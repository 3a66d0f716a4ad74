package models

import "time"

// AttachmentKind classifies an attachment by its content type.
type AttachmentKind string

const (
	KindImage    AttachmentKind = "image"
	KindVideo    AttachmentKind = "video"
	KindDocument AttachmentKind = "document"
	KindOther    AttachmentKind = "other"
)

// Attachment is a durably stored file referenced by a message.
type Attachment struct {
	Kind        AttachmentKind `json:"kind"`
	URL         string         `json:"url"`
	FileName    string         `json:"file_name"`
	ContentType string         `json:"content_type"`
}

// Message represents a direct message between two users.
type Message struct {
	ID         int64       `json:"id"`
	SenderID   int         `json:"sender_id"`
	ReceiverID int         `json:"receiver_id"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment"`
	CreatedAt  time.Time   `json:"created_at"`
}

// MessageDraft carries the fields of a message before it is stored.
type MessageDraft struct {
	SenderID   int
	ReceiverID int
	Text       string
	Attachment *Attachment
}

// Event types pushed over live connections.
const (
	EventNewMessage  = "new-message"
	EventOnlineUsers = "online-users"
)

// ChatEvent is pushed through websockets and event streams.
type ChatEvent struct {
	Type        string   `json:"type"`
	Message     *Message `json:"message,omitempty"`
	OnlineUsers []int    `json:"online_users,omitempty"`
}
