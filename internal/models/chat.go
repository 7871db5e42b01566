package models

import "time"

// Chat message senders.
const (
	ChatSenderAdmin = "admin"
	ChatSenderRider = "rider"
)

// ChatMessage is a single support-chat message between an admin and a rider.
type ChatMessage struct {
	ID         string    `json:"id" db:"id"`
	RiderPhone string    `json:"riderPhone" db:"rider_phone"`
	Sender     string    `json:"sender" db:"sender"`
	SenderName string    `json:"senderName,omitempty" db:"sender_name"`
	Text       string    `json:"text" db:"text"`
	Read       bool      `json:"read" db:"read"`
	SentAt     time.Time `json:"sentAt" db:"sent_at"`
}

// Conversation summarizes a rider's chat thread for the sidebar list.
type Conversation struct {
	RiderPhone    string    `json:"riderPhone"`
	RiderName     string    `json:"riderName"`
	LastMessage   string    `json:"lastMessage"`
	LastSender    string    `json:"lastSender"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	UnreadCount   int       `json:"unreadCount"`
}
