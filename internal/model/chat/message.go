package chat

import (
	"strings"
	"time"
)

// Sender tags for the two sides of a conversation.
const (
	SenderUser  = "user"
	SenderAdmin = "admin"
)

// Message is one immutable unit of conversation content.
type Message struct {
	ID        string    `json:"id" firestore:"-"`
	Text      string    `json:"text" firestore:"text"`
	Sender    string    `json:"sender" firestore:"sender"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// ValidSender reports whether s is a known author tag.
func ValidSender(s string) bool {
	return s == SenderUser || s == SenderAdmin
}

// Blank reports whether text is empty or whitespace-only.
// Blank sends are no-ops by contract.
func Blank(text string) bool {
	return strings.TrimSpace(text) == ""
}
