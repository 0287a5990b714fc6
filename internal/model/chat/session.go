package chat

import "time"

// Session is the summary record for one visitor's conversation,
// keyed by the visitor's user id. Both sides mutate it on send;
// last writer wins on every field.
type Session struct {
	SessionID   string    `json:"sessionId" firestore:"sessionId"`
	UserName    string    `json:"userName,omitempty" firestore:"userName,omitempty"`
	UserEmail   string    `json:"userEmail,omitempty" firestore:"userEmail,omitempty"`
	LastMessage string    `json:"lastMessage" firestore:"lastMessage"`
	LastUpdated time.Time `json:"lastUpdated" firestore:"lastUpdated,serverTimestamp"`
	Unread      bool      `json:"unread" firestore:"unread"`
	UserTyping  bool      `json:"userTyping,omitempty" firestore:"userTyping,omitempty"`
}

// SessionPatch is a merge-write against a Session summary. Nil fields
// keep their stored values.
type SessionPatch struct {
	UserName    *string
	UserEmail   *string
	LastMessage *string
	Unread      *bool
	UserTyping  *bool
	// Touch bumps lastUpdated to the server clock.
	Touch bool
}

// String returns a pointer to s, for building patches inline.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building patches inline.
func Bool(b bool) *bool { return &b }
