package core

import "time"

// ChatMessage is the unified structure passed from the chat session to the
// speech dispatcher and the status API.
type ChatMessage struct {
	ID     string    `json:"id"`     // platform-native message ID
	Author string    `json:"author"` // display name, not unique
	Text   string    `json:"text"`   // untrusted UTF-8 payload
	Ts     time.Time `json:"ts"`     // platform-reported publish time
}

// Render builds the line handed to the speech engine for a message.
func Render(msg ChatMessage) string {
	return msg.Author + ": " + msg.Text
}
