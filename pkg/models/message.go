package models

type MessageType string

const (
	MessageSent     MessageType = "sent"
	MessageReceived MessageType = "received"
	MessageSystem   MessageType = "system"
)

// Message is an entry of the parents' feed. It only lives in memory.
type Message struct {
	ID        string      `json:"id"`
	Sender    string      `json:"sender"`
	Body      string      `json:"message"`
	Photo     string      `json:"photo,omitempty"`
	Timestamp string      `json:"timestamp"`
	Type      MessageType `json:"type"`
}
