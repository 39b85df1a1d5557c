package models

// MessageType is the channel a chat message arrived on.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
	MessageVideo MessageType = "video"
)

// Valid reports whether t is one of the supported channels.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageVoice, MessageVideo:
		return true
	default:
		return false
	}
}

// ChatRequest is a single inbound chat message. Voice and video messages
// carry a transcript, not media. Message holds the decoded JSON value;
// only strings can be answered.
type ChatRequest struct {
	Message any         `json:"message"`
	Type    MessageType `json:"type"`
}

// ChatResponse is always text, whatever channel the request came from.
type ChatResponse struct {
	Response string      `json:"response"`
	Type     MessageType `json:"type"`
}
