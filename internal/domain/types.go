package domain

import "strconv"

// Document is a single uploaded file after text extraction.
type Document struct {
	ID      string
	Name    string
	Content string
}

// Segment is an immutable slice of a document used as the unit of retrieval.
// Index is the order_index assigned during chunking.
type Segment struct {
	DocumentID string
	Text       string
	Index      int
}

// ID returns the stable identifier of the segment within its document.
func (s Segment) ID() string {
	return s.DocumentID + ":" + strconv.Itoa(s.Index)
}

// Embedding pairs a segment identifier with its vector.
type Embedding struct {
	SegmentID string
	Vector    []float32
}

// SearchResult is a matching segment with its similarity score.
type SearchResult struct {
	Segment Segment
	Score   float64
}

// Role tags who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a message authored by the user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a message authored by the assistant.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Answer is the uniform result of both answer paths.
type Answer struct {
	Text     string
	Grounded bool
	Sources  []Segment
}
