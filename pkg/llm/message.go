package llm

// Role values accepted by the backend chat endpoint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message sent to or received from the backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// Images carries base64-encoded image payloads. Only set on the message the
	// images belong to.
	Images []string `json:"images,omitempty"`
}
