package live

// MessageType names a live protocol message
type MessageType string

const (
	// MessageState is sent by the server whenever the viewport state changes
	MessageState MessageType = "state"
	// MessageSelectNode is sent by a client that picked a type
	MessageSelectNode MessageType = "select-node"
	// MessageSelectEdge is sent by a client that picked a field edge
	MessageSelectEdge MessageType = "select-edge"
	// MessageFocus asks the server to center an element
	MessageFocus MessageType = "focus"
	// MessageClick carries a click on the drawing, in image pixels
	MessageClick MessageType = "click"
	// MessagePing keeps a text-only client alive
	MessagePing MessageType = "ping"
	// MessagePong answers MessagePing
	MessagePong MessageType = "pong"
)

// State is the viewport state pushed to every client
type State struct {
	Ready      bool   `json:"ready"`
	Generation uint64 `json:"generation"`
	NodeID     string `json:"nodeId,omitempty"`
	EdgeID     string `json:"edgeId,omitempty"`
	// Image is a URL the client can fetch the current drawing from
	Image string `json:"image,omitempty"`
}

// Message is one JSON frame on the socket
type Message struct {
	Type  MessageType `json:"type"`
	State *State      `json:"state,omitempty"`
	ID    string      `json:"id,omitempty"`
	X     float64     `json:"x,omitempty"`
	Y     float64     `json:"y,omitempty"`
}

// Event is a client request delivered to the hub's handler
type Event struct {
	Session string
	Type    MessageType
	ID      string
	X, Y    float64
}
