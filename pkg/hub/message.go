// Package hub fans status updates out to websocket subscribers. One
// goroutine owns the client set; each client has its own write pump.
package hub

import "github.com/teslashibe/go-depthguard/pkg/protocol"

// MessageType indicates the websocket frame type
type MessageType int

const (
	// TextMessage is a JSON envelope
	TextMessage MessageType = iota
	// BinaryMessage is raw binary data such as an encoded depth frame
	BinaryMessage
)

// Message is one outbound websocket frame
type Message struct {
	Type MessageType
	Data []byte
}

// NewTextMessage wraps pre-encoded JSON
func NewTextMessage(data []byte) Message {
	return Message{Type: TextMessage, Data: data}
}

// NewBinaryMessage wraps binary data
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// FromProtocol encodes a protocol envelope as a text message
func FromProtocol(m *protocol.Message) (Message, error) {
	data, err := m.Bytes()
	if err != nil {
		return Message{}, err
	}
	return NewTextMessage(data), nil
}
