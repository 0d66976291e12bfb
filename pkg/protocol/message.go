// Package protocol defines the WebSocket messages exchanged between a depth
// sensor client and depthguard: a JSON envelope for control messages and a
// binary layout for depth frames.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of a JSON WebSocket message
type MessageType string

const (
	// Sensor → depthguard
	TypeHello MessageType = "hello" // Capability handshake, first message on /ws/frames

	// depthguard → clients
	TypeStatus MessageType = "status" // Detector status after a frame
	TypeError  MessageType = "error"  // Fatal or rejected request

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all JSON WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// HelloData announces what the sensor can deliver. A sensor without
// smoothed depth support cannot be used.
type HelloData struct {
	Device        string `json:"device,omitempty"`
	SmoothedDepth bool   `json:"smoothed_depth"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
}

// ErrorData describes why a request or connection was rejected
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// Error codes
const (
	CodeUnsupportedDevice = "unsupported_device"
	CodeConfiguration     = "configuration_failure"
	CodeBadMessage        = "bad_message"
	CodeHandshake         = "handshake_required"
)

// PingData carries an opaque sequence echoed by pong
type PingData struct {
	Seq uint64 `json:"seq"`
}

// NewHelloMessage creates a hello message
func NewHelloMessage(device string, smoothedDepth bool, width, height int) (*Message, error) {
	return NewMessage(TypeHello, HelloData{
		Device:        device,
		SmoothedDepth: smoothedDepth,
		Width:         width,
		Height:        height,
	})
}

// NewStatusMessage wraps a detector status
func NewStatusMessage(status interface{}) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewErrorMessage creates an error message
func NewErrorMessage(code, message string, fatal bool) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Code: code, Message: message, Fatal: fatal})
}

// NewPingMessage creates a ping
func NewPingMessage(seq uint64) (*Message, error) {
	return NewMessage(TypePing, PingData{Seq: seq})
}

// NewPongMessage answers a ping with the same sequence
func NewPongMessage(seq uint64) (*Message, error) {
	return NewMessage(TypePong, PingData{Seq: seq})
}
