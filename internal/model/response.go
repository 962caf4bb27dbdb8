package model

import "time"

// IndexResponse is returned by the probe server root route.
type IndexResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// SearchResponse echoes the search query back unchanged.
type SearchResponse struct {
	OK bool   `json:"ok"`
	Q  string `json:"q"`
}

// SpawnResponse reports the outcome of a spawned shell command.
type SpawnResponse struct {
	OK         bool   `json:"ok"`
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// FailureResponse is the probe server's error body.
type FailureResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// FeedMessage is sent to catalog feed subscribers over WebSocket.
type FeedMessage struct {
	Type      string    `json:"type"`
	Count     int       `json:"count,omitempty"`
	Products  []Product `json:"products,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Feed message types.
const (
	FeedMessageTypeSnapshot = "snapshot"
	FeedMessageTypeError    = "error"
)
