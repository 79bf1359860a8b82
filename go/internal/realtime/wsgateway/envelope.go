// Package wsgateway fans session changes out to websocket clients and
// provides the matching client transport.
package wsgateway

import "github.com/mcdev12/planpoker/go/internal/realtime"

// EnvelopeType tags the frames the gateway writes.
type EnvelopeType string

const (
	EnvelopeSubscribed EnvelopeType = "subscribed"
	EnvelopeChange     EnvelopeType = "change"
)

// Envelope is one websocket text frame.
type Envelope struct {
	Type   EnvelopeType     `json:"type"`
	Change *realtime.Change `json:"change,omitempty"`
}
