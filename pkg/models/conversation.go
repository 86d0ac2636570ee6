// Package models defines the data shapes shared across the agent core:
// conversations, messages, tool calls/results, and envelopes.
package models

import "time"

// Mode is one of the four prompt styles a conversation can be in.
type Mode string

const (
	ModeGreen  Mode = "green"
	ModeBlue   Mode = "blue"
	ModeIndigo Mode = "indigo"
	ModeViolet Mode = "violet"
)

// Valid reports whether m is one of the four enumerated modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeGreen, ModeBlue, ModeIndigo, ModeViolet:
		return true
	default:
		return false
	}
}

// DefaultMode is assigned to every newly created conversation.
const DefaultMode = ModeGreen

// Conversation is the persisted record described by the conversation store.
// Mutated only by mode change and last-touched update; never deleted.
type Conversation struct {
	ID                string
	UserID            string
	Mode              Mode
	ProviderConvRef   string
	CreatedAt         time.Time
	LastTouchedAt     time.Time
}
