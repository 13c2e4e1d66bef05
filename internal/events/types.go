package events

import (
	"time"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/engine"
)

// EventType represents the type of event broadcast to clients.
type EventType string

const (
	// EventTypeRunCompleted is emitted after every rewrite run.
	EventTypeRunCompleted EventType = "run_completed"
	// EventTypeRulesReloaded is emitted when the rule set is recompiled.
	EventTypeRulesReloaded EventType = "rules_reloaded"
	// EventTypeConnection is emitted on client connect/disconnect.
	EventTypeConnection EventType = "connection"
)

// Event is one message sent to connected clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// RunCompletedEvent summarizes a finished rewrite run. It carries
// counts and hashes only, never text.
type RunCompletedEvent struct {
	RunID        string           `json:"run_id"`
	Source       string           `json:"source"`
	RuleCount    int              `json:"rule_count"`
	MappingCount int              `json:"mapping_count"`
	Warnings     []engine.Warning `json:"warnings,omitempty"`
	DurationMS   float64          `json:"duration_ms"`
}

// RulesReloadedEvent reports a rule set reload.
type RulesReloadedEvent struct {
	RuleCount int    `json:"rule_count"`
	Error     string `json:"error,omitempty"`
}

// ConnectionEvent reports a client joining or leaving the feed.
type ConnectionEvent struct {
	Action   string `json:"action"` // connected or disconnected
	ClientID string `json:"client_id"`
}
