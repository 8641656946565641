package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields. The aggregate of every graph event
// is the vault the graph was built from.
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	EventTypeGraphRebuilt     = "graph.rebuilt"
	EventTypeGraphInvalidated = "graph.invalidated"
	EventTypeVaultSwitched    = "vault.switched"
)

// GraphRebuilt is raised after a build replaced the cached snapshot
type GraphRebuilt struct {
	BaseEvent
	VaultID    string        `json:"vault_id"`
	OptionsKey string        `json:"options_key"`
	NodeCount  int           `json:"node_count"`
	EdgeCount  int           `json:"edge_count"`
	Duration   time.Duration `json:"duration_ns"`
}

// NewGraphRebuilt creates a GraphRebuilt event
func NewGraphRebuilt(vaultID, optionsKey string, nodes, edges int, duration time.Duration, timestamp time.Time) GraphRebuilt {
	return GraphRebuilt{
		BaseEvent: BaseEvent{
			AggregateID: vaultID,
			EventType:   EventTypeGraphRebuilt,
			Timestamp:   timestamp,
			Version:     1,
		},
		VaultID:    vaultID,
		OptionsKey: optionsKey,
		NodeCount:  nodes,
		EdgeCount:  edges,
		Duration:   duration,
	}
}

// GraphInvalidated is raised when cached snapshots of a vault were discarded
type GraphInvalidated struct {
	BaseEvent
	VaultID string `json:"vault_id"`
	Reason  string `json:"reason"`
}

// NewGraphInvalidated creates a GraphInvalidated event
func NewGraphInvalidated(vaultID, reason string, timestamp time.Time) GraphInvalidated {
	return GraphInvalidated{
		BaseEvent: BaseEvent{
			AggregateID: vaultID,
			EventType:   EventTypeGraphInvalidated,
			Timestamp:   timestamp,
			Version:     1,
		},
		VaultID: vaultID,
		Reason:  reason,
	}
}

// VaultSwitched is raised when a service starts serving another vault
type VaultSwitched struct {
	BaseEvent
	PreviousVaultID string `json:"previous_vault_id"`
	VaultID         string `json:"vault_id"`
}

// NewVaultSwitched creates a VaultSwitched event
func NewVaultSwitched(previous, current string, timestamp time.Time) VaultSwitched {
	return VaultSwitched{
		BaseEvent: BaseEvent{
			AggregateID: current,
			EventType:   EventTypeVaultSwitched,
			Timestamp:   timestamp,
			Version:     1,
		},
		PreviousVaultID: previous,
		VaultID:         current,
	}
}
