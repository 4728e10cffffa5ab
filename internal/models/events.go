package models

import "time"

// Event types published to the audit stream
const (
	EventTypeBatchApplied   = "bead.batch_applied"
	EventTypeGroupUpdated   = "bead.group_updated"
	EventTypeGroupDeleted   = "bead.group_deleted"
	EventTypeInventoryReset = "bead.inventory_reset"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// EventItem is one (code, type, qty) line carried in an event payload.
type EventItem struct {
	Code string `json:"code"`
	Type string `json:"type"`
	Qty  int64  `json:"qty"`
}

// BatchAppliedEvent published after a batch mutation lands.
type BatchAppliedEvent struct {
	BaseEvent
	BatchID string      `json:"batch_id"`
	Items   []EventItem `json:"items"`
}

// GroupUpdatedEvent published after a record group edit.
type GroupUpdatedEvent struct {
	BaseEvent
	GID   string      `json:"gid"`
	Type  string      `json:"type"`
	Items []EventItem `json:"items"`
}

// GroupDeletedEvent published after a record group delete.
type GroupDeletedEvent struct {
	BaseEvent
	GID  string `json:"gid"`
	Type string `json:"type"`
}

// InventoryResetEvent published after a full reset.
type InventoryResetEvent struct {
	BaseEvent
}
