// Package event models the recorder's wall-clock event log: the live,
// deduplicating ingestion buffer and the pure grouping transforms that derive
// display structure from it.
package event

import (
	"encoding/json"
	"sort"
)

// Event types emitted by the capture-side recorder.
const (
	TypeActiveWindowChanged = "active_window_changed"
	TypeWindowRectChanged   = "window_rect_changed"
	TypeTextInput           = "text_input"
	TypeKeyDown             = "key_down"
	TypeKeyUp               = "key_up"
	TypeMouseMove           = "mouse_move"
	TypeMouseClick          = "mouse_click"
	TypeMouseScroll         = "mouse_scroll"
	TypeClipboard           = "clipboard"
	TypeSnapshot            = "snapshot"
)

// Event is a single recorder event. ID is strictly increasing and serves as
// both the dedup key and the resume cursor. TsMonoMs is a capture-side
// monotonic clock whose epoch can differ from TsWallMs per recorder restart.
// Events are immutable once received, except that the ingestor advances a
// retained text_input event when merging fragments into it.
type Event struct {
	ID          int64      `json:"id"`
	SessionID   string     `json:"session_id"`
	TsWallMs    int64      `json:"ts_wall_ms"`
	TsMonoMs    int64      `json:"ts_mono_ms"`
	EventType   string     `json:"event_type"`
	WindowTitle string     `json:"window_title,omitempty"`
	ProcessName string     `json:"process_name,omitempty"`
	WindowClass string     `json:"window_class,omitempty"`
	Mouse       *MouseInfo `json:"mouse,omitempty"`
	Payload     Payload    `json:"payload,omitempty"`
}

// MouseInfo is the structured mouse state attached to pointer events.
type MouseInfo struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Button *string `json:"button,omitempty"`
	Delta  *int    `json:"delta,omitempty"`
}

// Payload is the event payload, a tagged union keyed by event type. Grouping
// and merge logic switch on the concrete type; unknown event types carry
// their raw structured value in OpaquePayload.
type Payload interface {
	payloadKind() string
}

// TextInputPayload is the payload of a text_input event. Final marks a
// fragment the recorder has closed; final fragments never merge.
type TextInputPayload struct {
	Text  string `json:"text"`
	Final bool   `json:"final,omitempty"`
}

func (TextInputPayload) payloadKind() string { return TypeTextInput }

// KeyPayload is the payload of key_down/key_up events.
type KeyPayload struct {
	Key string `json:"key"`
	VK  int    `json:"vk,omitempty"`
}

func (KeyPayload) payloadKind() string { return "key" }

// ClipboardPayload is the payload of a clipboard event.
type ClipboardPayload struct {
	Text string `json:"text"`
}

func (ClipboardPayload) payloadKind() string { return TypeClipboard }

// OpaquePayload carries the raw structured value of an event type the core
// does not model.
type OpaquePayload struct {
	Raw json.RawMessage `json:"raw"`
}

func (OpaquePayload) payloadKind() string { return "opaque" }

// MarshalJSON writes the raw value unchanged so an opaque payload survives a
// store round trip without double wrapping.
func (p OpaquePayload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw, nil
}

// DecodePayload parses a raw payload blob for the given event type. A blob
// that fails to parse yields nil rather than rejecting the event; an event
// type without a modeled shape yields OpaquePayload.
func DecodePayload(eventType string, raw []byte) Payload {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil
	}
	switch eventType {
	case TypeTextInput:
		var p TextInputPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil
		}
		return p
	case TypeKeyDown, TypeKeyUp:
		var p KeyPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil
		}
		return p
	case TypeClipboard:
		var p ClipboardPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil
		}
		return p
	default:
		if !json.Valid(raw) {
			return nil
		}
		cp := make(json.RawMessage, len(raw))
		copy(cp, raw)
		return OpaquePayload{Raw: cp}
	}
}

// DecodeMouse parses a raw mouse blob, yielding nil on failure.
func DecodeMouse(raw []byte) *MouseInfo {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var m MouseInfo
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return &m
}

// wireEvent is the transport shape of an event, with payload and mouse kept
// raw so one malformed sub-structure nulls only that field.
type wireEvent struct {
	ID          int64           `json:"id"`
	SessionID   string          `json:"session_id"`
	TsWallMs    int64           `json:"ts_wall_ms"`
	TsMonoMs    int64           `json:"ts_mono_ms"`
	EventType   string          `json:"event_type"`
	WindowTitle string          `json:"window_title"`
	ProcessName string          `json:"process_name"`
	WindowClass string          `json:"window_class"`
	Mouse       json.RawMessage `json:"mouse"`
	Payload     json.RawMessage `json:"payload"`
}

// DecodeBatch parses a JSON array of events. A malformed batch (non-array,
// invalid JSON) is treated as empty; ingestion never raises.
func DecodeBatch(data []byte) []Event {
	var wire []wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil
	}
	events := make([]Event, 0, len(wire))
	for _, w := range wire {
		events = append(events, Event{
			ID:          w.ID,
			SessionID:   w.SessionID,
			TsWallMs:    w.TsWallMs,
			TsMonoMs:    w.TsMonoMs,
			EventType:   w.EventType,
			WindowTitle: w.WindowTitle,
			ProcessName: w.ProcessName,
			WindowClass: w.WindowClass,
			Mouse:       DecodeMouse(w.Mouse),
			Payload:     DecodePayload(w.EventType, w.Payload),
		})
	}
	return events
}

// SortAscending orders events by ts_wall_ms ascending, ties broken by id
// ascending, so grouping stays deterministic.
func SortAscending(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].TsWallMs != events[j].TsWallMs {
			return events[i].TsWallMs < events[j].TsWallMs
		}
		return events[i].ID < events[j].ID
	})
}
