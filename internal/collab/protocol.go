package collab

import (
	"encoding/json"

	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/geometry"
	"github.com/venuekit/venuekit/backend-go/internal/scene"
)

type Message struct {
	Type     string          `json:"type"`
	VenueID  string          `json:"venueId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is a cursor position in world units.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

// DocSyncPayload carries the full venue document and the sequence it
// reflects.
type DocSyncPayload struct {
	Document  *document.Document `json:"document"`
	ServerSeq int64              `json:"serverSeq"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync = "doc.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// Operation types
const (
	OpRowCreate          = "row.create"
	OpRowCreateCurved    = "row.createCurved"
	OpRowsCreateMultiple = "rows.createMultiple"
	OpTableCreate        = "table.create"
	OpSeatCreate         = "seat.create"
	OpAreaCreate         = "area.create"
	OpLineCreate         = "line.create"
	OpStructureCreate    = "structure.create"
	OpSectionCreate      = "section.create"
	OpSectionUpdate      = "section.update"
	OpSectionDelete      = "section.delete"
	OpEntityMove         = "entity.move"
	OpEntityResize       = "entity.resize"
	OpEntityLabel        = "entity.label"
	OpRowCurve           = "row.curve"
	OpRowEndpoints       = "row.endpoints"
	OpSelectionRotate    = "selection.rotate"
	OpSelectionFront     = "selection.front"
	OpSelectionBack      = "selection.back"
	OpSelectionDelete    = "selection.delete"
	OpSelectionLabels    = "selection.labels"
	OpSelectionSection   = "selection.section"
	OpSelectionSeatType  = "selection.seatType"
	OpSelectionSeatState = "selection.seatStatus"
	OpSelectionLock      = "selection.lock"
	OpSceneRename        = "scene.rename"
	OpSceneImport        = "scene.import"
)

// --- Operation Types ---

// Operation represents a venue document mutation. Only the fields used by
// its Type are set.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`
	ObjectID  string `json:"objectId,omitempty"`

	// Ids allocated by the server for created entities, in allocation
	// order. Replicas replaying the operation reuse them.
	Created []string `json:"created,omitempty"`

	// For the create operations
	Label       string                 `json:"label,omitempty"`
	SeatCount   int                    `json:"seatCount,omitempty"`
	Position    *geometry.Point        `json:"position,omitempty"`
	Size        *geometry.Size         `json:"size,omitempty"`
	Shape       string                 `json:"shape,omitempty"`
	Points      []geometry.Point       `json:"points,omitempty"`
	StrokeWidth float64                `json:"strokeWidth,omitempty"`
	LineKind    document.LineKind      `json:"lineKind,omitempty"`
	Structure   document.StructureType `json:"structureType,omitempty"`
	Color       string                 `json:"color,omitempty"`
	Price       *float64               `json:"price,omitempty"`
	SectionID   string                 `json:"sectionId,omitempty"`
	Rows        []scene.RowConfig      `json:"rows,omitempty"`
	Spacing     float64                `json:"spacing,omitempty"`
	Start       *geometry.Point        `json:"start,omitempty"`
	End         *geometry.Point        `json:"end,omitempty"`
	Curvature   *float64               `json:"curvature,omitempty"`
	Delta       *geometry.Point        `json:"delta,omitempty"`

	// For the selection operations
	IDs        []string            `json:"ids,omitempty"`
	Degrees    float64             `json:"degrees,omitempty"`
	Pattern    string              `json:"pattern,omitempty"`
	SeatType   document.SeatType   `json:"seatType,omitempty"`
	SeatStatus document.SeatStatus `json:"seatStatus,omitempty"`
	Locked     *bool               `json:"locked,omitempty"`

	// For scene.rename
	Name string `json:"name,omitempty"`

	// For scene.import
	Document json.RawMessage `json:"document,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string   `json:"operationId"`
	ServerSeq       int64    `json:"serverSeq"`
	ServerTimestamp int64    `json:"serverTimestamp"`
	Created         []string `json:"created,omitempty"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}

func newMessage(typ string, payload any) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: typ, Payload: data}
}
