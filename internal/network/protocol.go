package network

import "encoding/json"

// Message types - Client → Server
const (
	MsgTypeState            = "state"
	MsgTypePickUp           = "pick_up"
	MsgTypeHover            = "hover"
	MsgTypeRotate           = "rotate"
	MsgTypeDrop             = "drop"
	MsgTypeDropOne          = "drop_one"
	MsgTypeCancel           = "cancel"
	MsgTypeCraft            = "craft"
	MsgTypeCollect          = "collect"
	MsgTypeDiscard          = "discard"
	MsgTypeEquipContainer   = "equip_container"
	MsgTypeUnequipContainer = "unequip_container"
	MsgTypeEquipTool        = "equip_tool"
	MsgTypeUnequipTool      = "unequip_tool"
	MsgTypePing             = "ping"
)

// Message types - Server → Client
const (
	MsgTypeWelcome  = "welcome"
	MsgTypeSnapshot = "state"
	MsgTypeEvent    = "event"
	MsgTypeRejected = "rejected"
	MsgTypeError    = "error"
	MsgTypePong     = "pong"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// CellPayload addresses one cell of a named grid ("inventory" or "tray").
// Used by pick_up, hover, drop and drop_one. A hover with an empty grid
// clears the hover target.
type CellPayload struct {
	Grid string `json:"grid"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// EquipPayload is sent with equip_container and equip_tool. With FromDrag
// the held item is equipped; otherwise the item covering the cell is.
type EquipPayload struct {
	FromDrag bool   `json:"from_drag"`
	Grid     string `json:"grid,omitempty"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	PlayerID string          `json:"player_id"`
	Username string          `json:"username"`
	Items    []ItemInfo      `json:"items"`
	State    StationSnapshot `json:"state"`
}

// ItemInfo describes an item kind so clients can draw footprints.
type ItemInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CanRotate bool   `json:"can_rotate"`
	MaxStack  int    `json:"max_stack"`
}

// StationSnapshot is the full visible state of a crafting station.
type StationSnapshot struct {
	Inventory GridSnapshot    `json:"inventory"`
	Tray      GridSnapshot    `json:"tray"`
	Drag      *DragSnapshot   `json:"drag,omitempty"`
	Container string          `json:"container,omitempty"`
	Equipped  bool            `json:"container_equipped"`
	Tool      string          `json:"tool,omitempty"`
	Preview   *OutputSnapshot `json:"preview,omitempty"`
	Result    *OutputSnapshot `json:"result,omitempty"`
}

// GridSnapshot lists the settled items of one grid.
type GridSnapshot struct {
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Items  []ItemSnapshot `json:"items"`
}

// ItemSnapshot is one placed item.
type ItemSnapshot struct {
	Item    string `json:"item"`
	Count   int    `json:"count"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Rotated bool   `json:"rotated"`
}

// DragSnapshot describes the held item and its hover preview.
type DragSnapshot struct {
	Item       string `json:"item"`
	Count      int    `json:"count"`
	Rotated    bool   `json:"rotated"`
	Origin     string `json:"origin"`
	HoverGrid  string `json:"hover_grid,omitempty"`
	HoverX     int    `json:"hover_x"`
	HoverY     int    `json:"hover_y"`
	HoverValid bool   `json:"hover_valid"`
	CrossGrid  bool   `json:"cross_grid"`
}

// OutputSnapshot describes a previewed or crafted output.
type OutputSnapshot struct {
	Recipe   string `json:"recipe"`
	Item     string `json:"item"`
	Count    int    `json:"count"`
	Fallback bool   `json:"fallback"`
}

// RejectedPayload reports a core operation that refused the request. The
// station state is unchanged.
type RejectedPayload struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
