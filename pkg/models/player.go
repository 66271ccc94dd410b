package models

import "time"

// Player is an authenticated user owning one crafting workspace
type Player struct {
	// From JWT claims
	ID          string `json:"id"`          // Converted from int64 user_id
	Username    string `json:"username"`    // JWT claim
	Email       string `json:"email"`       // JWT claim
	Permissions int64  `json:"permissions"` // JWT claim: bitwise permission flags
	Activated   int64  `json:"activated"`   // JWT claim: activation timestamp or ban status
	AuthMethod  string `json:"auth_method"` // JWT claim: "password" or "oauth"

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`

	// Crafting actions applied since the workspace was created
	Actions int64 `json:"actions"`
}

// IsActive checks if the player account is activated and not banned
func (p *Player) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return p.Activated > 0
}

// IsBanned checks if the player is banned
func (p *Player) IsBanned() bool {
	return p.Activated == -1
}

// Connect marks the player connected at now
func (p *Player) Connect(now time.Time) {
	p.Connected = true
	p.ConnectedAt = now
	p.LastSeen = now
}

// Disconnect marks the player gone
func (p *Player) Disconnect(now time.Time) {
	p.Connected = false
	p.LastSeen = now
}

// Touch records activity
func (p *Player) Touch(now time.Time) {
	p.LastSeen = now
	p.Actions++
}

// StationOwner is the owner key used for the player's station events
func (p *Player) StationOwner() string {
	return "player:" + p.ID
}
