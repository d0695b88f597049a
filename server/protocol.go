package main

import "quiver/ranged"

// HTTP API payloads. The WebSocket handshake types live in peerconn.

// SessionInfo is used in the session list
type SessionInfo struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Mode       ranged.CombatMode `json:"mode"`
	Players    int               `json:"players"`
	Bots       int               `json:"bots"`
	MaxPlayers int               `json:"max_players"`
	Locked     bool              `json:"locked"`
}

// CreateSessionReq is the body of POST /api/sessions
type CreateSessionReq struct {
	Name         string            `json:"name"`
	Mode         ranged.CombatMode `json:"mode"`
	Password     string            `json:"password,omitempty"`
	Bots         *int              `json:"bots,omitempty"`
	InfiniteAmmo *bool             `json:"infinite_ammo,omitempty"`
}

// CreatedMsg answers a successful create
type CreatedMsg struct {
	SID string `json:"sid"`
}

// ScoreEntry is one combatant on a session scoreboard
type ScoreEntry struct {
	ID    ranged.CombatantID `json:"id"`
	Name  string             `json:"name"`
	Team  int                `json:"team"`
	Bot   bool               `json:"bot"`
	Shots int                `json:"shots"`
	Hits  int                `json:"hits"`

	Accolades []string `json:"accolades,omitempty"`
}

// SessionDetail is the body of GET /api/sessions/{id}
type SessionDetail struct {
	SessionInfo
	Tick   uint64           `json:"tick"`
	Wind   ranged.WindState `json:"wind"`
	Arrows int              `json:"arrows"`
	Scores []ScoreEntry     `json:"scores"`
}

// AnalyticsResp is the body of GET /api/analytics
type AnalyticsResp struct {
	Peers    int            `json:"peers"`
	Sessions int            `json:"sessions"`
	Events   map[string]int `json:"events"`
}

// ErrorMsg is the body of a failed API call
type ErrorMsg struct {
	Msg string `json:"msg"`
}
