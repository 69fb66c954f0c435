package types

type RoomSummary struct {
	ParticipantCount int `json:"participantCount"`
	FactionACount    int `json:"factionACount"`
	FactionBCount    int `json:"factionBCount"`
	Capacity         int `json:"capacity"`
}

// RoleAssigned carries either the assigned role or an admission error, never both.
type RoleAssigned struct {
	Role  string `json:"role,omitempty"`
	Error string `json:"error,omitempty"`
}

type MatchStart struct {
	RemainingTime int `json:"remainingTime"`
}

type TimeUpdate struct {
	RemainingTime int `json:"remainingTime"`
}

type ItemSpawned struct {
	ItemID string  `json:"itemId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Tier   string  `json:"tier"`
}

type ItemLocked struct {
	ItemID string `json:"itemId"`
}

type ItemCaptured struct {
	ItemID         string  `json:"itemId"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Tier           string  `json:"tier"`
	CapturedByRole string  `json:"capturedByRole"`
	Points         int     `json:"points"`
}

type ParticipantSnapshot struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Score       int    `json:"score"`
}

type MatchEnd struct {
	Participants []ParticipantSnapshot `json:"participants"`
}

type Error struct {
	Message string `json:"message"`
}
