package social

import "time"

// Selfie is a photo check-in, optionally attached to a run.
type Selfie struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	RunID     string         `json:"run_id,omitempty"`
	Caption   string         `json:"caption"`
	PhotoURL  string         `json:"photo_url"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Reactions map[string]int `json:"reactions,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type Friend struct {
	UserID    string    `json:"user_id"`
	FriendID  string    `json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Reaction struct {
	SelfieID  string    `json:"selfie_id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

var reactionKinds = map[string]bool{
	"fire":   true,
	"clap":   true,
	"heart":  true,
	"muscle": true,
}

func ValidReaction(kind string) bool {
	return reactionKinds[kind]
}
