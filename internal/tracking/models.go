package tracking

import "time"

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
	TotalDistanceM float64   `json:"total_distance_m"`
	DurationSec    int64     `json:"duration_sec"`
	Status         string    `json:"status"`
}

type Point struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Seq         int64     `json:"seq"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	DistanceM   float64   `json:"distance_m"`
	PaceSec     float64   `json:"pace_sec"`
	DurationSec int64     `json:"duration_sec"`
	Cadence     float64   `json:"cadence"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type Summary struct {
	SessionID      string  `json:"session_id"`
	Status         string  `json:"status"`
	PointCount     int     `json:"point_count"`
	DistanceM      float64 `json:"distance_m"`
	DurationSec    int64   `json:"duration_sec"`
	AveragePaceSec float64 `json:"average_pace_sec"`
	Distance       string  `json:"distance"`
	Duration       string  `json:"duration"`
	Pace           string  `json:"pace"`
}
