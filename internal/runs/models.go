package runs

import (
	"time"

	"backend-runmate/internal/running"
	"backend-runmate/internal/sensor"
)

const (
	EventSnapshot = "snapshot"
	EventEnded    = "ended"
)

type StartRequest struct {
	UserID      string             `json:"user_id"`
	Permissions sensor.Permissions `json:"permissions"`
	// Cadence subscribes to the pedometer as well; it requires motion permission.
	Cadence bool `json:"cadence"`
}

type CoordinateInput struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	PaceSec    float64   `json:"pace_sec"`
	CapturedAt time.Time `json:"captured_at"`
}

func (in CoordinateInput) coordinate() running.Coordinate {
	captured := in.CapturedAt
	if captured.IsZero() {
		captured = time.Now()
	}
	return running.Coordinate{
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Pace:       time.Duration(in.PaceSec * float64(time.Second)),
		CapturedAt: captured,
	}
}

type MotionInput struct {
	Steps      int       `json:"steps"`
	CapturedAt time.Time `json:"captured_at"`
}

// View is the wire shape of a run, used both for API responses and for the
// payloads broadcast to watchers.
type View struct {
	Event     string   `json:"event,omitempty"`
	RunID     string   `json:"run_id"`
	UserID    string   `json:"user_id"`
	State     string   `json:"state"`
	Seq       int64    `json:"seq"`
	DistanceM float64  `json:"distance_m"`
	PaceSec   float64  `json:"pace_sec"`
	Duration  int64    `json:"duration_sec"`
	Cadence   float64  `json:"cadence"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	DistanceText string `json:"distance"`
	DurationText string `json:"duration"`
	PaceText     string `json:"pace"`
	CadenceText  string `json:"cadence_text"`

	Error string `json:"error,omitempty"`
}

func newView(run *Run, state running.State, snap running.Snapshot) View {
	v := View{
		RunID:        run.ID,
		UserID:       run.UserID,
		State:        state.String(),
		Seq:          snap.Seq,
		DistanceM:    snap.DistanceM,
		PaceSec:      snap.Pace.Seconds(),
		Duration:     int64(snap.Duration / time.Second),
		Cadence:      snap.Cadence,
		DistanceText: running.FormatDistance(snap.DistanceM),
		DurationText: running.FormatDuration(snap.Duration),
		PaceText:     running.FormatPace(snap.Pace),
		CadenceText:  running.FormatCadence(snap.Cadence),
	}
	if snap.Coordinate != nil {
		lat, lng := snap.Coordinate.Latitude, snap.Coordinate.Longitude
		v.Latitude = &lat
		v.Longitude = &lng
	}
	return v
}
