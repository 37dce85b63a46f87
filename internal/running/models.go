package running

import "time"

// State is the lifecycle state of a running session.
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Coordinate is one location fix. Pace is the instantaneous pace reported by
// the device, as time per kilometer; zero when unknown.
type Coordinate struct {
	Latitude   float64       `json:"latitude"`
	Longitude  float64       `json:"longitude"`
	Pace       time.Duration `json:"pace"`
	CapturedAt time.Time     `json:"captured_at"`
}

// MotionSample carries the pedometer's cumulative step count.
type MotionSample struct {
	Steps      int       `json:"steps"`
	CapturedAt time.Time `json:"captured_at"`
}

// Snapshot is a point-in-time aggregate of a session. Fix is set only when the
// snapshot was produced by a new coordinate; tick re-emissions repeat the last
// Coordinate with Fix false.
type Snapshot struct {
	Seq        int64         `json:"seq"`
	Fix        bool          `json:"fix"`
	DistanceM  float64       `json:"distance_m"`
	Pace       time.Duration `json:"pace"`
	Duration   time.Duration `json:"duration"`
	Cadence    float64       `json:"cadence"`
	Coordinate *Coordinate   `json:"coordinate,omitempty"`
}
