package tracking

import (
	"context"
	"time"

	"backend-runmate/internal/db"
	"backend-runmate/internal/running"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) StartSession(ctx context.Context, userID string) (Session, error) {
	session := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: time.Now(),
		Status:    StatusActive,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO run_sessions (id, user_id, started_at, status)
		VALUES ($1,$2,$3,$4)
		RETURNING started_at, status
	`, session.ID, session.UserID, session.StartedAt, session.Status)
	if err := row.Scan(&session.StartedAt, &session.Status); err != nil {
		return Session{}, err
	}
	return session, nil
}

// RecordSnapshot stores a snapshot as a track point and rolls the session
// totals forward. Snapshots without a new fix, such as tick re-emissions,
// only update the totals.
func (s *Service) RecordSnapshot(ctx context.Context, sessionID string, snap running.Snapshot) (Point, error) {
	point := Point{
		SessionID:   sessionID,
		Seq:         snap.Seq,
		DistanceM:   snap.DistanceM,
		PaceSec:     snap.Pace.Seconds(),
		DurationSec: int64(snap.Duration / time.Second),
		Cadence:     snap.Cadence,
		RecordedAt:  time.Now(),
	}

	if snap.Fix && snap.Coordinate != nil {
		point.Lat = snap.Coordinate.Latitude
		point.Lng = snap.Coordinate.Longitude
		if !snap.Coordinate.CapturedAt.IsZero() {
			point.RecordedAt = snap.Coordinate.CapturedAt
		}

		row := s.db.QueryRow(ctx, `
			INSERT INTO run_points (session_id, seq, location, distance_m, pace_sec, duration_sec, cadence, recorded_at)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3,$4), 4326)::geography, $5, $6, $7, $8, $9)
			RETURNING id
		`, sessionID, point.Seq, point.Lng, point.Lat, point.DistanceM, point.PaceSec, point.DurationSec, point.Cadence, point.RecordedAt)
		if err := row.Scan(&point.ID); err != nil {
			return Point{}, err
		}
	}

	if _, err := s.db.Exec(ctx, `
		UPDATE run_sessions
		SET total_distance_m = $2, duration_sec = $3
		WHERE id=$1
	`, sessionID, point.DistanceM, point.DurationSec); err != nil {
		return Point{}, err
	}
	return point, nil
}

func (s *Service) Finish(ctx context.Context, sessionID, status string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE run_sessions SET ended_at=$2, status=$3 WHERE id=$1
	`, sessionID, time.Now(), status)
	return err
}

func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	var session Session
	row := s.db.QueryRow(ctx, `
		SELECT id, started_at, COALESCE(total_distance_m,0), COALESCE(duration_sec,0), status
		FROM run_sessions WHERE id=$1
	`, sessionID)
	if err := row.Scan(&session.ID, &session.StartedAt, &session.TotalDistanceM, &session.DurationSec, &session.Status); err != nil {
		return Summary{}, err
	}

	var pointCount int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM run_points WHERE session_id=$1`, sessionID).Scan(&pointCount); err != nil {
		return Summary{}, err
	}

	duration := time.Duration(session.DurationSec) * time.Second
	var pace time.Duration
	avgPace := 0.0
	if session.TotalDistanceM > 0 {
		pace = time.Duration(float64(duration) * 1000 / session.TotalDistanceM)
		avgPace = pace.Seconds()
	}

	return Summary{
		SessionID:      session.ID,
		Status:         session.Status,
		PointCount:     pointCount,
		DistanceM:      session.TotalDistanceM,
		DurationSec:    session.DurationSec,
		AveragePaceSec: avgPace,
		Distance:       running.FormatDistance(session.TotalDistanceM),
		Duration:       running.FormatDuration(duration),
		Pace:           running.FormatPace(pace),
	}, nil
}

func (s *Service) Points(ctx context.Context, sessionID string) ([]Point, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, seq, ST_Y(location::geometry), ST_X(location::geometry), distance_m, pace_sec, duration_sec, cadence, recorded_at
		FROM run_points WHERE session_id=$1
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Seq, &p.Lat, &p.Lng, &p.DistanceM, &p.PaceSec, &p.DurationSec, &p.Cadence, &p.RecordedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]Session, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, started_at, COALESCE(ended_at, started_at), COALESCE(total_distance_m,0), COALESCE(duration_sec,0), status
		FROM run_sessions WHERE user_id=$1
		ORDER BY started_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.UserID, &session.StartedAt, &session.EndedAt, &session.TotalDistanceM, &session.DurationSec, &session.Status); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
