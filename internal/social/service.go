package social

import (
	"context"
	"errors"
	"sort"

	"backend-runmate/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrSelfFriend      = errors.New("cannot befriend yourself")
	ErrInvalidReaction = errors.New("unknown reaction")
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) CreateSelfie(ctx context.Context, input Selfie) (Selfie, error) {
	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO selfies (id, user_id, run_id, caption, photo_url, location)
		VALUES ($1,$2, NULLIF($3,'')::uuid, $4,$5, ST_SetSRID(ST_MakePoint($6,$7), 4326)::geography)
		RETURNING created_at
	`, input.ID, input.UserID, input.RunID, input.Caption, input.PhotoURL, input.Lng, input.Lat)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Selfie{}, err
	}
	return input, nil
}

// AddFriend links both users; adding an existing friend is a no-op.
func (s *Service) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return ErrSelfFriend
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1,$2), ($2,$1)
		ON CONFLICT DO NOTHING
	`, userID, friendID)
	return err
}

func (s *Service) RemoveFriend(ctx context.Context, userID, friendID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM friendships
		WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)
	`, userID, friendID)
	return err
}

func (s *Service) Friends(ctx context.Context, userID string) ([]Friend, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, friend_id, created_at
		FROM friendships WHERE user_id=$1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := []Friend{}
	for rows.Next() {
		var f Friend
		if err := rows.Scan(&f.UserID, &f.FriendID, &f.CreatedAt); err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// React sets the user's reaction on a selfie, replacing any earlier one.
func (s *Service) React(ctx context.Context, selfieID, userID, kind string) (Reaction, error) {
	if !ValidReaction(kind) {
		return Reaction{}, ErrInvalidReaction
	}
	r := Reaction{SelfieID: selfieID, UserID: userID, Kind: kind}
	row := s.db.QueryRow(ctx, `
		INSERT INTO selfie_reactions (selfie_id, user_id, kind)
		VALUES ($1,$2,$3)
		ON CONFLICT (selfie_id, user_id) DO UPDATE SET kind = EXCLUDED.kind, created_at = now()
		RETURNING created_at
	`, selfieID, userID, kind)
	if err := row.Scan(&r.CreatedAt); err != nil {
		return Reaction{}, err
	}
	return r, nil
}

func (s *Service) Unreact(ctx context.Context, selfieID, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM selfie_reactions WHERE selfie_id=$1 AND user_id=$2`, selfieID, userID)
	return err
}

// Feed lists the user's own selfies and those of their friends, newest first.
func (s *Service) Feed(ctx context.Context, userID string, limit int) ([]Selfie, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, COALESCE(run_id::text,''), caption, photo_url,
		       ST_Y(location::geometry), ST_X(location::geometry), created_at
		FROM selfies
		WHERE user_id=$1
		   OR user_id IN (SELECT friend_id FROM friendships WHERE user_id=$1)
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	selfies, err := scanSelfies(rows)
	if err != nil {
		return nil, err
	}
	return s.withReactions(ctx, selfies)
}

func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]Selfie, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, COALESCE(run_id::text,''), caption, photo_url,
		       ST_Y(location::geometry), ST_X(location::geometry), created_at
		FROM selfies
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
		ORDER BY created_at DESC
	`, lng, lat, radiusKm*1000)
	if err != nil {
		return nil, err
	}
	selfies, err := scanSelfies(rows)
	if err != nil {
		return nil, err
	}
	selfies, err = s.withReactions(ctx, selfies)
	if err != nil {
		return nil, err
	}
	return sortSelfies(selfies), nil
}

func scanSelfies(rows pgx.Rows) ([]Selfie, error) {
	defer rows.Close()
	selfies := []Selfie{}
	for rows.Next() {
		var sf Selfie
		if err := rows.Scan(&sf.ID, &sf.UserID, &sf.RunID, &sf.Caption, &sf.PhotoURL, &sf.Lat, &sf.Lng, &sf.CreatedAt); err != nil {
			return nil, err
		}
		selfies = append(selfies, sf)
	}
	return selfies, rows.Err()
}

func (s *Service) withReactions(ctx context.Context, selfies []Selfie) ([]Selfie, error) {
	if len(selfies) == 0 {
		return selfies, nil
	}
	ids := make([]string, len(selfies))
	for i, sf := range selfies {
		ids[i] = sf.ID
	}
	rows, err := s.db.Query(ctx, `
		SELECT selfie_id, kind, COUNT(*)
		FROM selfie_reactions WHERE selfie_id = ANY($1)
		GROUP BY selfie_id, kind
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]map[string]int{}
	for rows.Next() {
		var selfieID, kind string
		var n int
		if err := rows.Scan(&selfieID, &kind, &n); err != nil {
			return nil, err
		}
		if counts[selfieID] == nil {
			counts[selfieID] = map[string]int{}
		}
		counts[selfieID][kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range selfies {
		selfies[i].Reactions = counts[selfies[i].ID]
	}
	return selfies, nil
}

func sortSelfies(selfies []Selfie) []Selfie {
	sort.Slice(selfies, func(i, j int) bool {
		return selfies[i].CreatedAt.After(selfies[j].CreatedAt)
	})
	return selfies
}
