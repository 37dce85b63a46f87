package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"backend-runmate/internal/db"

	"github.com/google/uuid"
)

const (
	KindSelfie = "selfie"
	KindAvatar = "avatar"

	slotTTL = 15 * time.Minute
)

var ErrInvalidKind = errors.New("kind must be selfie or avatar")

// Slot is a reserved object location the app uploads a photo to.
type Slot struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	db      db.Querier
	baseURL string
	now     func() time.Time
}

func NewService(db db.Querier, baseURL string) *Service {
	return &Service{db: db, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (s *Service) SaveObject(ctx context.Context, userID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

// NewSlot reserves an upload location for a photo under the user's prefix.
func (s *Service) NewSlot(ctx context.Context, userID, kind, fileName string) (Slot, error) {
	if kind != KindSelfie && kind != KindAvatar {
		return Slot{}, ErrInvalidKind
	}
	name := path.Base(fileName)
	if name == "." || name == "/" || name == "" {
		name = "upload.jpg"
	}
	url := s.baseURL + "/" + path.Join(kind+"s", userID, uuid.NewString()+"-"+name)

	id, err := s.SaveObject(ctx, userID, url, kind)
	if err != nil {
		return Slot{}, err
	}
	return Slot{ID: id, URL: url, Kind: kind, ExpiresAt: s.now().Add(slotTTL)}, nil
}
