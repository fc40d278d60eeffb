package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog: not found")

// Track is one catalog entry. AudioKey and CoverKey hold canonical object
// store keys, never URLs; presentation URLs are generated on read.
type Track struct {
	TrackID         string
	OwnerID         string
	Title           string
	Artist          string
	Premium         bool
	DurationSeconds int
	AudioKey        string
	CoverKey        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateTrackInput struct {
	TrackID         string
	OwnerID         string
	Title           string
	Artist          string
	Premium         bool
	DurationSeconds int
}

type Repository interface {
	HealthCheck(ctx context.Context) error
	CreateTrack(ctx context.Context, in CreateTrackInput) (Track, error)
	GetTrack(ctx context.Context, trackID string) (Track, error)
	ListTracks(ctx context.Context, ownerID string) ([]Track, error)
	UpdateTrackAudioKey(ctx context.Context, trackID, audioKey string) error
	UpdateTrackCoverKey(ctx context.Context, trackID, coverKey string) error
	DeleteTrack(ctx context.Context, trackID string) (bool, error)
}
