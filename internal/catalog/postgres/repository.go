package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MonsterTechnoGits/rainbow-stream/internal/catalog"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog db: %w", err)
	}
	return nil
}

func (r *Repository) CreateTrack(ctx context.Context, in catalog.CreateTrackInput) (catalog.Track, error) {
	query := `
INSERT INTO track (track_id, owner_id, title, artist, premium, duration_seconds)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`

	track := catalog.Track{
		TrackID:         in.TrackID,
		OwnerID:         in.OwnerID,
		Title:           in.Title,
		Artist:          in.Artist,
		Premium:         in.Premium,
		DurationSeconds: in.DurationSeconds,
	}
	if err := r.db.QueryRowContext(ctx, query,
		in.TrackID, in.OwnerID, in.Title, in.Artist, in.Premium, in.DurationSeconds,
	).Scan(&track.CreatedAt, &track.UpdatedAt); err != nil {
		return catalog.Track{}, fmt.Errorf("create track: %w", err)
	}
	return track, nil
}

func (r *Repository) GetTrack(ctx context.Context, trackID string) (catalog.Track, error) {
	query := `
SELECT track_id, owner_id, title, artist, premium, duration_seconds,
       COALESCE(audio_key, ''), COALESCE(cover_key, ''), created_at, updated_at
FROM track
WHERE track_id = $1`

	var track catalog.Track
	if err := r.db.QueryRowContext(ctx, query, trackID).Scan(
		&track.TrackID,
		&track.OwnerID,
		&track.Title,
		&track.Artist,
		&track.Premium,
		&track.DurationSeconds,
		&track.AudioKey,
		&track.CoverKey,
		&track.CreatedAt,
		&track.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Track{}, catalog.ErrNotFound
		}
		return catalog.Track{}, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

func (r *Repository) ListTracks(ctx context.Context, ownerID string) ([]catalog.Track, error) {
	query := `
SELECT track_id, owner_id, title, artist, premium, duration_seconds,
       COALESCE(audio_key, ''), COALESCE(cover_key, ''), created_at, updated_at
FROM track`
	args := []any{}
	if ownerID != "" {
		query += `
WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	query += `
ORDER BY created_at DESC, track_id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tracks := make([]catalog.Track, 0)
	for rows.Next() {
		var track catalog.Track
		if err := rows.Scan(
			&track.TrackID,
			&track.OwnerID,
			&track.Title,
			&track.Artist,
			&track.Premium,
			&track.DurationSeconds,
			&track.AudioKey,
			&track.CoverKey,
			&track.CreatedAt,
			&track.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate track rows: %w", err)
	}
	return tracks, nil
}

func (r *Repository) UpdateTrackAudioKey(ctx context.Context, trackID, audioKey string) error {
	return r.updateMediaKey(ctx, "audio_key", trackID, audioKey)
}

func (r *Repository) UpdateTrackCoverKey(ctx context.Context, trackID, coverKey string) error {
	return r.updateMediaKey(ctx, "cover_key", trackID, coverKey)
}

func (r *Repository) updateMediaKey(ctx context.Context, column, trackID, key string) error {
	query := `
UPDATE track
SET ` + column + ` = $2, updated_at = NOW()
WHERE track_id = $1`

	result, err := r.db.ExecContext(ctx, query, trackID, key)
	if err != nil {
		return fmt.Errorf("update track %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update track %s: %w", column, err)
	}
	if affected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteTrack(ctx context.Context, trackID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM track WHERE track_id = $1`, trackID)
	if err != nil {
		return false, fmt.Errorf("delete track: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete track: %w", err)
	}
	return affected > 0, nil
}
