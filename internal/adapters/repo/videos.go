package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"adzopay/internal/domain"
	"adzopay/internal/infra/metrics"
)

// ListVideos возвращает каталог роликов, новые первыми.
func (p *Postgres) ListVideos(ctx context.Context) ([]domain.Video, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, filename, storage_path, title, description, duration_ms, thumbnail_url, size, mime, created_at
FROM videos
ORDER BY created_at DESC, id DESC
`)
	metrics.ObserveNetworkRequest("postgres", "videos_list", "videos", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Video
	for rows.Next() {
		var (
			v                                        domain.Video
			userID, title, description, thumb, mime sql.NullString
			durationMS                               int64
		)
		if err := rows.Scan(&v.ID, &userID, &v.Filename, &v.StoragePath, &title, &description, &durationMS, &thumb, &v.Size, &mime, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.UserID = userID.String
		v.Title = title.String
		v.Description = description.String
		v.ThumbnailURL = thumb.String
		v.Mime = mime.String
		v.Duration = videoDuration(durationMS)
		out = append(out, v)
	}
	return out, rows.Err()
}

// RegisterVideo добавляет ролик или обновляет метаданные по storage_path.
func (p *Postgres) RegisterVideo(ctx context.Context, params domain.RegisterVideoParams) (domain.Video, error) {
	path := strings.TrimSpace(params.StoragePath)
	if path == "" {
		return domain.Video{}, fmt.Errorf("storage path is required")
	}
	filename := strings.TrimSpace(params.Filename)
	if filename == "" {
		filename = path[strings.LastIndex(path, "/")+1:]
	}

	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	v := domain.Video{StoragePath: path}
	var (
		userID, title, description, mime sql.NullString
		durationMS                        int64
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO videos (user_id, filename, storage_path, title, description, duration_ms, size, mime)
VALUES (NULLIF($1,''), $2, $3, NULLIF($4,''), NULLIF($5,''), $6, $7, NULLIF($8,''))
ON CONFLICT (storage_path) DO UPDATE SET
    filename = EXCLUDED.filename,
    title = COALESCE(EXCLUDED.title, videos.title),
    description = COALESCE(EXCLUDED.description, videos.description),
    duration_ms = CASE WHEN EXCLUDED.duration_ms > 0 THEN EXCLUDED.duration_ms ELSE videos.duration_ms END,
    size = EXCLUDED.size,
    mime = COALESCE(EXCLUDED.mime, videos.mime)
RETURNING id, user_id, filename, title, description, duration_ms, size, mime, created_at
`, params.UserID, filename, path, params.Title, params.Description, params.Duration.Milliseconds(), params.Size, params.Mime).
		Scan(&v.ID, &userID, &v.Filename, &title, &description, &durationMS, &v.Size, &mime, &v.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "videos_register", "videos", start, err)
	if err != nil {
		return domain.Video{}, err
	}
	v.UserID = userID.String
	v.Title = title.String
	v.Description = description.String
	v.Mime = mime.String
	v.Duration = videoDuration(durationMS)
	return v, nil
}

func videoDuration(ms int64) time.Duration {
	if ms <= 0 {
		return domain.DefaultVideoDuration
	}
	return time.Duration(ms) * time.Millisecond
}
