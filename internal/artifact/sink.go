package artifact

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/storage"
)

// Sink receives a copy of every finished download and returns where it was
// written.
type Sink interface {
	Name() string
	Save(ctx context.Context, artifactID, name, contentType string, data []byte) (string, error)
}

// LocalSink writes downloads to a directory, one subdirectory per artifact.
type LocalSink struct {
	Dir string
}

func (LocalSink) Name() string { return "local" }

func (s LocalSink) Save(ctx context.Context, artifactID, name, contentType string, data []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = filepath.Join("uploads", "results")
	}
	dir = filepath.Join(dir, artifactID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// Uploader is the part of the S3 client S3Sink needs.
type Uploader interface {
	UploadFile(ctx context.Context, key string, data []byte, metadata *storage.FileMetadata) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// S3Sink uploads downloads under Prefix/artifactID/name and returns a presigned
// GET link valid for PresignTTL.
type S3Sink struct {
	Client     Uploader
	Prefix     string
	PresignTTL time.Duration
}

func (S3Sink) Name() string { return "s3" }

func (s S3Sink) Save(ctx context.Context, artifactID, name, contentType string, data []byte) (string, error) {
	key := path.Join(s.Prefix, artifactID, name)
	meta := &storage.FileMetadata{
		OriginalName: name,
		ContentType:  contentType,
		Size:         int64(len(data)),
		Metadata:     map[string]string{"artifact-id": artifactID},
	}
	if err := s.Client.UploadFile(ctx, key, data, meta); err != nil {
		return "", err
	}
	ttl := s.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	url, err := s.Client.PresignGet(ctx, key, ttl)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return url, nil
}

// Export hands a download to every sink. Failures are logged and skipped;
// the in-memory artifact stays the primary delivery.
func Export(ctx context.Context, sinks []Sink, artifactID, name, contentType string, data []byte) map[string]string {
	if len(sinks) == 0 {
		return nil
	}
	out := make(map[string]string, len(sinks))
	for _, s := range sinks {
		loc, err := s.Save(ctx, artifactID, name, contentType, data)
		if err != nil {
			log.Warn().Err(err).Str("sink", s.Name()).Str("artifact_id", artifactID).Msg("artifact export failed")
			continue
		}
		out[s.Name()] = loc
		log.Info().Str("sink", s.Name()).Str("artifact_id", artifactID).Str("location", loc).Msg("artifact exported")
	}
	return out
}

// Cleanup removes exported files under Dir older than maxAge, then any artifact
// directory left empty.
func (s LocalSink) Cleanup(maxAge time.Duration) int {
	if s.Dir == "" {
		return 0
	}
	now := time.Now()
	removed := 0
	var dirs []string
	_ = filepath.Walk(s.Dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			if p != s.Dir {
				dirs = append(dirs, p)
			}
			return nil
		}
		if now.Sub(info.ModTime()) >= maxAge {
			if os.Remove(p) == nil {
				removed++
			}
		}
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
	return removed
}
