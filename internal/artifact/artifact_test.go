package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfdesk/internal/storage"
)

func TestTakeIsOneShot(t *testing.T) {
	s := NewStore(time.Minute)
	a := s.Put("merged.pdf", "application/pdf", []byte("pdf"))
	assert.Nil(t, a.Data)
	assert.Equal(t, 3, a.Size)

	got, err := s.Take(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "merged.pdf", got.Name)
	assert.Equal(t, "pdf", string(got.Data))

	_, err = s.Take(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestExpiry(t *testing.T) {
	s := NewStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	old := s.Put("a.zip", "application/zip", []byte("a"))
	now = now.Add(30 * time.Second)
	fresh := s.Put("b.zip", "application/zip", []byte("b"))
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, s.Sweep())
	_, err := s.Take(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	now = now.Add(time.Minute)
	_, err = s.Take(fresh.ID)
	assert.ErrorIs(t, err, ErrNotFound, "expired artifacts are not handed out even before a sweep")
}

func TestLocalSink(t *testing.T) {
	dir := t.TempDir()
	sink := LocalSink{Dir: dir}

	p, err := sink.Save(context.Background(), "a1", "../merged.pdf", "application/pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a1", "merged.pdf"), p)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(b))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(p, old, old))
	assert.Equal(t, 1, sink.Cleanup(time.Hour))
	_, err = os.Stat(filepath.Join(dir, "a1"))
	assert.True(t, os.IsNotExist(err))
}

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) UploadFile(ctx context.Context, key string, data []byte, metadata *storage.FileMetadata) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeUploader) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://bucket.example/" + key + "?sig", nil
}

func TestExportToSinks(t *testing.T) {
	up := &fakeUploader{}
	failing := S3Sink{Client: &fakeUploader{err: errors.New("denied")}}
	sinks := []Sink{S3Sink{Client: up, Prefix: "exports"}, failing}

	locs := Export(context.Background(), sinks, "a1", "scan_split.zip", "application/zip", []byte("zip"))
	assert.Equal(t, []string{"exports/a1/scan_split.zip"}, up.keys)
	assert.Equal(t, map[string]string{"s3": "https://bucket.example/exports/a1/scan_split.zip?sig"}, locs)
	assert.Nil(t, Export(context.Background(), nil, "a1", "x", "y", nil))
}
