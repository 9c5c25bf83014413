package logger

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	mu      sync.Mutex
	dataset string
	events  []axiom.Event
	calls   int
}

func (f *fakeIngester) IngestEvents(ctx context.Context, id string, events []axiom.Event, options ...ingest.Option) (*ingest.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataset = id
	f.events = append(f.events, events...)
	f.calls++
	return &ingest.Status{}, nil
}

func (f *fakeIngester) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		msg, _ := ev["message"].(string)
		out = append(out, msg)
	}
	return out
}

func TestShipperFlushesOnClose(t *testing.T) {
	fake := &fakeIngester{}
	s := newAxiomShipper(fake, "test_pdfdesk", time.Hour)
	l := zerolog.New(&zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: s},
		Level:  zerolog.InfoLevel,
	}).Level(zerolog.DebugLevel).With().Str("service", "pdfdesk").Logger()

	l.Debug().Msg("noise")
	l.Info().Str("job_id", "j1").Msg("job done")
	l.Error().Msg("job failed")
	s.Close()
	s.Close()

	assert.Equal(t, []string{"job done", "job failed"}, fake.messages())
	assert.Equal(t, "test_pdfdesk", fake.dataset)
	assert.Equal(t, "j1", fake.events[0]["job_id"])
	assert.Equal(t, "pdfdesk", fake.events[0]["service"])
	assert.Contains(t, fake.events[0], ingest.TimestampField)
	assert.Zero(t, s.Dropped())
}

func TestShipperFlushesOnTick(t *testing.T) {
	fake := &fakeIngester{}
	s := newAxiomShipper(fake, "d", 10*time.Millisecond)
	defer s.Close()

	_, err := s.Write([]byte(`{"level":"info","message":"tick"}`))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(fake.messages()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestShipperKeepsRawLines(t *testing.T) {
	fake := &fakeIngester{}
	s := newAxiomShipper(fake, "d", time.Hour)
	_, err := s.Write([]byte("not json"))
	require.NoError(t, err)
	s.Close()
	assert.Equal(t, []string{"not json"}, fake.messages())
}

func TestDatasetDefault(t *testing.T) {
	assert.Equal(t, "dev_pdfdesk", datasetName(""))
	assert.Equal(t, "prod_pdfdesk", datasetName("prod_pdfdesk"))
}

func TestPrettyConsoleOmitsService(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "debug", Pretty: true, Console: &buf}))
	defer Close()
	Get().Debug().Msg("pretty line")
	assert.Contains(t, buf.String(), "pretty line")
	assert.NotContains(t, buf.String(), "service=")
}
