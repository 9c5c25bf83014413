package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/local/pdfdesk/internal/imagerender"
)

// Pinger models the minimal capability we need from Redis and S3.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PageCounter is the PDF parser used for assembly.
type PageCounter interface {
	PageCount(data []byte) (int, error)
}

// Checker aggregates health checks for the service's dependencies.
type Checker struct {
	redis   Pinger
	bucket  Pinger
	opener  imagerender.Opener
	counter PageCounter
	probe   []byte
}

// Options configures the Checker. Nil dependencies are reported as not
// configured. Probe is a known-good PDF used to exercise the parser and the
// rasterizer.
type Options struct {
	Redis   Pinger
	Bucket  Pinger
	Opener  imagerender.Opener
	Counter PageCounter
	Probe   []byte
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis      Status `json:"redis"`
	S3         Status `json:"s3"`
	Parser     Status `json:"parser"`
	Rasterizer Status `json:"rasterizer"`
}

// Healthy reports whether the subsystems needed for every workflow work.
// Redis and S3 are optional.
func (s Summary) Healthy() bool { return s.Parser.OK && s.Rasterizer.OK }

func New(opts Options) *Checker {
	return &Checker{
		redis:   opts.Redis,
		bucket:  opts.Bucket,
		opener:  opts.Opener,
		counter: opts.Counter,
		probe:   opts.Probe,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:      c.ping(ctx, c.redis, "Using in-memory status store"),
		S3:         c.ping(ctx, c.bucket, "Export bucket not configured"),
		Parser:     c.checkParser(),
		Rasterizer: c.checkRasterizer(),
	}
}

func (c *Checker) ping(ctx context.Context, p Pinger, missing string) Status {
	if p == nil {
		return Status{OK: false, Message: missing}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkParser() Status {
	if c.counter == nil || len(c.probe) == 0 {
		return Status{OK: false, Message: "Parser not configured"}
	}
	n, err := c.counter.PageCount(c.probe)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: fmt.Sprintf("Available (%d page probe)", n)}
}

func (c *Checker) checkRasterizer() Status {
	if c.opener == nil || len(c.probe) == 0 {
		return Status{OK: false, Message: "Rasterizer not configured"}
	}
	doc, err := c.opener.Open(c.probe)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	defer doc.Close()
	if _, err := doc.ImageDPI(0, 10); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Available"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
