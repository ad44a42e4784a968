package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	maestrohttp "github.com/voxmedia/maestro-go/internal/http"
	"github.com/voxmedia/maestro-go/internal/progress"
)

// ErrNoData is returned by NewReader when the table has no export files.
var ErrNoData = errors.New("export: no export sources")

// DecodeError reports corrupt compressed content in one of the export
// sources. It surfaces lazily, at the point the corrupt data is
// decompressed.
type DecodeError struct {
	Source int // index into the source list
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("export: decode source %d: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Opener opens a source URL for streaming.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, url string) (io.ReadCloser, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	return f(ctx, url)
}

// Options configures a Reader.
type Options struct {
	// ChunkSize is the network read buffer per source.
	// Default: 64KB
	ChunkSize int

	// LineBufferSize is the decompressed line buffer per source.
	// Default: 4096
	LineBufferSize int

	// Opener fetches source URLs. Default: the internal transfer client.
	Opener Opener

	// Logger receives the throughput summary on exhaustion.
	// Default: the logrus standard logger.
	Logger *logrus.Logger
}

// Option is a functional option for configuring a Reader.
type Option func(*Options)

// WithChunkSize sets the network read buffer per source.
func WithChunkSize(size int) Option {
	return func(o *Options) {
		o.ChunkSize = size
	}
}

// WithLineBufferSize sets the decompressed line buffer per source.
func WithLineBufferSize(size int) Option {
	return func(o *Options) {
		o.LineBufferSize = size
	}
}

// WithOpener sets the source fetcher.
func WithOpener(opener Opener) Option {
	return func(o *Options) {
		o.Opener = opener
	}
}

// WithLogger sets the logger for the throughput summary.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Reader presents an ordered list of gzip-compressed sources as a
// single logical line stream. It is single-pass and forward-only: there
// is no rewinding, and it must not be shared between goroutines.
type Reader struct {
	ctx    context.Context
	urls   []string
	opener Opener
	log    *logrus.Logger

	chunkSize   int
	lineBufSize int

	next  int     // index of the next source to open
	cur   *source // active decompressing sub-reader, nil between sources
	buf   []byte  // pending bytes for Read
	done  bool
	meter *progress.Meter
}

// source is one open export file: the network body, the decompressor
// over it, and the line buffer over that.
type source struct {
	body  io.ReadCloser
	gz    *gzip.Reader
	lines *bufio.Reader
}

func (s *source) close() error {
	gzErr := s.gz.Close()
	if err := s.body.Close(); err != nil {
		return err
	}
	return gzErr
}

// NewReader creates a Reader over urls. It fails with ErrNoData when
// urls is empty; everything else is lazy, so the first network request
// happens on the first read. The context bounds all fetches for the
// life of the stream.
func NewReader(ctx context.Context, urls []string, options ...Option) (*Reader, error) {
	if len(urls) == 0 {
		return nil, ErrNoData
	}

	opts := Options{
		ChunkSize:      64 * 1024,
		LineBufferSize: 4096,
	}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Opener == nil {
		client := maestrohttp.NewClient(maestrohttp.DefaultOptions())
		opts.Opener = OpenerFunc(client.Get)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	meter := progress.NewMeter()
	meter.AddRows(-1) // the first source's header is yielded but is not a row

	return &Reader{
		ctx:         ctx,
		urls:        urls,
		opener:      opts.Opener,
		log:         opts.Logger,
		chunkSize:   opts.ChunkSize,
		lineBufSize: opts.LineBufferSize,
		meter:       meter,
	}, nil
}

// ReadLine returns the next line of the export, terminator included
// when present. Lines cross source boundaries transparently; every
// source after the first has its first line discarded as a repeated
// header, whether or not it actually is one. At the end of the last
// source, ReadLine returns io.EOF and keeps returning it on further
// calls.
func (r *Reader) ReadLine() ([]byte, error) {
	if r.done {
		return nil, io.EOF
	}

	for {
		if r.cur == nil {
			if r.next >= len(r.urls) {
				r.finish()
				return nil, io.EOF
			}
			if err := r.advance(); err != nil {
				return nil, err
			}
		}

		line, err := r.cur.lines.ReadBytes('\n')
		if len(line) > 0 {
			r.meter.AddRows(1)
			r.meter.AddBytes(int64(len(line)))
			return line, nil
		}
		if err != nil && err != io.EOF {
			return nil, &DecodeError{Source: r.next - 1, Err: err}
		}

		// Sub-stream exhausted, move to the next source.
		if err := r.cur.close(); err != nil {
			return nil, fmt.Errorf("export: close source %d: %w", r.next-1, err)
		}
		r.cur = nil
	}
}

// advance opens the source at r.next, discarding the header line on
// every source after the first.
func (r *Reader) advance() error {
	idx := r.next

	body, err := r.opener.Open(r.ctx, r.urls[idx])
	if err != nil {
		return fmt.Errorf("export: open source %d: %w", idx, err)
	}

	gz, err := gzip.NewReader(bufio.NewReaderSize(body, r.chunkSize))
	if err != nil {
		body.Close()
		return &DecodeError{Source: idx, Err: err}
	}

	r.cur = &source{
		body:  body,
		gz:    gz,
		lines: bufio.NewReaderSize(gz, r.lineBufSize),
	}
	r.next++

	if idx > 0 {
		// Repeated CSV header, discard it. This is unconditional: a
		// later source without a header loses its first data line.
		if _, err := r.cur.lines.ReadBytes('\n'); err != nil && err != io.EOF {
			return &DecodeError{Source: idx, Err: err}
		}
	}

	return nil
}

// finish marks the stream exhausted and logs the throughput summary.
func (r *Reader) finish() {
	r.done = true

	s := r.meter.Summary()
	r.log.WithFields(logrus.Fields{
		"rows":          s.Rows,
		"bytes":         s.Bytes,
		"elapsed":       s.Elapsed,
		"rows_per_sec":  fmt.Sprintf("%.1f", s.RowsPerSec),
		"bytes_per_sec": progress.FormatBytes(int64(s.BytesPerSec)),
	}).Info("export stream complete")
}

// Read implements io.Reader on top of ReadLine. It serves bytes from
// the pending buffer and refills it one line at a time, so a single
// call never returns more than one line's worth of data and never
// reads ahead of the current line.
func (r *Reader) Read(p []byte) (n int, err error) {
	if len(r.buf) == 0 {
		line, err := r.ReadLine()
		if err != nil {
			return 0, err
		}
		r.buf = line
	}

	n = copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// Close releases the active source, if any. Reading an exhausted
// stream to io.EOF releases everything already; Close is for
// abandoning a stream early.
func (r *Reader) Close() error {
	if r.cur == nil {
		return nil
	}
	err := r.cur.close()
	r.cur = nil
	r.done = true
	return err
}

// Rows returns the cumulative row count: yielded lines minus the
// header. Final once ReadLine has returned io.EOF; undefined after a
// failed stream.
func (r *Reader) Rows() int64 {
	return r.meter.Rows()
}

// Bytes returns the cumulative byte count of yielded lines. Final once
// ReadLine has returned io.EOF; undefined after a failed stream.
func (r *Reader) Bytes() int64 {
	return r.meter.Bytes()
}
