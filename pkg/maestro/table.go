package maestro

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	maestrohttp "github.com/voxmedia/maestro-go/internal/http"
	"github.com/voxmedia/maestro-go/pkg/backoff"
	"github.com/voxmedia/maestro-go/pkg/export"
)

// TableOptions configures a Table handle.
type TableOptions struct {
	// MaxSleep is the poll interval ceiling in seconds. Default: 60
	MaxSleep float64

	// Cleanup deletes fetched export files on Close.
	Cleanup bool

	// Logger for the handle's operations.
	// Default: the logrus standard logger.
	Logger *logrus.Logger

	// Transfer configures the bulk transfer client used by Fetch and
	// Upload.
	Transfer maestrohttp.Options
}

// TableOption is a functional option for configuring a Table.
type TableOption func(*TableOptions)

// WithMaxSleep sets the poll interval ceiling in seconds.
func WithMaxSleep(seconds float64) TableOption {
	return func(o *TableOptions) {
		o.MaxSleep = seconds
	}
}

// WithCleanup makes Close delete the export files fetched through this
// handle.
func WithCleanup(cleanup bool) TableOption {
	return func(o *TableOptions) {
		o.Cleanup = cleanup
	}
}

// WithLogger sets the handle's logger.
func WithLogger(logger *logrus.Logger) TableOption {
	return func(o *TableOptions) {
		o.Logger = logger
	}
}

// WithTransferOptions configures the bulk transfer client.
func WithTransferOptions(opts maestrohttp.Options) TableOption {
	return func(o *TableOptions) {
		o.Transfer = opts
	}
}

// StatusProvider is the server-side collaborator a Table polls. It is
// implemented by Client; tests substitute fakes.
type StatusProvider interface {
	FullStatus(ctx context.Context, id int64) (*Status, error)
	ShortStatus(ctx context.Context, id int64) (*ShortStatus, error)
	BQInfo(ctx context.Context, id int64) (*BQInfo, error)
	RequestLoad(ctx context.Context, id int64, filename string) error
}

// Table is a handle on one Maestro table. It caches the table's status
// snapshot, refreshed by Wait and the transfer operations. A handle is
// driven by one caller at a time; concurrent use is not supported.
type Table struct {
	api      StatusProvider
	id       int64
	log      *logrus.Logger
	maxSleep float64
	cleanup  bool
	transfer *maestrohttp.Client

	status *Status
	bqInfo *BQInfo

	// fetched export files, for Close
	bucket *blob.Bucket
	files  []string

	// replaceable for tests
	sleep       func(ctx context.Context, d time.Duration) error
	newSchedule func() *backoff.Schedule
}

// Table creates a handle on the table with the given id, eagerly
// fetching its status.
func (c *Client) Table(ctx context.Context, id int64, options ...TableOption) (*Table, error) {
	opts := TableOptions{
		MaxSleep: backoff.DefaultCeiling,
		Logger:   c.log,
		Transfer: maestrohttp.DefaultOptions(),
	}
	for _, opt := range options {
		opt(&opts)
	}

	t := &Table{
		api:      c,
		id:       id,
		log:      opts.Logger,
		maxSleep: opts.MaxSleep,
		cleanup:  opts.Cleanup,
		transfer: maestrohttp.NewClient(opts.Transfer),
		sleep:    ctxSleep,
	}
	t.newSchedule = func() *backoff.Schedule {
		return backoff.New(backoff.WithCeiling(t.maxSleep))
	}

	if err := t.refresh(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// TableByName creates a handle on the table named dataset.table.
func (c *Client) TableByName(ctx context.Context, name string, options ...TableOption) (*Table, error) {
	id, err := c.TableID(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.Table(ctx, id, options...)
}

// refresh replaces the cached snapshot with a fresh full status.
func (t *Table) refresh(ctx context.Context) error {
	status, err := t.api.FullStatus(ctx, t.id)
	if err != nil {
		return err
	}
	t.status = status
	return nil
}

// ID returns the table's id.
func (t *Table) ID() int64 { return t.id }

// Name returns the table's name.
func (t *Table) Name() string { return t.status.Name }

// Dataset returns the table's dataset.
func (t *Table) Dataset() string { return t.status.Dataset }

// External reports the table's classification; immutable for the life
// of the handle.
func (t *Table) External() bool { return t.status.External() }

// Status returns the cached status snapshot. It reflects the last
// refresh, not necessarily the current server state.
func (t *Table) Status() Status { return *t.status }

// Files returns the bucket keys of export files fetched through this
// handle.
func (t *Table) Files() []string { return t.files }

// Reader streams the table's export files as one logical line
// sequence. Returns export.ErrNoData when the table has no export
// files.
func (t *Table) Reader(ctx context.Context, options ...export.Option) (*export.Reader, error) {
	options = append([]export.Option{export.WithLogger(t.log)}, options...)
	return export.NewReader(ctx, t.status.Extracts.URLs, options...)
}

// Close releases the handle. When the handle was created with
// WithCleanup, it deletes the export files fetched through it; deletes
// of already-missing files are ignored. Run it on every exit path,
// typically via defer.
func (t *Table) Close(ctx context.Context) error {
	if !t.cleanup || t.bucket == nil {
		return nil
	}
	for _, key := range t.files {
		t.log.WithField("file", key).Info("cleanup: deleting fetched file")
		if err := t.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
			return fmt.Errorf("maestro: delete %s: %w", key, err)
		}
	}
	t.files = nil
	return nil
}

// ctxSleep blocks for d or until the context is cancelled.
func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
