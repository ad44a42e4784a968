package maestro

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"

	"github.com/voxmedia/maestro-go/internal/progress"
)

// fetchChunkSize is the copy buffer for plain file transfers.
const fetchChunkSize = 8 * 1024

// Fetch downloads the table's export files into bucket, keyed by the
// file name from each signed URL. Returns the written keys; the keys
// are also recorded on the handle so Close can clean them up. Fails
// with ErrNoExtract when the table has no export configured.
func (t *Table) Fetch(ctx context.Context, bucket *blob.Bucket) ([]string, error) {
	if !t.status.Extract {
		return nil, ErrNoExtract
	}

	t.bucket = bucket
	keys := make([]string, 0, len(t.status.Extracts.URLs))
	for _, u := range t.status.Extracts.URLs {
		key, err := t.fetchFile(ctx, bucket, u)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
		t.files = append(t.files, key)
	}
	return keys, nil
}

// fetchFile copies one signed URL into the bucket in fixed-size
// chunks, timing the whole transfer.
func (t *Table) fetchFile(ctx context.Context, bucket *blob.Bucket, rawurl string) (string, error) {
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return "", fmt.Errorf("maestro: parse export url: %w", err)
	}
	key := path.Base(parsed.Path)

	t.log.WithField("file", key).Info("fetching export file")

	body, err := t.transfer.Get(ctx, rawurl)
	if err != nil {
		return "", fmt.Errorf("maestro: fetch %s: %w", key, err)
	}
	defer body.Close()

	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return "", fmt.Errorf("maestro: create %s: %w", key, err)
	}

	meter := progress.NewMeter()
	n, err := io.CopyBuffer(w, body, make([]byte, fetchChunkSize))
	if err != nil {
		w.Close()
		return "", fmt.Errorf("maestro: copy %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("maestro: write %s: %w", key, err)
	}
	meter.AddBytes(n)

	t.log.WithField("file", key).Info(meter.Summary().BytesString())
	return key, nil
}

// Upload pushes external table data from bucket/key to the table's
// signed upload URL, then requests a load job and blocks until the
// load completes, exactly like an internal-table wait. Supported
// content is line-oriented: CSV or newline-delimited JSON. A load
// failure reported by the server surfaces as a *RemoteError.
func (t *Table) Upload(ctx context.Context, bucket *blob.Bucket, key string) error {
	if !t.External() {
		return ErrNotExternal
	}
	if t.status.UploadURL == "" {
		return ErrNoUploadURL
	}

	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		return fmt.Errorf("maestro: stat %s: %w", key, err)
	}
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("maestro: open %s: %w", key, err)
	}
	defer r.Close()

	// The load is requested by file name: the upload URL's base name
	// with the signature query stripped.
	dest := strings.SplitN(t.status.UploadURL, "?", 2)[0]
	filename := dest[strings.LastIndex(dest, "/")+1:]

	t.log.WithFields(logrus.Fields{
		"file": key,
		"dest": dest,
	}).Info("uploading external table data")

	meter := progress.NewMeter()
	if err := t.transfer.Put(ctx, t.status.UploadURL, r, attrs.Size); err != nil {
		return fmt.Errorf("maestro: upload %s: %w", key, err)
	}
	meter.AddBytes(attrs.Size)
	t.log.WithField("file", key).Info(meter.Summary().BytesString())

	return t.loadExternal(ctx, filename)
}

// loadExternal requests a load job for filename and waits for it to
// complete by observing the last successful run timestamp.
func (t *Table) loadExternal(ctx context.Context, filename string) error {
	t.log.WithField("table", t.Name()).Info("starting load job")

	if err := t.api.RequestLoad(ctx, t.id, filename); err != nil {
		return err
	}
	if err := t.waitInternal(ctx); err != nil {
		return err
	}
	if err := t.refresh(ctx); err != nil {
		return err
	}
	if t.status.Error != "" {
		return &RemoteError{Table: t.Name(), Message: t.status.Error}
	}

	t.log.WithField("table", t.Name()).Info("load job finished")
	return nil
}
