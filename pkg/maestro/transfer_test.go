package maestro

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

func openMemBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	t.Cleanup(func() { bucket.Close() })
	return bucket
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/exports/part-000.csv.gz":
			w.Write([]byte("compressed part 0"))
		case "/exports/part-001.csv.gz":
			w.Write([]byte("compressed part 1"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	api := &fakeAPI{full: Status{
		Name:    "daily_users",
		Dataset: "analytics",
		Extract: true,
		Extracts: Extracts{URLs: []string{
			server.URL + "/exports/part-000.csv.gz?sig=abc",
			server.URL + "/exports/part-001.csv.gz?sig=def",
		}},
	}}

	tbl := newTestTable(t, api, nil)
	bucket := openMemBucket(t)

	keys, err := tbl.Fetch(ctx, bucket)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := []string{"part-000.csv.gz", "part-001.csv.gz"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i, key := range want {
		if keys[i] != key {
			t.Fatalf("key %d: expected %q, got %q", i, key, keys[i])
		}
		data, err := bucket.ReadAll(ctx, key)
		if err != nil {
			t.Fatalf("read %s: %v", key, err)
		}
		if string(data) == "" {
			t.Fatalf("empty blob for %s", key)
		}
	}

	if len(tbl.Files()) != 2 {
		t.Fatalf("expected 2 recorded files, got %v", tbl.Files())
	}
}

func TestFetchNoExtract(t *testing.T) {
	api := &fakeAPI{full: Status{Name: "t", Dataset: "d"}}
	tbl := newTestTable(t, api, nil)

	_, err := tbl.Fetch(context.Background(), openMemBucket(t))
	if err != ErrNoExtract {
		t.Fatalf("expected ErrNoExtract, got %v", err)
	}
}

func TestCloseCleansUpFetchedFiles(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	api := &fakeAPI{full: Status{
		Name:     "t",
		Dataset:  "d",
		Extract:  true,
		Extracts: Extracts{URLs: []string{server.URL + "/exports/part-000.csv.gz"}},
	}}

	tbl := newTestTable(t, api, nil)
	tbl.cleanup = true
	bucket := openMemBucket(t)

	if _, err := tbl.Fetch(ctx, bucket); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := tbl.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	exists, err := bucket.Exists(ctx, "part-000.csv.gz")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("expected fetched file to be deleted on Close")
	}

	// Close again: nothing left to delete, no error.
	if err := tbl.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestCloseWithoutCleanupKeepsFiles(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	api := &fakeAPI{full: Status{
		Name:     "t",
		Dataset:  "d",
		Extract:  true,
		Extracts: Extracts{URLs: []string{server.URL + "/part-000.csv.gz"}},
	}}

	tbl := newTestTable(t, api, nil)
	bucket := openMemBucket(t)

	if _, err := tbl.Fetch(ctx, bucket); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := tbl.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	exists, err := bucket.Exists(ctx, "part-000.csv.gz")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("expected fetched file to survive Close without cleanup")
	}
}

func TestUploadNotExternal(t *testing.T) {
	api := &fakeAPI{full: Status{Name: "t", Dataset: "d"}}
	tbl := newTestTable(t, api, nil)

	err := tbl.Upload(context.Background(), openMemBucket(t), "data.csv")
	if err != ErrNotExternal {
		t.Fatalf("expected ErrNotExternal, got %v", err)
	}
}

func TestUploadNoUploadURL(t *testing.T) {
	api := &fakeAPI{full: Status{Name: "t", Dataset: "d", ExternalTmout: 300}}
	tbl := newTestTable(t, api, nil)

	err := tbl.Upload(context.Background(), openMemBucket(t), "data.csv")
	if err != ErrNoUploadURL {
		t.Fatalf("expected ErrNoUploadURL, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	var uploaded []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		uploaded, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	api := &fakeAPI{
		full: Status{
			Name:           "events",
			Dataset:        "raw",
			ExternalTmout:  300,
			LastOkRunEndAt: t0,
			UploadURL:      server.URL + "/uploads/events.csv?sig=abc",
		},
		shorts: []ShortStatus{
			{Status: "ok", LastOkRunEndAt: t0}, // load not done yet
			{Status: "ok", LastOkRunEndAt: t1}, // load finished
		},
	}

	var sleeps int
	tbl := newTestTable(t, api, &sleeps)

	bucket := openMemBucket(t)
	payload := "a,b\n1,2\n3,4\n"
	if err := bucket.WriteAll(ctx, "data.csv", []byte(payload), nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	if err := tbl.Upload(ctx, bucket, "data.csv"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if string(uploaded) != payload {
		t.Fatalf("expected uploaded body %q, got %q", payload, uploaded)
	}
	// Load requested by the upload URL's base name, signature stripped.
	if len(api.loads) != 1 || api.loads[0] != "events.csv" {
		t.Fatalf("expected load request for 'events.csv', got %v", api.loads)
	}
	if api.shortCalls != 2 {
		t.Fatalf("expected 2 short fetches during load wait, got %d", api.shortCalls)
	}
	if sleeps != 1 {
		t.Fatalf("expected 1 sleep during load wait, got %d", sleeps)
	}
}

func TestUploadLoadFailure(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	api := &fakeAPI{
		full: Status{
			Name:           "events",
			Dataset:        "raw",
			ExternalTmout:  300,
			LastOkRunEndAt: t0,
			UploadURL:      server.URL + "/uploads/events.csv",
		},
		shorts: []ShortStatus{
			{Status: "ok", LastOkRunEndAt: t1},
		},
	}

	tbl := newTestTable(t, api, nil)
	// The final full refresh after the load wait reports the failure.
	api.full.Error = "load job failed: schema mismatch"

	bucket := openMemBucket(t)
	if err := bucket.WriteAll(ctx, "data.csv", []byte("x\n"), nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	err := tbl.Upload(ctx, bucket, "data.csv")
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if rerr.Message != "load job failed: schema mismatch" {
		t.Fatalf("unexpected message %q", rerr.Message)
	}
}
