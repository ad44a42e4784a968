package maestro

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testToken = "secret-token"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	auth := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Api-Token") != testToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("/table/7", auth(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"Name": "daily_users",
			"Dataset": "analytics",
			"Running": false,
			"ExternalTmout": 0,
			"LastOkRunEndAt": "2024-03-01T12:00:00Z",
			"Error": "",
			"Extract": true,
			"Extracts": {"URLs": ["https://storage.example.com/part-000.csv.gz?sig=x"]},
			"UploadURL": ""
		}`))
	}))
	mux.HandleFunc("/table/7/status", auth(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"Status": "running",
			"LastOkRunEndAt": "2024-03-01T12:00:00Z",
			"Error": ""
		}`))
	}))
	mux.HandleFunc("/table/7/bq_info", auth(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"schema": {"fields": [
				{"name": "id", "type": "INTEGER", "mode": "REQUIRED"},
				{"name": "name", "type": "STRING", "mode": "NULLABLE"}
			]}
		}`))
	}))
	mux.HandleFunc("/table/analytics.daily_users/id", auth(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Id": 7}`))
	}))
	mux.HandleFunc("/table/analytics.missing/id", auth(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Id": 0}`))
	}))
	mux.HandleFunc("/table/7/load_external", auth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("fn") != "events.csv" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, serverURL, token string) *Client {
	t.Helper()
	client, err := New(serverURL, token)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestFullStatus(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t, server.URL, testToken)

	status, err := client.FullStatus(context.Background(), 7)
	if err != nil {
		t.Fatalf("FullStatus: %v", err)
	}

	if status.Name != "daily_users" || status.Dataset != "analytics" {
		t.Fatalf("unexpected identity: %s.%s", status.Dataset, status.Name)
	}
	if status.External() {
		t.Fatal("expected internal classification for ExternalTmout=0")
	}
	if !status.Extract || len(status.Extracts.URLs) != 1 {
		t.Fatalf("unexpected extracts: %+v", status.Extracts)
	}
	if status.LastOkRunEndAt.IsZero() {
		t.Fatal("expected parsed LastOkRunEndAt")
	}
}

func TestShortStatus(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t, server.URL, testToken)

	status, err := client.ShortStatus(context.Background(), 7)
	if err != nil {
		t.Fatalf("ShortStatus: %v", err)
	}
	if !status.Running() {
		t.Fatal("expected running status")
	}
	if status.Error != "" {
		t.Fatalf("unexpected error field: %q", status.Error)
	}
}

func TestTableID(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t, server.URL, testToken)

	id, err := client.TableID(context.Background(), "analytics.daily_users")
	if err != nil {
		t.Fatalf("TableID: %v", err)
	}
	if id != 7 {
		t.Fatalf("expected id 7, got %d", id)
	}
}

func TestTableIDNotFound(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t, server.URL, testToken)

	if _, err := client.TableID(context.Background(), "analytics.missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for zero id, got %v", err)
	}
	if _, err := client.TableID(context.Background(), "analytics.unrouted"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for 404, got %v", err)
	}
}

func TestUnauthorized(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t, server.URL, "wrong-token")

	if _, err := client.FullStatus(context.Background(), 7); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRequestLoad(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t, server.URL, testToken)

	if err := client.RequestLoad(context.Background(), 7, "events.csv"); err != nil {
		t.Fatalf("RequestLoad: %v", err)
	}
}

func TestClientTable(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t, server.URL, testToken)

	tbl, err := client.TableByName(context.Background(), "analytics.daily_users")
	if err != nil {
		t.Fatalf("TableByName: %v", err)
	}

	if tbl.ID() != 7 {
		t.Fatalf("expected id 7, got %d", tbl.ID())
	}
	if tbl.Name() != "daily_users" || tbl.Dataset() != "analytics" {
		t.Fatalf("unexpected identity: %s.%s", tbl.Dataset(), tbl.Name())
	}
	if tbl.External() {
		t.Fatal("expected internal classification")
	}
}

func TestClientTableNotFound(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t, server.URL, testToken)

	if _, err := client.Table(context.Background(), 99); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
