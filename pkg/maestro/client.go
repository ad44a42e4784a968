package maestro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Common errors.
var (
	ErrNotFound     = errors.New("maestro: table not found")
	ErrUnauthorized = errors.New("maestro: invalid or missing API token")
)

// Status is a table's full status snapshot.
type Status struct {
	Name           string    `json:"Name"`
	Dataset        string    `json:"Dataset"`
	Running        bool      `json:"Running"`
	ExternalTmout  int       `json:"ExternalTmout"`
	LastOkRunEndAt time.Time `json:"LastOkRunEndAt"`
	Error          string    `json:"Error"`
	Extract        bool      `json:"Extract"`
	Extracts       Extracts  `json:"Extracts"`
	UploadURL      string    `json:"UploadURL"`
}

// External reports whether the table is external: its execution is
// triggered outside this client and only observed here. A table is
// external iff its configured external timeout is positive; this never
// changes during the life of a handle.
func (s *Status) External() bool {
	return s.ExternalTmout > 0
}

// Extracts lists the signed URLs of a table's export files.
type Extracts struct {
	URLs []string `json:"URLs"`
}

// ShortStatus is the cheap status used while polling.
type ShortStatus struct {
	Status         string    `json:"Status"`
	LastOkRunEndAt time.Time `json:"LastOkRunEndAt"`
	Error          string    `json:"Error"`
}

// Running reports whether the table is currently executing.
func (s *ShortStatus) Running() bool {
	return s.Status == "running"
}

// BQInfo is the BigQuery metadata of a table.
type BQInfo struct {
	Schema BQSchema `json:"schema"`
}

// BQSchema is a BigQuery table schema.
type BQSchema struct {
	Fields []BQField `json:"fields"`
}

// BQField is one column of a BigQuery schema.
type BQField struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the http.Client used for API requests.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(logger *logrus.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

// Client speaks the Maestro REST API.
type Client struct {
	base  *url.URL
	token string
	httpc *http.Client
	log   *logrus.Logger
}

// New creates a Client for the Maestro instance at rawurl,
// authenticating with the given API token.
func New(rawurl, token string, options ...ClientOption) (*Client, error) {
	base, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("maestro: parse url: %w", err)
	}

	c := &Client{
		base:  base,
		token: token,
		httpc: &http.Client{Timeout: 30 * time.Second},
		log:   logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// FullStatus fetches a table's full status snapshot.
func (c *Client) FullStatus(ctx context.Context, id int64) (*Status, error) {
	var status Status
	if err := c.get(ctx, &status, "table", strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	return &status, nil
}

// ShortStatus fetches the cheap status used while polling.
func (c *Client) ShortStatus(ctx context.Context, id int64) (*ShortStatus, error) {
	var status ShortStatus
	if err := c.get(ctx, &status, "table", strconv.FormatInt(id, 10), "status"); err != nil {
		return nil, err
	}
	return &status, nil
}

// TableID resolves a dataset.table name to its id.
func (c *Client) TableID(ctx context.Context, name string) (int64, error) {
	var resp struct {
		ID int64 `json:"Id"`
	}
	if err := c.get(ctx, &resp, "table", name, "id"); err != nil {
		return 0, err
	}
	if resp.ID == 0 {
		return 0, ErrNotFound
	}
	return resp.ID, nil
}

// BQInfo fetches a table's BigQuery metadata.
func (c *Client) BQInfo(ctx context.Context, id int64) (*BQInfo, error) {
	var info BQInfo
	if err := c.get(ctx, &info, "table", strconv.FormatInt(id, 10), "bq_info"); err != nil {
		return nil, err
	}
	return &info, nil
}

// RequestLoad asks the server to start a load job for an external
// table from the previously uploaded file. Fire-and-forget: completion
// is observed by polling.
func (c *Client) RequestLoad(ctx context.Context, id int64, filename string) error {
	form := url.Values{"fn": {filename}}
	endpoint := c.base.JoinPath("table", strconv.FormatInt(id, 10), "load_external")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("maestro: create request: %w", err)
	}
	req.Header.Set("X-Api-Token", c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("maestro: request load: %w", err)
	}
	defer resp.Body.Close()

	return c.checkStatus(resp)
}

// get performs an authenticated GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, out any, elems ...string) error {
	endpoint := c.base.JoinPath(elems...)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("maestro: create request: %w", err)
	}
	req.Header.Set("X-Api-Token", c.token)

	c.log.WithField("url", endpoint.String()).Debug("maestro api request")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("maestro: request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("maestro: decode response: %w", err)
	}
	return nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("maestro: api error (status %d): %s", resp.StatusCode, body)
	}
}
