package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/averymorin/tunelist/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// defaultRateLimit caps REST requests per second when the config leaves the
// limit unset.
const defaultRateLimit = 8.0

// Client is a PostgREST-style REST client for the Tunelist backend.
//
// Implements [Querier] and [Mutator]. Requests carry the project anon key
// and, when a session is attached, the user's bearer token so row-level
// security applies server-side.
type Client struct {
	baseURL    string
	anonKey    string
	schema     string
	httpClient *http.Client
	limiter    *rate.Limiter
	session    *AuthClient
	logger     *log.Logger
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	AnonKey    string
	Schema     string
	RateLimit  float64
	HTTPClient *http.Client
	Session    *AuthClient
	Logger     *log.Logger
}

// NewClient creates a REST client for the backend at opts.BaseURL.
func NewClient(opts ClientOpts) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		anonKey:    opts.AnonKey,
		schema:     opts.Schema,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		session:    opts.Session,
		logger:     opts.Logger,
	}
}

// apiError is the PostgREST error body shape.
type apiError struct {
	Message string `json:"message"`
	Details string `json:"details"`
	Code    string `json:"code"`
}

// Select performs a batch read and returns the matching rows.
func (c *Client) Select(ctx context.Context, params SelectParams) ([]Row, error) {
	if params.Table == "" {
		return nil, fmt.Errorf("%w: table is required", shared.ErrInvalidArgument)
	}

	cols := params.Columns
	if cols == "" {
		cols = "*"
	}

	values := url.Values{}
	values.Set("select", cols)
	encodeFilters(values, params.Eq, params.In)
	if params.Limit > 0 {
		values.Set("limit", strconv.Itoa(params.Limit))
	}

	body, err := c.do(ctx, http.MethodGet, params.Table, values, nil, nil)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: unexpected select response: %v", shared.ErrInvalidData, err)
	}

	return rows, nil
}

// Insert writes payload to the table and returns the affected rows.
func (c *Client) Insert(ctx context.Context, table string, payload any) ([]Row, error) {
	return c.write(ctx, table, payload, "return=representation")
}

// Upsert writes payload, merging duplicates on the table's conflict target.
func (c *Client) Upsert(ctx context.Context, table string, payload any) ([]Row, error) {
	return c.write(ctx, table, payload, "return=representation,resolution=merge-duplicates")
}

// Delete removes the rows matching all eq filters.
//
// An empty filter set is rejected rather than deleting the whole table.
func (c *Client) Delete(ctx context.Context, table string, eq map[string]string) error {
	if len(eq) == 0 {
		return fmt.Errorf("%w: delete requires at least one filter", shared.ErrInvalidArgument)
	}

	values := url.Values{}
	encodeFilters(values, eq, nil)

	_, err := c.do(ctx, http.MethodDelete, table, values, nil, nil)
	return err
}

// GetUser returns the user the attached session belongs to.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	if c.session == nil {
		return nil, shared.ErrNoSession
	}
	return c.session.GetUser(ctx)
}

func (c *Client) write(ctx context.Context, table string, payload any, prefer string) ([]Row, error) {
	if table == "" {
		return nil, fmt.Errorf("%w: table is required", shared.ErrInvalidArgument)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	headers := map[string]string{"Prefer": prefer}
	body, err := c.do(ctx, http.MethodPost, table, nil, bytes.NewReader(data), headers)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			// Single-object response
			var row Row
			if err2 := json.Unmarshal(body, &row); err2 != nil {
				return nil, fmt.Errorf("%w: unexpected write response: %v", shared.ErrInvalidData, err)
			}
			rows = []Row{row}
		}
	}

	return rows, nil
}

// do executes one rate-limited request against /rest/v1/{table}.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, body io.Reader, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept-Profile", c.schema)
	req.Header.Set("Content-Profile", c.schema)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	token := c.anonKey
	if c.session != nil {
		if t, err := c.session.AccessToken(ctx); err == nil && t != "" {
			token = t
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%w: %s %s: %s", shared.ErrAPIRequest, method, table, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %s %s: status %d", shared.ErrAPIRequest, method, table, resp.StatusCode)
	}

	return respBody, nil
}

// encodeFilters appends PostgREST eq./in. filter params to values.
//
// Map iteration order is randomized, so keys are sorted for deterministic
// request URLs.
func encodeFilters(values url.Values, eq map[string]string, in map[string][]string) {
	eqKeys := make([]string, 0, len(eq))
	for k := range eq {
		eqKeys = append(eqKeys, k)
	}
	sort.Strings(eqKeys)
	for _, k := range eqKeys {
		values.Set(k, "eq."+eq[k])
	}

	inKeys := make([]string, 0, len(in))
	for k := range in {
		inKeys = append(inKeys, k)
	}
	sort.Strings(inKeys)
	for _, k := range inKeys {
		values.Set(k, "in.("+QuoteList(in[k])+")")
	}
}

// QuoteList renders ids as a double-quoted, comma-separated list for in.(...)
// filters, escaping embedded quotes so ids with special characters survive.
func QuoteList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = `"` + strings.ReplaceAll(id, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, ",")
}
