package erp

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

// ErrNotConfigured is returned when the ERP integration is used without
// credentials.
var ErrNotConfigured = errors.New("erp integration is not configured")

// ErrUpstream marks failures of the ERP itself, as opposed to local
// configuration or decoding problems.
var ErrUpstream = errors.New("erp upstream failure")

// maxErrorBody bounds how much of an upstream error response is quoted back.
const maxErrorBody = 512

// Client fetches the sales export from the ERP restlet, authenticating each
// request with a token-based OAuth 1.0 signature. Safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	// Injected for deterministic signatures in tests.
	nonce     func() string
	timestamp func() string
}

// NewClient creates a client. The configuration must already be validated.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: timeout},
		logger:    logger.With(slog.String("component", "erp_client")),
		nonce:     randomNonce,
		timestamp: func() string { return strconv.FormatInt(time.Now().Unix(), 10) },
	}
}

// FetchSalesTable retrieves the full sales export and shapes it into the raw
// table the analysis engine expects.
func (c *Client) FetchSalesTable(ctx context.Context) (*analysis.Table, error) {
	body, err := c.get(ctx, c.cfg.RestletURL)
	if err != nil {
		return nil, err
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decoding erp response: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("erp returned an empty dataset")
	}

	table, err := tableFromRecords(records)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "erp export fetched",
		slog.Int("rows", len(table.Rows)),
		slog.Int("columns", len(table.Columns)))
	return table, nil
}

// TestConnection performs one authenticated round trip and reports failure
// without interpreting the payload.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.get(ctx, c.cfg.RestletURL)
	return err
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building erp request: %w", err)
	}
	auth, err := c.authorizationHeader(http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return body, nil
}

// authorizationHeader builds the OAuth 1.0 Authorization value with an
// HMAC-SHA256 signature over the request method, base URL and query
// parameters.
func (c *Client) authorizationHeader(method, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing restlet url: %w", err)
	}

	oauthParams := map[string]string{
		"oauth_consumer_key":     c.cfg.ConsumerKey,
		"oauth_token":            c.cfg.TokenID,
		"oauth_signature_method": "HMAC-SHA256",
		"oauth_timestamp":        c.timestamp(),
		"oauth_nonce":            c.nonce(),
		"oauth_version":          "1.0",
	}

	// The signature covers the oauth parameters plus the query string,
	// percent-encoded and sorted by encoded key.
	type pair struct{ key, value string }
	var pairs []pair
	for k, v := range oauthParams {
		pairs = append(pairs, pair{percentEncode(k), percentEncode(v)})
	}
	for k, values := range u.Query() {
		for _, v := range values {
			pairs = append(pairs, pair{percentEncode(k), percentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})
	paramParts := make([]string, len(pairs))
	for i, p := range pairs {
		paramParts[i] = p.key + "=" + p.value
	}

	baseURL := u.Scheme + "://" + u.Host + u.Path
	base := strings.Join([]string{
		method,
		percentEncode(baseURL),
		percentEncode(strings.Join(paramParts, "&")),
	}, "&")

	signingKey := percentEncode(c.cfg.ConsumerSecret) + "&" + percentEncode(c.cfg.TokenSecret)
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(base))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headerParams := []string{fmt.Sprintf("realm=%q", c.realm())}
	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		headerParams = append(headerParams, fmt.Sprintf("%s=%q", k, percentEncode(oauthParams[k])))
	}
	headerParams = append(headerParams, fmt.Sprintf("oauth_signature=%q", percentEncode(signature)))

	return "OAuth " + strings.Join(headerParams, ", "), nil
}

func (c *Client) realm() string { return c.cfg.realm() }

func randomNonce() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(buf[:])
}

// tableFromRecords flattens the restlet's array of objects into a raw table.
// The well-known columns lead in a fixed order; anything else follows
// alphabetically so the layout is stable across fetches.
func tableFromRecords(records []map[string]json.RawMessage) (*analysis.Table, error) {
	seen := map[string]struct{}{}
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	if _, ok := seen[analysis.EntityColumn]; !ok {
		return nil, fmt.Errorf("erp response has no %q field", analysis.EntityColumn)
	}

	leading := []string{analysis.EntityColumn, analysis.CodeColumn, analysis.LocationColumn}
	columns := make([]string, 0, len(seen))
	for _, k := range leading {
		if _, ok := seen[k]; ok {
			columns = append(columns, k)
			delete(seen, k)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	columns = append(columns, rest...)

	table := &analysis.Table{Columns: columns, Rows: make([][]string, len(records))}
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			raw, ok := rec[col]
			if !ok {
				continue
			}
			row[j] = cellString(raw)
		}
		table.Rows[i] = row
	}
	return table, nil
}

// percentEncode applies the strict unreserved-set encoding the signature
// base string requires; url.QueryEscape is close but encodes spaces as '+'.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9',
			ch == '-', ch == '.', ch == '_', ch == '~':
			b.WriteByte(ch)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", ch))
		}
	}
	return b.String()
}

// cellString renders one JSON value the way a spreadsheet cell would hold it.
func cellString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}
