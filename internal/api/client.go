package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxTextBody caps plain-text responses such as /me.
const maxTextBody = 1 << 20

// Client talks to the upload pipeline API. It is safe for concurrent use.
type Client struct {
	baseURL       string
	http          *http.Client
	transport     http.RoundTripper
	timeout       time.Duration
	uploadTimeout time.Duration
	userAgent     string
	logger        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds ordinary requests. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUploadTimeout bounds a whole upload. Zero disables the limit.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) { c.uploadTimeout = d }
}

// WithTransport replaces the underlying round tripper (http.DefaultTransport by default).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithUserAgent sets the User-Agent header value.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for baseURL. tokens may be nil for an
// unauthenticated client.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   30 * time.Second,
		userAgent: "csvstats",
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http = &http.Client{
		Transport: &requestIDTransport{
			base:      &bearerTransport{base: base, tokens: tokens},
			userAgent: c.userAgent,
		},
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a token. Login requests never carry a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, loginPath, loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the server's plain-text identity string. Used as a smoke test.
func (c *Client) Me(ctx context.Context) (string, error) {
	ctx, cancel := c.withTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTextBody))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(data), nil
}

// ListUploads returns the current upload history in server order.
func (c *Client) ListUploads(ctx context.Context) ([]UploadRecord, error) {
	var out []UploadRecord
	if err := c.doJSON(ctx, http.MethodGet, "/api/uploads", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []UploadRecord{}
	}
	return out, nil
}

// GetUpload returns a single upload record.
func (c *Client) GetUpload(ctx context.Context, id int64) (*UploadRecord, error) {
	var out UploadRecord
	path := "/api/uploads/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUpload streams content as the multipart field "file" and returns the
// registered record. onProgress, if non-nil, is called from the transport's
// goroutine as body bytes are consumed; the total is exact.
func (c *Client) CreateUpload(
	ctx context.Context,
	name, contentType string,
	content io.Reader,
	size int64,
	onProgress ProgressFunc,
) (*UploadRecord, error) {
	ctx, cancel := c.withTimeout(ctx, c.uploadTimeout)
	defer cancel()

	body, total, formType, err := multipartBody(name, contentType, content, size)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads",
		&progressReader{r: body, total: total, onProgress: onProgress})
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out UploadRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := c.withTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// send performs req and converts non-2xx responses into *Error.
// On success the caller owns resp.Body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}

	c.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func (c *Client) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody lays out a single-file multipart body without buffering the
// file: head (boundary and part headers), the content, then the closing
// boundary. Its exact length is returned so the request has a Content-Length.
func multipartBody(name, contentType string, content io.Reader, size int64) (io.Reader, int64, string, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, 0, "", fmt.Errorf("writing multipart header: %w", err)
	}

	// Matches what multipart.Writer.Close would emit.
	tail := "\r\n--" + mw.Boundary() + "--\r\n"

	total := int64(head.Len()) + size + int64(len(tail))
	body := io.MultiReader(&head, io.LimitReader(content, size), strings.NewReader(tail))
	return body, total, mw.FormDataContentType(), nil
}

// progressReader counts bytes as the transport reads the request body.
type progressReader struct {
	r          io.Reader
	sent       int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	return n, err
}
