package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/justyntemme/wsl-t/pkg/models"
)

// DefaultTimeout bounds every request unless the caller picks another
const DefaultTimeout = 10 * time.Second

// RequestIDHeader carries a fresh id with every request
const RequestIDHeader = "X-Request-ID"

// Client is the HTTP client for the book API
type Client struct {
	baseURL string

	// mu guards token and lang, which change while requests are in flight
	mu    sync.RWMutex
	token string
	lang  string

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLang asks the backend to convert text, e.g. to models.LangTC
func WithLang(lang string) Option {
	return func(c *Client) { c.lang = lang }
}

// WithTimeout replaces DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger logs every request at debug level
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRateLimit allows at most perSecond requests per second
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewClient creates a new API client
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken updates the authentication token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// SetLang changes the text variant requested from the backend
func (c *Client) SetLang(lang string) {
	c.mu.Lock()
	c.lang = lang
	c.mu.Unlock()
}

// Lang returns the text variant requested from the backend
func (c *Client) Lang() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lang
}

// session returns the token and lang for one request
func (c *Client) session() (token, lang string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.lang
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request makes an HTTP request to the API
func (c *Client) request(ctx context.Context, method, path string, params url.Values, body any) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, mapTransportError(err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	token, lang := c.session()
	if lang != "" {
		if params == nil {
			params = url.Values{}
		}
		params.Set("lang", lang)
	}
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "id", requestID, "err", err)
		return nil, mapTransportError(err)
	}
	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode,
		"duration", time.Since(start), "id", requestID)
	return resp, nil
}

// mapTransportError turns deadline failures into ErrTimeout
func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// parseResponse reads and unmarshals the response body
func parseResponse[T any](resp *http.Response) (T, error) {
	var result T
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, mapTransportError(err)
	}

	if resp.StatusCode >= 400 {
		return result, errorFromBody(resp.StatusCode, body)
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("decoding response: %w", err)
	}

	return result, nil
}

// expectOK drains a response whose body is not needed
func expectOK(resp *http.Response) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return errorFromBody(resp.StatusCode, body)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func errorFromBody(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status}
	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		apiErr.Message = errResp.Message
		apiErr.Category = errResp.Category
		return apiErr
	}
	apiErr.Message = unknownError(status)
	return apiErr
}

// BookQuery selects a page of the book list
type BookQuery struct {
	Limit   int
	Offset  int
	Keyword string
	Sort    string
	Fields  []string
}

func (q BookQuery) values() url.Values {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	params.Set("offset", strconv.Itoa(max(q.Offset, 0)))
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if len(q.Fields) > 0 {
		params.Set("fields", strings.Join(q.Fields, ","))
	}
	return params
}

// ChapterQuery selects a page of a book's chapters
type ChapterQuery struct {
	Limit  int
	Offset int
	Fields []string
}

func (q ChapterQuery) values() url.Values {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	params.Set("offset", strconv.Itoa(max(q.Offset, 0)))
	if len(q.Fields) > 0 {
		params.Set("fields", strings.Join(q.Fields, ","))
	}
	return params
}

// Book methods

// ListBooks returns one page of books. Count is only set for offset 0.
func (c *Client) ListBooks(ctx context.Context, q BookQuery) (*models.BooksResponse, error) {
	resp, err := c.request(ctx, http.MethodGet, "/books/v1", q.values(), nil)
	if err != nil {
		return nil, err
	}
	result, err := parseResponse[*models.BooksResponse](resp)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &models.BooksResponse{}
	}
	return result, nil
}

// GetBook returns a single book by ID
func (c *Client) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	resp, err := c.request(ctx, http.MethodGet, "/books/v1/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return nil, err
	}
	book, err := parseResponse[*models.Book](resp)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, &Error{StatusCode: http.StatusNotFound, Message: "book not found"}
	}
	if book.ID == 0 {
		book.ID = id
	}
	return book, nil
}

// ListChapters returns one page of a book's chapters
func (c *Client) ListChapters(ctx context.Context, bookID int64, q ChapterQuery) ([]models.Chapter, error) {
	path := fmt.Sprintf("/books/v1/%d/chapters", bookID)
	resp, err := c.request(ctx, http.MethodGet, path, q.values(), nil)
	if err != nil {
		return nil, err
	}
	result, err := parseResponse[*models.ChaptersResponse](resp)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.Chapters, nil
}

// UpdateBook changes the given fields of a book. Requires an admin account.
func (c *Client) UpdateBook(ctx context.Context, id int64, update models.BookUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}
	resp, err := c.request(ctx, http.MethodPatch, "/books/v1/"+strconv.FormatInt(id, 10), nil, update)
	if err != nil {
		return err
	}
	return expectOK(resp)
}

// User methods

// GetCurrentUser returns the account behind the token. An anonymous
// session yields a user with an empty account.
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	resp, err := c.request(ctx, http.MethodGet, "/users/v1/me", nil, nil)
	if err != nil {
		return nil, err
	}
	user, err := parseResponse[*models.User](resp)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &models.User{}
	}
	return user, nil
}

// RefreshSession extends the lifetime of the current session
func (c *Client) RefreshSession(ctx context.Context) error {
	resp, err := c.request(ctx, http.MethodPatch, "/users/v1/me", nil, nil)
	if err != nil {
		return err
	}
	return expectOK(resp)
}

// Health check

// Ping checks if the server is available
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.request(ctx, http.MethodGet, "/ping", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// MaxCoverSize caps the size of a downloaded cover image
const MaxCoverSize = 8 << 20

// FetchCover downloads a cover image. A relative cover is resolved against
// the base URL; absolute covers are fetched without the session token.
func (c *Client) FetchCover(ctx context.Context, cover string) ([]byte, error) {
	ref, err := url.Parse(cover)
	if err != nil || cover == "" {
		return nil, fmt.Errorf("invalid cover %q", cover)
	}
	if !ref.IsAbs() {
		return c.download(ctx, ref)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, mapTransportError(err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	return readCover(resp)
}

func (c *Client) download(ctx context.Context, ref *url.URL) ([]byte, error) {
	path := ref.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	var params url.Values
	if ref.RawQuery != "" {
		params = ref.Query()
	}
	resp, err := c.request(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, err
	}
	return readCover(resp)
}

func readCover(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errorFromBody(resp.StatusCode, body)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxCoverSize+1))
	if err != nil {
		return nil, mapTransportError(err)
	}
	if len(data) > MaxCoverSize {
		return nil, fmt.Errorf("cover larger than %d bytes", MaxCoverSize)
	}
	return data, nil
}
