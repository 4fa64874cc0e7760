package opentdb

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
	"sync"
	"time"

	"trivia-quiz/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultBaseURL = "https://opentdb.com"

// Response codes returned in the response_code field.
const (
	CodeSuccess       = 0
	CodeNoResults     = 1
	CodeInvalidParam  = 2
	CodeTokenNotFound = 3
	CodeTokenEmpty    = 4
	CodeRateLimit     = 5
)

// APIError is a non-zero response_code.
type APIError struct {
	Code int
}

func (e *APIError) Error() string {
	switch e.Code {
	case CodeNoResults:
		return "opentdb: not enough questions for query"
	case CodeInvalidParam:
		return "opentdb: invalid parameter"
	case CodeTokenNotFound:
		return "opentdb: session token not found"
	case CodeTokenEmpty:
		return "opentdb: session token exhausted"
	case CodeRateLimit:
		return "opentdb: rate limited"
	default:
		return "opentdb: response code " + strconv.Itoa(e.Code)
	}
}

// TokenRejected reports whether the cached session token must be dropped.
func (e *APIError) TokenRejected() bool {
	return e.Code == CodeTokenNotFound || e.Code == CodeTokenEmpty
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	UseToken   bool
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client fetches multiple-choice batches from Open Trivia DB. It implements
// app.QuestionSource.
type Client struct {
	baseURL  string
	http     *http.Client
	useToken bool
	logger   *zap.Logger

	sf    singleflight.Group
	mu    sync.Mutex
	token string
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  baseURL,
		http:     httpClient,
		useToken: opts.UseToken,
		logger:   logger,
	}
}

type questionsResponse struct {
	ResponseCode int                  `json:"response_code"`
	Results      []domain.RawQuestion `json:"results"`
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

type categoriesResponse struct {
	Categories []Category `json:"trivia_categories"`
}

// Category is one entry of the provider's category list.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (c *Client) FetchQuestions(ctx context.Context, req domain.BatchRequest) ([]domain.RawQuestion, error) {
	q := url.Values{}
	q.Set("amount", strconv.Itoa(req.Amount))
	q.Set("type", "multiple")
	if req.Category != "" {
		q.Set("category", req.Category)
	}
	if req.Difficulty != "" {
		q.Set("difficulty", req.Difficulty)
	}
	if c.useToken {
		token, err := c.sessionToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		}
		q.Set("token", token)
	}

	var resp questionsResponse
	if err := c.getJSON(ctx, "/api.php", q, &resp); err != nil {
		return nil, err
	}
	if resp.ResponseCode != CodeSuccess {
		apiErr := &APIError{Code: resp.ResponseCode}
		if apiErr.TokenRejected() {
			c.dropToken()
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, apiErr)
	}
	return resp.Results, nil
}

// Categories lists the provider's categories with their numeric ids.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var resp categoriesResponse
	if err := c.getJSON(ctx, "/api_category.php", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	// Shared by every waiting caller: bounded by the client timeout, not by ctx.
	shared := context.WithoutCancel(ctx)
	ch := c.sf.DoChan("token", func() (interface{}, error) {
		var resp tokenResponse
		q := url.Values{"command": {"request"}}
		if err := c.getJSON(shared, "/api_token.php", q, &resp); err != nil {
			return "", err
		}
		if resp.ResponseCode != CodeSuccess || resp.Token == "" {
			return "", fmt.Errorf("request session token: %w", &APIError{Code: resp.ResponseCode})
		}
		c.mu.Lock()
		c.token = resp.Token
		c.mu.Unlock()
		c.logger.Debug("acquired opentdb session token")
		return resp.Token, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	c.logger.Info("dropped opentdb session token")
}

// getJSON maps transport failures and non-2xx statuses to ErrFetchFailed and
// undecodable bodies to ErrParseFailed.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned %s", domain.ErrFetchFailed, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrParseFailed, err)
	}
	return nil
}
