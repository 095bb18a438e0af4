package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	"github.com/noah-isme/records-console/pkg/config"
	appErrors "github.com/noah-isme/records-console/pkg/errors"
	"github.com/noah-isme/records-console/pkg/metrics"
)

// Client talks to the student-records backend over the JSON/HTTP contract.
// The session cookie issued by login lives in the cookie jar; no timeout is
// set, so failures are only those the transport surfaces.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// New constructs a backend client for the configured server.
func New(cfg config.ServerConfig, logger *zap.Logger, recorder *metrics.Recorder) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:    &http.Client{Jar: jar},
		baseURL: cfg.URL + cfg.APIPrefix,
		logger:  logger,
		metrics: recorder,
	}, nil
}

// Me queries the current session state.
func (c *Client) Me(ctx context.Context) (models.Session, error) {
	var session models.Session
	if err := c.doJSON(ctx, http.MethodGet, "/me", nil, nil, &session); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

// Login authenticates and stores the session cookie on success.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.Session, error) {
	var resp struct {
		Username string      `json:"username"`
		Role     models.Role `json:"role"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/login", nil, creds, &resp); err != nil {
		return models.Session{}, err
	}
	return models.Session{LoggedIn: true, Username: resp.Username, Role: resp.Role}, nil
}

// Register creates an account. It deliberately does not authenticate.
func (c *Client) Register(ctx context.Context, creds models.Credentials) error {
	status, body, err := c.do(ctx, http.MethodPost, "/register", nil, creds)
	if err != nil {
		return err
	}
	if status >= 400 {
		// The backend reports duplicate usernames with a 400; to the user
		// that is an authentication-domain failure, not a malformed request.
		if status == http.StatusBadRequest {
			e := appErrors.Clone(appErrors.ErrAuth, errorMessage(body))
			e.Status = status
			return e
		}
		return appErrors.FromStatus(status, errorMessage(body))
	}
	return nil
}

// Logout requests server-side session termination. Callers treat it as
// best-effort.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/logout", nil, nil, nil)
}

// ListStudents fetches the full student collection. A non-sequence payload
// yields an empty collection rather than an error.
func (c *Client) ListStudents(ctx context.Context) ([]models.StudentRecord, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/students", nil, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, appErrors.FromStatus(status, errorMessage(body))
	}
	var students []models.StudentRecord
	if err := json.Unmarshal(body, &students); err != nil {
		c.logger.Warn("non-sequence student payload, treating as empty", zap.Error(err))
		return []models.StudentRecord{}, nil
	}
	return students, nil
}

// CreateStudent registers a new student record.
func (c *Client) CreateStudent(ctx context.Context, record models.StudentRecord) error {
	record.ID = 0
	return c.doJSON(ctx, http.MethodPost, "/students", nil, record, nil)
}

// UpdateStudent replaces the fields of an existing student record.
func (c *Client) UpdateStudent(ctx context.Context, id int64, record models.StudentRecord) error {
	record.ID = 0
	return c.doJSON(ctx, http.MethodPut, "/students/"+strconv.FormatInt(id, 10), nil, record, nil)
}

// DeleteStudent removes a student record.
func (c *Client) DeleteStudent(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/students/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// ListUsers fetches all user accounts. Shares the empty-on-malformed
// semantics of ListStudents.
func (c *Client) ListUsers(ctx context.Context) ([]models.UserAccount, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/users", nil, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, appErrors.FromStatus(status, errorMessage(body))
	}
	var users []models.UserAccount
	if err := json.Unmarshal(body, &users); err != nil {
		c.logger.Warn("non-sequence user payload, treating as empty", zap.Error(err))
		return []models.UserAccount{}, nil
	}
	return users, nil
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/users/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// FetchChart retrieves the grade-distribution image for the query. The
// cache token rides along as the ts parameter to bypass intermediate caches.
func (c *Client) FetchChart(ctx context.Context, query models.ChartQuery) ([]byte, error) {
	values := url.Values{}
	switch query.Mode {
	case models.ChartByStudent:
		values.Set("student_id", strconv.FormatInt(query.StudentID, 10))
	case models.ChartBySubject:
		values.Set("subject", query.Subject)
	}
	values.Set("ts", strconv.FormatInt(query.CacheToken, 10))

	status, body, err := c.do(ctx, http.MethodGet, "/plot/grades.png", values, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, appErrors.FromStatus(status, errorMessage(body))
	}
	return body, nil
}

// doJSON issues a request and decodes a 2xx body into out when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, values url.Values, in, out any) error {
	status, body, err := c.do(ctx, method, path, values, in)
	if err != nil {
		return err
	}
	if status >= 400 {
		return appErrors.FromStatus(status, errorMessage(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return appErrors.Wrap(err, appErrors.ErrServer.Code, status, "malformed backend payload")
		}
	}
	return nil
}

// do performs one round-trip, logging and instrumenting it. It returns the
// status and raw body; transport failures come back as typed errors with a
// zero status.
func (c *Client) do(ctx context.Context, method, path string, values url.Values, in any) (int, []byte, error) {
	var payload io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return 0, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, 0, "encode request payload")
		}
		payload = bytes.NewReader(encoded)
	}

	target := c.baseURL + path
	if len(values) > 0 {
		target += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, 0, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(method, path, 0, latency)
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return 0, nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, 0, appErrors.ErrTransport.Message)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(method, path, 0, latency)
		return 0, nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, 0, "read response body")
	}

	c.metrics.ObserveRequest(method, path, resp.StatusCode, latency)
	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency),
		zap.String("request_id", requestID))

	return resp.StatusCode, body, nil
}

// errorMessage extracts the backend's error text, empty when absent.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error
}
