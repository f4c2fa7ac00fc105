// Package testutil provides test helpers for csvstats tests.
// fakeapi.go serves an in-process stand-in for the upload pipeline API.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/csvstats/csvstats/internal/api"
)

// DefaultToken is the token the fake API issues on login.
const DefaultToken = "jwt-token"

// RecordedRequest is one request seen by the fake API.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type fakeUser struct {
	id       int64
	password string
}

// FakeAPI implements the login, /me and uploads endpoints in memory.
type FakeAPI struct {
	server *httptest.Server

	mu           sync.Mutex
	users        map[string]fakeUser
	token        string
	tokenOwner   map[string]string
	uploads      []api.UploadRecord
	nextID       int64
	requests     []RecordedRequest
	listStatus   int
	uploadStatus int
	uploadDelay  time.Duration
	now          func() time.Time
}

// NewFakeAPI starts a FakeAPI that is shut down when the test finishes.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:      make(map[string]fakeUser),
		token:      DefaultToken,
		tokenOwner: make(map[string]string),
		nextID:     1,
		now:        func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(f.record)

	e.POST("/auth/login", f.handleLogin)
	e.GET("/me", f.handleMe, f.requireToken)

	uploads := e.Group("/api/uploads", f.requireToken)
	uploads.GET("", f.handleList)
	uploads.POST("", f.handleUpload)
	uploads.GET("/:id", f.handleGet)

	f.server = httptest.NewServer(e)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake API.
func (f *FakeAPI) URL() string {
	return f.server.URL
}

// AddUser registers credentials accepted by /auth/login.
func (f *FakeAPI) AddUser(email, password string, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = fakeUser{id: id, password: password}
}

// SetToken changes the token issued on the next login.
func (f *FakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// IssueToken makes token valid for email without a login, as for a session
// restored from storage.
func (f *FakeAPI) IssueToken(token, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenOwner[token] = email
}

// Seed prepends records to the upload history, newest first.
func (f *FakeAPI) Seed(records ...api.UploadRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		if r.ID >= f.nextID {
			f.nextID = r.ID + 1
		}
	}
	f.uploads = append(append([]api.UploadRecord{}, records...), f.uploads...)
}

// SetStatus changes the status of a stored upload, as the validation pipeline would.
func (f *FakeAPI) SetStatus(id int64, status api.UploadStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.uploads {
		if f.uploads[i].ID == id {
			f.uploads[i].Status = status
			f.uploads[i].UpdatedAt = f.now()
		}
	}
}

// FailList makes GET /api/uploads answer with status. Zero restores normal behaviour.
func (f *FakeAPI) FailList(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listStatus = status
}

// FailUpload makes POST /api/uploads answer with status. Zero restores normal behaviour.
func (f *FakeAPI) FailUpload(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadStatus = status
}

// DelayUpload holds each upload response for d after the body is read.
func (f *FakeAPI) DelayUpload(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadDelay = d
}

// Requests returns a copy of every request seen so far.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// CallCount returns how many requests matched method and path.
func (f *FakeAPI) CallCount(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Uploads returns the stored upload history.
func (f *FakeAPI) Uploads() []api.UploadRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.UploadRecord(nil), f.uploads...)
}

func (f *FakeAPI) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        req.Method,
			Path:          req.URL.Path,
			Authorization: req.Header.Get(api.HeaderAuthorization),
			RequestID:     req.Header.Get(api.HeaderRequestID),
		})
		f.mu.Unlock()
		return next(c)
	}
}

func (f *FakeAPI) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(api.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")

		f.mu.Lock()
		email, ok := f.tokenOwner[token]
		f.mu.Unlock()

		if header == "" || !ok {
			return errorJSON(c, http.StatusUnauthorized, "Unauthorized")
		}
		c.Set("email", email)
		return next(c)
	}
}

func (f *FakeAPI) handleLogin(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[req.Email]
	if !ok || user.password != req.Password {
		return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
	}
	f.tokenOwner[f.token] = req.Email

	return c.JSON(http.StatusOK, api.AuthResponse{
		UserID: user.id,
		Email:  req.Email,
		Token:  f.token,
	})
}

func (f *FakeAPI) handleMe(c echo.Context) error {
	return c.String(http.StatusOK, "Authenticated as: "+c.Get("email").(string))
}

func (f *FakeAPI) handleList(c echo.Context) error {
	f.mu.Lock()
	status := f.listStatus
	records := append([]api.UploadRecord{}, f.uploads...)
	f.mu.Unlock()

	if status != 0 {
		return errorJSON(c, status, "Unable to list uploads")
	}
	return c.JSON(http.StatusOK, records)
}

func (f *FakeAPI) handleGet(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid upload id")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.uploads {
		if r.ID == id {
			return c.JSON(http.StatusOK, r)
		}
	}
	return errorJSON(c, http.StatusNotFound, "Upload not found")
}

func (f *FakeAPI) handleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "File is required")
	}
	src, err := file.Open()
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Unable to read upload")
	}
	defer src.Close()

	n, err := io.Copy(io.Discard, src)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Unable to read upload")
	}

	f.mu.Lock()
	status, delay := f.uploadStatus, f.uploadDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}
	if status != 0 {
		return errorJSON(c, status, "Upload rejected")
	}
	if n == 0 {
		return errorJSON(c, http.StatusBadRequest, "File is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	email, _ := c.Get("email").(string)
	record := api.UploadRecord{
		ID:         id,
		Filename:   file.Filename,
		Status:     api.StatusPending,
		StorageKey: fmt.Sprintf("uploads/%s/%d/%s", email, id, file.Filename),
		CreatedAt:  f.now(),
		UpdatedAt:  f.now(),
	}
	f.uploads = append([]api.UploadRecord{record}, f.uploads...)
	return c.JSON(http.StatusOK, record)
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

// Record builds an UploadRecord with fixed timestamps for fixtures.
func Record(id int64, filename string, status api.UploadStatus) api.UploadRecord {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return api.UploadRecord{
		ID:         id,
		Filename:   filename,
		Status:     status,
		StorageKey: "key",
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}
