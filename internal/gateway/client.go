package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"comicshelf/pkg/models"
)

// User is the signed-in account as the server reports it.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Update is one reading-position write.
type Update struct {
	ComicID    string `json:"comic_id"`
	ChapterID  string `json:"chapter_id,omitempty"`
	PageNumber int    `json:"page_number"`
	ClientTS   int64  `json:"client_ts"`
}

// envelope is the wire shape every endpoint responds with.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Error   string          `json:"error"`
}

// Client talks to the comicshelf API. It caches the signed-in user and keeps
// the token mirrored on disk so sessions survive restarts.
type Client struct {
	baseURL   string
	http      *http.Client
	tokenPath string

	mu         sync.Mutex
	token      string
	user       *User
	authChange func(*User)
}

// New builds a client for baseURL, persisting the auth token at tokenPath.
func New(baseURL, tokenPath string) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 15 * time.Second},
		tokenPath: tokenPath,
	}
}

// OnAuthChange registers fn to run whenever the signed-in user changes:
// sign-in, sign-out and session restore. A nil user means signed out. fn runs
// on the goroutine that triggered the change.
func (c *Client) OnAuthChange(fn func(*User)) {
	c.mu.Lock()
	c.authChange = fn
	c.mu.Unlock()
}

// Token returns the current bearer token, empty when signed out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// User returns the cached signed-in user without a network round trip.
func (c *Client) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Authenticated reports whether the client holds a token.
func (c *Client) Authenticated() bool {
	return c.Token() != ""
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) setUser(u *User) {
	c.mu.Lock()
	c.user = u
	fn := c.authChange
	c.mu.Unlock()
	if fn != nil {
		fn(u)
	}
}

// LoadToken pulls the saved token into memory without a server round trip.
// Calls needing auth still surface ErrAuthRequired when it turns out stale.
func (c *Client) LoadToken() error {
	token, err := readToken(c.tokenPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if token != "" {
		c.setToken(token)
	}
	return nil
}

// RestoreSession loads the saved token and validates it against the server.
// On success the auth-change callback fires with the restored user. Returns
// ErrAuthRequired when no usable token exists.
func (c *Client) RestoreSession(ctx context.Context) (*User, error) {
	token, err := readToken(c.tokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if token == "" {
		return nil, ErrAuthRequired
	}
	c.setToken(token)
	u, err := c.CurrentUser(ctx)
	if err != nil {
		c.setToken("")
		return nil, err
	}
	c.setUser(u)
	return u, nil
}

// do sends one request and returns the decoded envelope, mapping any failure
// onto the gateway error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", ErrBackend, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrBackend, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, statusError(resp.StatusCode, "")
	}
	if resp.StatusCode >= 300 || !env.Success {
		return nil, statusError(resp.StatusCode, env.Error)
	}
	return &env, nil
}

// statusError picks the sentinel for an HTTP status, attaching the server's
// message when it sent one.
func statusError(status int, msg string) error {
	var base error
	switch status {
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusBadRequest, http.StatusConflict:
		base = ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		base = ErrAuthRequired
	default:
		base = ErrBackend
	}
	if msg == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, msg)
}

func decodeData(env *envelope, out any, what string) error {
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrBackend, what, err)
	}
	return nil
}

// ListComics fetches the catalog, optionally filtered by a title search.
// The second return value is the total match count across all pages.
func (c *Client) ListComics(ctx context.Context, search string, limit, offset int) ([]models.Comic, int, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/comics"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}
	var comics []models.Comic
	if err := decodeData(env, &comics, "comics"); err != nil {
		return nil, 0, err
	}
	total := len(comics)
	if env.Count != nil {
		total = *env.Count
	}
	return comics, total, nil
}

// GetComic fetches one comic with its chapter list and review summary.
func (c *Client) GetComic(ctx context.Context, id string) (*models.ComicDetail, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/comics/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var detail models.ComicDetail
	if err := decodeData(env, &detail, "comic"); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetPages fetches a chapter's pages ordered by page number.
func (c *Client) GetPages(ctx context.Context, chapterID string) ([]models.Page, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/chapters/"+url.PathEscape(chapterID)+"/pages", nil)
	if err != nil {
		return nil, err
	}
	var pages []models.Page
	if err := decodeData(env, &pages, "pages"); err != nil {
		return nil, err
	}
	return pages, nil
}

// Stats fetches catalog-wide counters.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/stats", nil)
	if err != nil {
		return nil, err
	}
	var st models.Stats
	if err := decodeData(env, &st, "stats"); err != nil {
		return nil, err
	}
	return &st, nil
}

// Health pings the API.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/health", nil)
	return err
}

// UpsertProgress writes a reading position and returns the row the server
// kept, which may be a newer one than u when the write lost a race.
func (c *Client) UpsertProgress(ctx context.Context, u Update) (*models.ReadingProgress, error) {
	if !c.Authenticated() {
		return nil, ErrAuthRequired
	}
	env, err := c.do(ctx, http.MethodPut, "/api/users/progress", u)
	if err != nil {
		return nil, err
	}
	var p models.ReadingProgress
	if err := decodeData(env, &p, "progress"); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProgress fetches the saved position for one comic, ErrNotFound when the
// user never opened it.
func (c *Client) GetProgress(ctx context.Context, comicID string) (*models.ReadingProgress, error) {
	if !c.Authenticated() {
		return nil, ErrAuthRequired
	}
	env, err := c.do(ctx, http.MethodGet, "/api/users/progress/"+url.PathEscape(comicID), nil)
	if err != nil {
		return nil, err
	}
	var p models.ReadingProgress
	if err := decodeData(env, &p, "progress"); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProgress drops the saved position for one comic.
func (c *Client) DeleteProgress(ctx context.Context, comicID string) error {
	if !c.Authenticated() {
		return ErrAuthRequired
	}
	_, err := c.do(ctx, http.MethodDelete, "/api/users/progress/"+url.PathEscape(comicID), nil)
	return err
}

// Library fetches every comic the user has progress in, most recent first.
func (c *Client) Library(ctx context.Context) ([]models.LibraryEntry, error) {
	if !c.Authenticated() {
		return nil, ErrAuthRequired
	}
	env, err := c.do(ctx, http.MethodGet, "/api/users/library", nil)
	if err != nil {
		return nil, err
	}
	var entries []models.LibraryEntry
	if err := decodeData(env, &entries, "library"); err != nil {
		return nil, err
	}
	return entries, nil
}

// History fetches the progress trail, newest first. comicID narrows it to one
// comic when non-empty.
func (c *Client) History(ctx context.Context, comicID string, limit int) ([]models.ProgressEntry, error) {
	if !c.Authenticated() {
		return nil, ErrAuthRequired
	}
	q := url.Values{}
	if comicID != "" {
		q.Set("comic_id", comicID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/users/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var entries []models.ProgressEntry
	if err := decodeData(env, &entries, "history"); err != nil {
		return nil, err
	}
	return entries, nil
}

type authPayload struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (c *Client) signIn(ctx context.Context, path string, payload any) (*User, error) {
	env, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	var ap authPayload
	if err := decodeData(env, &ap, "auth"); err != nil {
		return nil, err
	}
	if ap.User == nil || ap.Token == "" {
		return nil, fmt.Errorf("%w: incomplete auth response", ErrBackend)
	}
	if err := saveToken(c.tokenPath, ap.Token); err != nil {
		return nil, fmt.Errorf("%w: save token: %v", ErrBackend, err)
	}
	c.setToken(ap.Token)
	c.setUser(ap.User)
	return ap.User, nil
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, username, email, password string) (*User, error) {
	return c.signIn(ctx, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	return c.signIn(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// SignOut revokes the token server-side, clears it locally and fires the
// auth-change callback with nil. Local state is dropped even when the revoke
// call fails.
func (c *Client) SignOut(ctx context.Context) error {
	var revokeErr error
	if c.Authenticated() {
		if _, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil); err != nil && !errors.Is(err, ErrAuthRequired) {
			revokeErr = err
		}
	}
	if err := clearToken(c.tokenPath); err != nil {
		return fmt.Errorf("%w: clear token: %v", ErrBackend, err)
	}
	c.setToken("")
	c.setUser(nil)
	return revokeErr
}

// CurrentUser asks the server who the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if !c.Authenticated() {
		return nil, ErrAuthRequired
	}
	env, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := decodeData(env, &u, "user"); err != nil {
		return nil, err
	}
	return &u, nil
}
