// Package client provides a Go client for the Inkwell HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell-blog/inkwell/internal/model"
)

var (
	// ErrAlreadyRegistered is returned by Signup when the userid is taken.
	ErrAlreadyRegistered = errors.New("userid already registered")
	// ErrUnknownUser is returned by Login for a userid with no account.
	ErrUnknownUser = errors.New("unknown user")
	// ErrWrongPassword is returned by Login when the password does not match.
	ErrWrongPassword = errors.New("wrong password")
	// ErrNotSignedIn is returned when the server answers 401.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNotFound is returned when the server answers 404.
	ErrNotFound = errors.New("not found")
)

// DefaultCookieName is the session cookie the server sets unless configured
// otherwise.
const DefaultCookieName = "token"

// APIError is any other non-success answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inkwell: status %d", e.Status)
	}
	return fmt.Sprintf("inkwell: status %d: %s", e.Status, e.Message)
}

// Client is an Inkwell API client. The session cookie lives in the client's
// cookie jar.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	CookieName string
	base       *url.URL
}

// Landing is the home view.
type Landing struct {
	Posts []model.Post `json:"posts"`
	User  *model.User  `json:"user"`
}

// PostDetail is a single post with its likes and comments.
type PostDetail struct {
	Post     model.Post      `json:"post"`
	Like     model.Like      `json:"like"`
	Liked    bool            `json:"liked"`
	Comments []model.Comment `json:"comments"`
	User     *model.User     `json:"user"`
}

// AuthorPosts is the list of one author's posts.
type AuthorPosts struct {
	Posts    []model.Post `json:"posts"`
	PostUser model.User   `json:"postUser"`
	User     *model.User  `json:"user"`
}

// PostInput is the form for creating or editing a post. ImageFile, when
// set, is a local path uploaded as the post image.
type PostInput struct {
	Title     string
	Content   string
	ImageFile string
}

// New creates a client for baseURL with an empty cookie jar. Redirects are
// not followed so the caller sees the server's answer.
func New(baseURL string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: base.String(),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		CookieName: DefaultCookieName,
		base:       base,
	}, nil
}

// Token returns the current session token, or "" when signed out.
func (c *Client) Token() string {
	for _, ck := range c.HTTPClient.Jar.Cookies(c.base) {
		if ck.Name == c.CookieName {
			return ck.Value
		}
	}
	return ""
}

// SetToken restores a session saved from an earlier Token call.
func (c *Client) SetToken(token string) {
	c.HTTPClient.Jar.SetCookies(c.base, []*http.Cookie{{Name: c.CookieName, Value: token, Path: "/"}})
}

// IsAuthenticated reports whether the client holds a session token.
func (c *Client) IsAuthenticated() bool {
	return c.Token() != ""
}

// Signup creates an account.
func (c *Client) Signup(ctx context.Context, userID, pw, username string) (model.User, error) {
	form := url.Values{"userid": {userID}, "pw": {pw}, "pw2": {pw}, "username": {username}}
	resp, err := c.postForm(ctx, "/signup", form)
	if err != nil {
		return model.User{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict {
		return model.User{}, ErrAlreadyRegistered
	}
	var user model.User
	if err := decode(resp, http.StatusCreated, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Login signs in and keeps the session cookie.
func (c *Client) Login(ctx context.Context, userID, pw string) (model.User, error) {
	resp, err := c.postForm(ctx, "/login", url.Values{"userid": {userID}, "pw": {pw}})
	if err != nil {
		return model.User{}, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNotFound:
		return model.User{}, ErrUnknownUser
	case http.StatusUnauthorized:
		return model.User{}, ErrWrongPassword
	}
	var result struct {
		User model.User `json:"user"`
	}
	if err := decode(resp, http.StatusOK, &result); err != nil {
		return model.User{}, err
	}
	return result.User, nil
}

// Logout clears the session on the server and in the jar.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/logout", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, http.StatusOK, nil)
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var result struct {
		User model.User `json:"user"`
	}
	if err := c.getJSON(ctx, "/mypage", &result); err != nil {
		return model.User{}, err
	}
	return result.User, nil
}

// Landing fetches the home view.
func (c *Client) Landing(ctx context.Context) (Landing, error) {
	var result Landing
	err := c.getJSON(ctx, "/", &result)
	return result, err
}

// Feed fetches one page of the feed.
func (c *Client) Feed(ctx context.Context, page int) ([]model.Post, error) {
	var posts []model.Post
	err := c.getJSON(ctx, "/feed?page="+strconv.Itoa(page), &posts)
	return posts, err
}

// Post fetches a post with its likes and comments.
func (c *Client) Post(ctx context.Context, id int64) (PostDetail, error) {
	var result PostDetail
	err := c.getJSON(ctx, "/posts/"+strconv.FormatInt(id, 10), &result)
	return result, err
}

// AuthorPosts lists every post by userID.
func (c *Client) AuthorPosts(ctx context.Context, userID string) (AuthorPosts, error) {
	var result AuthorPosts
	err := c.getJSON(ctx, "/users/"+url.PathEscape(userID)+"/posts", &result)
	return result, err
}

// CreatePost publishes a post.
func (c *Client) CreatePost(ctx context.Context, in PostInput) (model.Post, error) {
	var post model.Post
	if err := c.postMultipart(ctx, "/posts", in, http.StatusCreated, &post); err != nil {
		return model.Post{}, err
	}
	return post, nil
}

// EditPost replaces the title and content of one of your posts.
func (c *Client) EditPost(ctx context.Context, id int64, in PostInput) (model.Post, error) {
	var post model.Post
	path := "/posts/" + strconv.FormatInt(id, 10) + "/edit"
	if err := c.postMultipart(ctx, path, in, http.StatusOK, &post); err != nil {
		return model.Post{}, err
	}
	return post, nil
}

// DeletePost removes one of your posts.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	resp, err := c.do(ctx, http.MethodPost, "/posts/"+strconv.FormatInt(id, 10)+"/delete", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, http.StatusOK, nil)
}

// Comment adds a comment to a post.
func (c *Client) Comment(ctx context.Context, id int64, body string) error {
	payload, _ := json.Marshal(map[string]string{"comment": body})
	resp, err := c.do(ctx, http.MethodPost, "/posts/"+strconv.FormatInt(id, 10)+"/comments", bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, http.StatusOK, nil)
}

// ToggleLike likes the post, or unlikes it if already liked.
func (c *Client) ToggleLike(ctx context.Context, id int64) (model.LikeResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/posts/"+strconv.FormatInt(id, 10)+"/like", nil, "")
	if err != nil {
		return model.LikeResult{}, err
	}
	defer resp.Body.Close()
	var result model.LikeResult
	if err := decode(resp, http.StatusOK, &result); err != nil {
		return model.LikeResult{}, err
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, http.StatusOK, dest)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *Client) postMultipart(ctx context.Context, path string, in PostInput, want int, dest any) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("title", in.Title)
	_ = mw.WriteField("content", in.Content)
	if in.ImageFile != "" {
		if err := attachFile(mw, "postImg", in.ImageFile); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, path, &body, mw.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, want, dest)
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.HTTPClient.Do(req)
}

// decode checks the status and unmarshals the body into dest, if non-nil.
func decode(resp *http.Response, want int, dest any) error {
	if resp.StatusCode != want {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(b, &payload)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return ErrNotSignedIn
		case http.StatusNotFound:
			return ErrNotFound
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
