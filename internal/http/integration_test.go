package httpapp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/inkwell-blog/inkwell/internal/model"
)

// browser is a cookie-keeping HTTP client that does not follow redirects.
type browser struct {
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, ts *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	c := &http.Client{
		Transport:     ts.Client().Transport,
		Jar:           jar,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	return &browser{base: ts.URL, client: c}
}

func (b *browser) send(t *testing.T, method, path string, form url.Values, jsonReply bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, b.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if jsonReply {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := b.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readInto(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		t.Fatalf("json parse %q: %v", body, err)
	}
}

func (b *browser) signupAndLogin(t *testing.T, userID, username string) {
	t.Helper()
	form := url.Values{"userid": {userID}, "pw": {"secret"}, "pw2": {"secret"}, "username": {username}}
	if resp := b.send(t, http.MethodPost, "/signup", form, false); resp.StatusCode != http.StatusFound {
		t.Fatalf("signup %s: status %d", userID, resp.StatusCode)
	}
	resp := b.send(t, http.MethodPost, "/login", url.Values{"userid": {userID}, "pw": {"secret"}}, false)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("login %s: status %d", userID, resp.StatusCode)
	}
}

func TestPublishAndLikeFlow(t *testing.T) {
	env := newTestEnv(t, testConfig(), allowAllLimiter{})
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	alice := newBrowser(t, ts)
	alice.signupAndLogin(t, "alice", "Alice")

	resp := alice.send(t, http.MethodPost, "/posts", url.Values{"title": {"Hello"}, "content": {"First post"}}, false)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("create post: status %d", resp.StatusCode)
	}

	var home struct {
		Posts []model.Post `json:"posts"`
		User  *model.User  `json:"user"`
	}
	readInto(t, alice.send(t, http.MethodGet, "/", nil, true), &home)
	if len(home.Posts) == 0 || home.Posts[0].Title != "Hello" {
		t.Fatalf("expected new post first, got %+v", home.Posts)
	}
	if home.User == nil || home.User.UserID != "alice" {
		t.Fatalf("expected alice on the landing view, got %+v", home.User)
	}
	postID := home.Posts[0].ID

	bob := newBrowser(t, ts)
	bob.signupAndLogin(t, "bob", "Bob")
	likePath := fmt.Sprintf("/posts/%d/like", postID)

	var result model.LikeResult
	readInto(t, bob.send(t, http.MethodPost, likePath, nil, true), &result)
	if result.Total != 1 || !result.Liked {
		t.Fatalf("expected like, got %+v", result)
	}

	var detail struct {
		Like  model.Like `json:"like"`
		Liked bool       `json:"liked"`
	}
	readInto(t, bob.send(t, http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil, true), &detail)
	if !detail.Liked || detail.Like.Total != 1 || len(detail.Like.Members) != 1 || detail.Like.Members[0] != "bob" {
		t.Fatalf("unexpected ledger %+v", detail)
	}

	readInto(t, bob.send(t, http.MethodPost, likePath, nil, true), &result)
	if result.Total != 0 || result.Liked {
		t.Fatalf("expected unlike, got %+v", result)
	}

	if resp := bob.send(t, http.MethodGet, "/logout", nil, false); resp.StatusCode != http.StatusFound {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}
	if resp := bob.send(t, http.MethodPost, likePath, nil, true); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestConcurrentLikesOverHTTP(t *testing.T) {
	env := newTestEnv(t, testConfig(), allowAllLimiter{})
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	id := env.createPost(t, "alice", "Popular", time.Now())
	path := fmt.Sprintf("/posts/%d/like", id)

	const users = 12
	browsers := make([]*browser, users)
	for i := range browsers {
		browsers[i] = newBrowser(t, ts)
		browsers[i].signupAndLogin(t, fmt.Sprintf("user%d", i), fmt.Sprintf("User %d", i))
	}

	var wg sync.WaitGroup
	codes := make([]int, users)
	for i, b := range browsers {
		wg.Add(1)
		go func(i int, b *browser) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, b.base+path, nil)
			req.Header.Set("Accept", "application/json")
			resp, err := b.client.Do(req)
			if err != nil {
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i, b)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Fatalf("user%d: status %d", i, code)
		}
	}
	var detail struct {
		Like model.Like `json:"like"`
	}
	readInto(t, browsers[0].send(t, http.MethodGet, fmt.Sprintf("/posts/%d", id), nil, true), &detail)
	if detail.Like.Total != users || len(detail.Like.Members) != users {
		t.Fatalf("expected %d likes, got total %d with %d members", users, detail.Like.Total, len(detail.Like.Members))
	}
}
