package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestClientNew(t *testing.T) {
	c, err := New("https://example.com/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.BaseURL != "https://example.com" {
		t.Errorf("expected trailing slash trimmed, got '%s'", c.BaseURL)
	}
	if c.HTTPClient == nil || c.HTTPClient.Jar == nil {
		t.Fatal("expected HTTP client with cookie jar")
	}
	if c.IsAuthenticated() {
		t.Error("expected new client to not be authenticated")
	}
}

func TestSetToken(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("token"); err == nil {
			seen = ck.Value
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"userid":"alice","username":"Alice"}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c.SetToken("abc")
	if c.Token() != "abc" {
		t.Fatalf("expected token abc, got %q", c.Token())
	}
	user, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if seen != "abc" {
		t.Fatalf("expected cookie to be sent, got %q", seen)
	}
	if user.UserID != "alice" {
		t.Fatalf("expected alice, got %q", user.UserID)
	}
}

func TestLoginStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.PostForm.Get("userid") {
		case "ghost":
			w.WriteHeader(http.StatusNotFound)
		case "alice":
			if r.PostForm.Get("pw") != "right" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "token", Value: "jwt", Path: "/"})
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"user": map[string]string{"userid": "alice"}})
		}
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	ctx := context.Background()
	if _, err := c.Login(ctx, "ghost", "x"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if _, err := c.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if _, err := c.Login(ctx, "alice", "right"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if c.Token() != "jwt" {
		t.Fatalf("expected session cookie in jar, got %q", c.Token())
	}
}

func TestRedirectsAreNotFollowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	_, err := c.Feed(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusFound {
		t.Fatalf("expected APIError with 302, got %v", err)
	}
}

func TestCreatePostSendsMultipart(t *testing.T) {
	img := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(img, []byte("png"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fh := r.MultipartForm.File["postImg"]
		if r.FormValue("title") != "Hello" || len(fh) != 1 || fh[0].Filename != "pic.png" {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"title":"Hello","imagePath":"/uploads/x.png"}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	post, err := c.CreatePost(context.Background(), PostInput{Title: "Hello", Content: "World", ImageFile: img})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.ID != 7 || post.ImagePath != "/uploads/x.png" {
		t.Fatalf("unexpected post %+v", post)
	}
}
