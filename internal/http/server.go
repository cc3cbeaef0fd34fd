package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/config"
	"github.com/inkwell-blog/inkwell/internal/feed"
	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/rate"
	"github.com/inkwell-blog/inkwell/internal/store"
	"github.com/inkwell-blog/inkwell/internal/upload"

	_ "github.com/inkwell-blog/inkwell/docs" // swagger docs

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

const multipartMemory = 1 << 20

type Server struct {
	store   store.Store
	auth    *auth.Service
	feed    *feed.Paginator
	uploads *upload.Storage
	limiter rate.Limiter
	cfg     config.Config
	static  http.Handler
	now     func() time.Time
}

func NewServer(st store.Store, authSvc *auth.Service, uploads *upload.Storage, limiter rate.Limiter, cfg config.Config) *Server {
	s := &Server{
		store:   st,
		auth:    authSvc,
		feed:    feed.New(st),
		uploads: uploads,
		limiter: limiter,
		cfg:     cfg,
		now:     time.Now,
	}
	if uploads != nil {
		s.static = http.StripPrefix(upload.URLPrefix, http.FileServer(http.Dir(uploads.Dir)))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if strings.HasPrefix(path, "/swagger/") {
		httpSwagger.WrapHandler.ServeHTTP(w, r)
		return
	}
	if strings.HasPrefix(path, upload.URLPrefix) {
		if s.static == nil || r.Method != http.MethodGet && r.Method != http.MethodHead {
			notFound(w)
			return
		}
		s.static.ServeHTTP(w, r)
		return
	}

	r = s.auth.Attach(r)
	// net/http only removes the temp files of the request it dispatched.
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	// Segments stay escaped so a userid may carry "/" or "%".
	segments := splitPath(r.URL.EscapedPath())

	switch {
	case len(segments) == 0:
		s.route(w, r, http.MethodGet, s.handleHome)
	case len(segments) == 1 && segments[0] == "feed":
		s.route(w, r, http.MethodGet, s.handleFeed)
	case len(segments) == 1 && segments[0] == "signup":
		s.route(w, r, http.MethodPost, s.handleSignup)
	case len(segments) == 1 && segments[0] == "login":
		s.route(w, r, http.MethodPost, s.handleLogin)
	case len(segments) == 1 && segments[0] == "logout":
		s.route(w, r, http.MethodGet, s.handleLogout)
	case len(segments) == 1 && segments[0] == "mypage":
		s.route(w, r, http.MethodGet, s.handleMyPage)
	case len(segments) == 1 && segments[0] == "healthz":
		s.route(w, r, http.MethodGet, s.handleHealth)
	case len(segments) == 2 && segments[0] == "api" && segments[1] == "openapi.json":
		s.route(w, r, http.MethodGet, s.serveOpenAPIJSON)
	case len(segments) == 1 && segments[0] == "posts":
		s.route(w, r, http.MethodPost, s.handleCreatePost)
	case len(segments) == 2 && segments[0] == "posts":
		s.routeID(w, r, http.MethodGet, segments[1], s.handleGetPost)
	case len(segments) == 3 && segments[0] == "posts" && segments[2] == "comments":
		s.routeID(w, r, http.MethodPost, segments[1], s.handleCreateComment)
	case len(segments) == 3 && segments[0] == "posts" && segments[2] == "like":
		s.routeID(w, r, http.MethodPost, segments[1], s.handleToggleLike)
	case len(segments) == 3 && segments[0] == "posts" && segments[2] == "edit":
		s.routeID(w, r, http.MethodPost, segments[1], s.handleEditPost)
	case len(segments) == 3 && segments[0] == "posts" && segments[2] == "delete":
		s.routeID(w, r, http.MethodPost, segments[1], s.handleDeletePost)
	case len(segments) == 3 && segments[0] == "users" && segments[2] == "posts":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleUserPosts(w, r, segments[1])
	default:
		notFound(w)
	}
}

func (s *Server) route(w http.ResponseWriter, r *http.Request, method string, h http.HandlerFunc) {
	if r.Method != method {
		methodNotAllowed(w)
		return
	}
	h(w, r)
}

func (s *Server) routeID(w http.ResponseWriter, r *http.Request, method, idStr string, h func(http.ResponseWriter, *http.Request, int64)) {
	if r.Method != method {
		methodNotAllowed(w)
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, errors.New("invalid post id"))
		return
	}
	h(w, r, id)
}

// handleHome godoc
//
//	@Summary		Landing view
//	@Description	The six newest posts and the signed-in user, if any.
//	@Tags			Feed
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}	"posts and user"
//	@Router			/ [get]
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	posts, err := s.feed.Landing(r.Context())
	if err != nil {
		s.storageError(w, "landing", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts": nonNil(posts),
		"user":  auth.UserFromContext(r.Context()),
	})
}

// handleFeed godoc
//
//	@Summary		Feed page
//	@Description	Three posts per page. Page 1 starts after the third newest post.
//	@Tags			Feed
//	@Produce		json
//	@Param			page	query		int	false	"Page number"	default(1)
//	@Success		200		{array}		model.Post
//	@Router			/feed [get]
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	page := feed.ParsePage(r.URL.Query().Get("page"))
	posts, err := s.feed.Page(r.Context(), page)
	if err != nil {
		s.storageError(w, "feed page", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(posts))
}

// handleSignup godoc
//
//	@Summary		Create an account
//	@Tags			Accounts
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			userid		formData	string	true	"Login id"
//	@Param			pw			formData	string	true	"Password"
//	@Param			pw2			formData	string	true	"Password confirmation"
//	@Param			username	formData	string	true	"Display name"
//	@Success		302
//	@Success		201	{object}	model.User
//	@Failure		400	{object}	map[string]string	"Missing field or password mismatch"
//	@Failure		409	{object}	map[string]string	"userid taken"
//	@Router			/signup [post]
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	user, err := s.auth.Register(r.Context(), form.Get("userid"), form.Get("pw"), form.Get("pw2"), form.Get("username"))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrValidation):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, store.ErrDuplicateUser):
			writeError(w, http.StatusConflict, errors.New("userid already taken"))
		default:
			s.storageError(w, "signup", err)
		}
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, user)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// handleLogin godoc
//
//	@Summary		Sign in
//	@Description	Sets the session cookie. Unknown users get 404 and wrong passwords 401, both with an empty body.
//	@Tags			Accounts
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			userid	formData	string	true	"Login id"
//	@Param			pw		formData	string	true	"Password"
//	@Success		302
//	@Success		200	{object}	map[string]interface{}	"user and token"
//	@Failure		400	{object}	map[string]string	"Missing field"
//	@Failure		401
//	@Failure		404
//	@Failure		429	{object}	map[string]string	"Rate limited"
//	@Router			/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, rate.PerMinute("login", s.cfg.RateLimits.LoginPerMinute)) {
		return
	}
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	userID, pw := strings.TrimSpace(form.Get("userid")), form.Get("pw")
	if userID == "" || pw == "" {
		writeError(w, http.StatusBadRequest, errors.New("userid and pw required"))
		return
	}
	token, user, err := s.auth.Login(r.Context(), userID, pw)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnknownUser):
			w.WriteHeader(http.StatusNotFound)
		case errors.Is(err, auth.ErrWrongPassword):
			w.WriteHeader(http.StatusUnauthorized)
		default:
			s.storageError(w, "login", err)
		}
		return
	}
	http.SetCookie(w, s.auth.Cookie(token))
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout godoc
//
//	@Summary	Sign out
//	@Tags		Accounts
//	@Success	302
//	@Router		/logout [get]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.auth.ClearCookie())
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleMyPage godoc
//
//	@Summary	Current user
//	@Tags		Accounts
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}	"user"
//	@Failure	401	{object}	map[string]string		"Sign in required"
//	@Router		/mypage [get]
func (s *Server) handleMyPage(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.PostCounter(r.Context())
	if err != nil {
		log.Printf("http: health: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "postsCreated": total})
}

// handleCreatePost godoc
//
//	@Summary		Publish a post
//	@Tags			Posts
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		CookieAuth
//	@Param			title	formData	string	true	"Title"
//	@Param			content	formData	string	true	"Body"
//	@Param			postImg	formData	file	false	"Image"
//	@Success		302
//	@Success		201	{object}	model.Post
//	@Failure		400	{object}	map[string]string	"Validation error"
//	@Failure		401	{object}	map[string]string	"Sign in required"
//	@Failure		429	{object}	map[string]string	"Rate limited"
//	@Router			/posts [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, rate.PerMinute("post", s.cfg.RateLimits.PostPerMinute)) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	title, content, imagePath, ok := s.readPostForm(w, r)
	if !ok {
		return
	}

	post := model.Post{
		Title:      title,
		Content:    content,
		CreatedAt:  s.now().UTC(),
		AuthorID:   user.UserID,
		AuthorName: user.Username,
		ImagePath:  imagePath,
	}
	id, err := s.store.CreatePost(r.Context(), &post)
	if err != nil {
		s.storageError(w, "create post", err)
		return
	}
	post.ID = id
	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, post)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleGetPost godoc
//
//	@Summary		Read a post
//	@Description	Post, like ledger, whether the caller liked it, and comments newest first.
//	@Tags			Posts
//	@Produce		json
//	@Param			id	path		int	true	"Post ID"
//	@Success		200	{object}	map[string]interface{}	"post detail"
//	@Failure		404	{object}	map[string]string		"Post not found"
//	@Router			/posts/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	post, ok := s.loadPost(w, r, id)
	if !ok {
		return
	}
	like, err := s.store.GetLike(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.storageError(w, "get like", err)
			return
		}
		like = model.Like{PostID: id, Members: []string{}}
	}
	comments, err := s.store.ListCommentsByPost(ctx, id)
	if err != nil {
		s.storageError(w, "list comments", err)
		return
	}
	user := auth.UserFromContext(ctx)
	writeJSON(w, http.StatusOK, map[string]any{
		"post":     post,
		"like":     like,
		"liked":    user != nil && like.Has(user.UserID),
		"comments": nonNil(comments),
		"user":     user,
	})
}

// handleCreateComment godoc
//
//	@Summary	Comment on a post
//	@Tags		Comments
//	@Accept		json
//	@Accept		x-www-form-urlencoded
//	@Produce	json
//	@Security	CookieAuth
//	@Param		id		path		int					true	"Post ID"
//	@Param		comment	body		object{comment=string}	true	"Comment"
//	@Success	200		{object}	map[string]bool		"success"
//	@Failure	400		{object}	map[string]string	"Empty comment"
//	@Failure	401		{object}	map[string]string	"Sign in required"
//	@Failure	404		{object}	map[string]string	"Post not found"
//	@Failure	429		{object}	map[string]string	"Rate limited"
//	@Router		/posts/{id}/comments [post]
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request, id int64) {
	if !s.allowRateLimit(w, r, rate.PerMinute("comment", s.cfg.RateLimits.CommentPerMinute)) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	body := strings.TrimSpace(form.Get("comment"))
	if body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "comment required"})
		return
	}
	if _, ok := s.loadPost(w, r, id); !ok {
		return
	}

	comment := model.Comment{
		PostID:     id,
		Body:       body,
		CreatedAt:  s.now().UTC(),
		AuthorID:   user.UserID,
		AuthorName: user.Username,
	}
	if err := s.store.CreateComment(r.Context(), &comment); err != nil {
		log.Printf("http: create comment on %d: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]bool{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleToggleLike godoc
//
//	@Summary		Like or unlike a post
//	@Description	Adds the caller to the post's likers, or removes them if already present.
//	@Tags			Likes
//	@Produce		json
//	@Security		CookieAuth
//	@Param			id	path		int	true	"Post ID"
//	@Success		302
//	@Success		200	{object}	model.LikeResult
//	@Failure		401	{object}	map[string]string	"Sign in required"
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Failure		409	{object}	map[string]string	"Concurrent toggle, retry"
//	@Failure		429	{object}	map[string]string	"Rate limited"
//	@Router			/posts/{id}/like [post]
func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request, id int64) {
	if !s.allowRateLimit(w, r, rate.PerMinute("like", s.cfg.RateLimits.LikePerMinute)) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if _, ok := s.loadPost(w, r, id); !ok {
		return
	}
	result, err := s.store.ToggleLike(r.Context(), id, user.UserID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, errors.New("post not found"))
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, errors.New("like changed concurrently, retry"))
		default:
			s.storageError(w, "toggle like", err)
		}
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/posts/"+strconv.FormatInt(id, 10), http.StatusFound)
}

// handleEditPost godoc
//
//	@Summary		Edit your post
//	@Description	Replaces title and content and stamps the edit time. Without a new image the current one is kept.
//	@Tags			Posts
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		CookieAuth
//	@Param			id		path		int		true	"Post ID"
//	@Param			title	formData	string	true	"Title"
//	@Param			content	formData	string	true	"Body"
//	@Param			postImg	formData	file	false	"Replacement image"
//	@Success		302
//	@Success		200	{object}	model.Post
//	@Failure		401	{object}	map[string]string	"Sign in required"
//	@Failure		403	{object}	map[string]string	"Not your post"
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Router			/posts/{id}/edit [post]
func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request, id int64) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	post, ok := s.loadOwnPost(w, r, id, user)
	if !ok {
		return
	}
	title, content, imagePath, ok := s.readPostForm(w, r)
	if !ok {
		return
	}
	if imagePath == "" {
		imagePath = post.ImagePath
	}

	edit := model.PostEdit{
		Title:     title,
		Content:   content,
		CreatedAt: s.now().UTC(),
		ImagePath: imagePath,
	}
	if err := s.store.UpdatePost(r.Context(), id, edit); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("post not found"))
			return
		}
		s.storageError(w, "update post", err)
		return
	}
	if wantsJSON(r) {
		post.Title, post.Content, post.CreatedAt, post.ImagePath = edit.Title, edit.Content, edit.CreatedAt, edit.ImagePath
		writeJSON(w, http.StatusOK, post)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleDeletePost godoc
//
//	@Summary	Delete your post
//	@Tags		Posts
//	@Produce	json
//	@Security	CookieAuth
//	@Param		id	path	int	true	"Post ID"
//	@Success	302
//	@Failure	401	{object}	map[string]string	"Sign in required"
//	@Failure	403	{object}	map[string]string	"Not your post"
//	@Failure	404	{object}	map[string]string	"Post not found"
//	@Router		/posts/{id}/delete [post]
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, id int64) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if _, ok := s.loadOwnPost(w, r, id, user); !ok {
		return
	}
	if err := s.store.DeletePost(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("post not found"))
			return
		}
		s.storageError(w, "delete post", err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleUserPosts godoc
//
//	@Summary	Posts by author
//	@Tags		Posts
//	@Produce	json
//	@Param		userid	path		string	true	"Author login id"
//	@Success	200		{object}	map[string]interface{}	"posts, postUser and user"
//	@Failure	404		{object}	map[string]string		"User not found"
//	@Router		/users/{userid}/posts [get]
func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request, rawUserID string) {
	ctx := r.Context()
	userID, err := url.PathUnescape(rawUserID)
	if err != nil || userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("invalid userid"))
		return
	}
	author, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("user not found"))
			return
		}
		s.storageError(w, "get author", err)
		return
	}
	posts, err := s.feed.ByAuthor(ctx, userID)
	if err != nil {
		s.storageError(w, "list author posts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts":    nonNil(posts),
		"postUser": author,
		"user":     auth.UserFromContext(ctx),
	})
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(doc))
}

func (s *Server) loadPost(w http.ResponseWriter, r *http.Request, id int64) (model.Post, bool) {
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("post not found"))
			return model.Post{}, false
		}
		s.storageError(w, "get post", err)
		return model.Post{}, false
	}
	return post, true
}

func (s *Server) loadOwnPost(w http.ResponseWriter, r *http.Request, id int64, user *model.User) (model.Post, bool) {
	post, ok := s.loadPost(w, r, id)
	if !ok {
		return model.Post{}, false
	}
	if post.AuthorID != user.UserID {
		writeError(w, http.StatusForbidden, errors.New("you can only change your own posts"))
		return model.Post{}, false
	}
	return post, true
}

// readPostForm reads title, content and the optional postImg upload. The
// image path is empty when no file was sent.
func (s *Server) readPostForm(w http.ResponseWriter, r *http.Request) (title, content, imagePath string, ok bool) {
	form, ok := s.readForm(w, r)
	if !ok {
		return "", "", "", false
	}
	title = strings.TrimSpace(form.Get("title"))
	content = strings.TrimSpace(form.Get("content"))
	if title == "" || content == "" {
		writeError(w, http.StatusBadRequest, errors.New("title and content required"))
		return "", "", "", false
	}
	fh := formFile(r, "postImg")
	if fh == nil {
		return title, content, "", true
	}
	if s.uploads == nil {
		writeError(w, http.StatusBadRequest, errors.New("uploads are disabled"))
		return "", "", "", false
	}
	imagePath, err := s.uploads.Save(fh)
	if err != nil {
		if errors.Is(err, upload.ErrUnsupportedType) {
			writeError(w, http.StatusBadRequest, err)
			return "", "", "", false
		}
		s.storageError(w, "save upload", err)
		return "", "", "", false
	}
	return title, content, imagePath, true
}

// readForm accepts urlencoded, multipart and flat JSON object bodies.
func (s *Server) readForm(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	var err error
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body map[string]string
		if err = readJSON(r.Body, &body); err == nil {
			form := url.Values{}
			for k, v := range body {
				form.Set(k, v)
			}
			return form, true
		}
	case "multipart/form-data":
		err = r.ParseMultipartForm(multipartMemory)
	default:
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return r.PostForm, true
}

func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 || files[0].Filename == "" {
		return nil
	}
	return files[0]
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, rule rate.Rule) bool {
	if ok, retry := rate.Check(s.limiter, rule, s.clientIP(r)); !ok {
		writeRateLimit(w, retry)
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, errors.New("sign in required"))
		return nil, false
	}
	return user, true
}

// storageError logs err and answers 500 without leaking details.
func (s *Server) storageError(w http.ResponseWriter, op string, err error) {
	log.Printf("http: %s: %v", op, err)
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

// clientIP keys rate limits. X-Forwarded-For is trusted as is, so the server
// must sit behind a proxy that overwrites it.
func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json")
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	secs := int(retry.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": secs,
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
