package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inkwell-blog/inkwell/internal/client"
	"github.com/inkwell-blog/inkwell/internal/model"

	"github.com/urfave/cli/v2"
)

// CLIConfig holds the client session persisted to disk.
type CLIConfig struct {
	BaseURL string `json:"base_url"`
	UserID  string `json:"userid"`
	Token   string `json:"token"`
}

var urlFlag = &cli.StringFlag{
	Name:    "url",
	Usage:   "Inkwell server URL",
	Value:   "http://localhost:8080",
	EnvVars: []string{"INKWELL_URL"},
}

func clientCommands() []*cli.Command {
	postFlag := &cli.Int64Flag{Name: "post", Aliases: []string{"p"}, Usage: "post id", Required: true}
	return []*cli.Command{
		{
			Name:  "signup",
			Usage: "create an account and sign in",
			Flags: []cli.Flag{
				urlFlag,
				&cli.StringFlag{Name: "userid", Required: true},
				&cli.StringFlag{Name: "pw", Required: true, EnvVars: []string{"INKWELL_PW"}},
				&cli.StringFlag{Name: "name", Usage: "display name", Required: true},
			},
			Action: cmdSignup,
		},
		{
			Name:  "login",
			Usage: "sign in and save the session",
			Flags: []cli.Flag{
				urlFlag,
				&cli.StringFlag{Name: "userid", Required: true},
				&cli.StringFlag{Name: "pw", Required: true, EnvVars: []string{"INKWELL_PW"}},
			},
			Action: cmdLogin,
		},
		{
			Name:   "logout",
			Usage:  "end the saved session",
			Action: cmdLogout,
		},
		{
			Name:    "post",
			Aliases: []string{"publish"},
			Usage:   "publish a post",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "title", Required: true},
				&cli.StringFlag{Name: "content", Required: true},
				&cli.StringFlag{Name: "image", Usage: "path to an image to attach"},
			},
			Action: cmdPost,
		},
		{
			Name:  "edit",
			Usage: "edit one of your posts",
			Flags: []cli.Flag{
				postFlag,
				&cli.StringFlag{Name: "title", Required: true},
				&cli.StringFlag{Name: "content", Required: true},
				&cli.StringFlag{Name: "image", Usage: "path to a replacement image"},
			},
			Action: cmdEdit,
		},
		{
			Name:    "delete",
			Aliases: []string{"rm"},
			Usage:   "delete one of your posts",
			Flags:   []cli.Flag{postFlag},
			Action:  cmdDelete,
		},
		{
			Name:  "comment",
			Usage: "comment on a post",
			Flags: []cli.Flag{
				postFlag,
				&cli.StringFlag{Name: "text", Required: true},
			},
			Action: cmdComment,
		},
		{
			Name:   "like",
			Usage:  "like a post, or unlike it if you already do",
			Flags:  []cli.Flag{postFlag},
			Action: cmdLike,
		},
		{
			Name:    "read",
			Aliases: []string{"list"},
			Usage:   "read the feed, one post, or one author's posts",
			Flags: []cli.Flag{
				urlFlag,
				&cli.IntFlag{Name: "page", Usage: "feed page (0 shows the landing view)"},
				&cli.Int64Flag{Name: "post", Aliases: []string{"p"}, Usage: "show a single post with comments"},
				&cli.StringFlag{Name: "author", Usage: "list posts by userid"},
			},
			Action: cmdRead,
		},
		{
			Name:    "status",
			Aliases: []string{"whoami"},
			Usage:   "show the saved session",
			Action:  cmdStatus,
		},
	}
}

func cmdSignup(c *cli.Context) error {
	cl, err := client.New(c.String("url"))
	if err != nil {
		return err
	}
	if _, err := cl.Signup(c.Context, c.String("userid"), c.String("pw"), c.String("name")); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	user, err := cl.Login(c.Context, c.String("userid"), c.String("pw"))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := saveSession(cl, user.UserID); err != nil {
		return err
	}
	fmt.Printf("Signed up and signed in as %s (%s)\n", user.UserID, user.Username)
	return nil
}

func cmdLogin(c *cli.Context) error {
	cl, err := client.New(c.String("url"))
	if err != nil {
		return err
	}
	user, err := cl.Login(c.Context, c.String("userid"), c.String("pw"))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := saveSession(cl, user.UserID); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s)\n", user.UserID, user.Username)
	return nil
}

func cmdLogout(c *cli.Context) error {
	cfg, cl, err := loadClient()
	if err != nil {
		return err
	}
	if err := cl.Logout(c.Context); err != nil {
		return err
	}
	cfg.Token = ""
	if err := saveCLIConfig(cfg); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func cmdPost(c *cli.Context) error {
	_, cl, err := loadAuthenticatedClient()
	if err != nil {
		return err
	}
	post, err := cl.CreatePost(c.Context, client.PostInput{
		Title:     c.String("title"),
		Content:   c.String("content"),
		ImageFile: c.String("image"),
	})
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	fmt.Printf("Published post %d: %s\n", post.ID, post.Title)
	return nil
}

func cmdEdit(c *cli.Context) error {
	_, cl, err := loadAuthenticatedClient()
	if err != nil {
		return err
	}
	post, err := cl.EditPost(c.Context, c.Int64("post"), client.PostInput{
		Title:     c.String("title"),
		Content:   c.String("content"),
		ImageFile: c.String("image"),
	})
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	fmt.Printf("Updated post %d\n", post.ID)
	return nil
}

func cmdDelete(c *cli.Context) error {
	_, cl, err := loadAuthenticatedClient()
	if err != nil {
		return err
	}
	if err := cl.DeletePost(c.Context, c.Int64("post")); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Printf("Deleted post %d\n", c.Int64("post"))
	return nil
}

func cmdComment(c *cli.Context) error {
	_, cl, err := loadAuthenticatedClient()
	if err != nil {
		return err
	}
	if err := cl.Comment(c.Context, c.Int64("post"), c.String("text")); err != nil {
		return fmt.Errorf("comment: %w", err)
	}
	fmt.Println("Comment added")
	return nil
}

func cmdLike(c *cli.Context) error {
	_, cl, err := loadAuthenticatedClient()
	if err != nil {
		return err
	}
	result, err := cl.ToggleLike(c.Context, c.Int64("post"))
	if err != nil {
		return fmt.Errorf("like: %w", err)
	}
	verb := "Unliked"
	if result.Liked {
		verb = "Liked"
	}
	fmt.Printf("%s post %d (%d likes)\n", verb, result.PostID, result.Total)
	return nil
}

func cmdRead(c *cli.Context) error {
	cl, err := readClient(c)
	if err != nil {
		return err
	}
	switch {
	case c.Int64("post") > 0:
		detail, err := cl.Post(c.Context, c.Int64("post"))
		if err != nil {
			return err
		}
		printPost(detail.Post)
		fmt.Printf("   %d likes", detail.Like.Total)
		if detail.Liked {
			fmt.Print(" (including you)")
		}
		fmt.Printf("\n\n%s\n\n", detail.Post.Content)
		fmt.Printf("Comments (%d):\n", len(detail.Comments))
		for _, cm := range detail.Comments {
			fmt.Printf("  - %s (%s): %s\n", cm.AuthorName, cm.CreatedAt.Local().Format(time.DateTime), cm.Body)
		}
	case c.String("author") != "":
		list, err := cl.AuthorPosts(c.Context, c.String("author"))
		if err != nil {
			return err
		}
		fmt.Printf("Posts by %s (%d):\n", list.PostUser.Username, len(list.Posts))
		printPosts(list.Posts)
	case c.Int("page") > 0:
		posts, err := cl.Feed(c.Context, c.Int("page"))
		if err != nil {
			return err
		}
		printPosts(posts)
	default:
		landing, err := cl.Landing(c.Context)
		if err != nil {
			return err
		}
		printPosts(landing.Posts)
	}
	return nil
}

func cmdStatus(c *cli.Context) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Server:  %s\n", cfg.BaseURL)
	fmt.Printf("User:    %s\n", cfg.UserID)
	if cfg.Token == "" {
		fmt.Println("Session: signed out")
		return nil
	}
	cl, err := client.New(cfg.BaseURL)
	if err != nil {
		return err
	}
	cl.SetToken(cfg.Token)
	if _, err := cl.Me(c.Context); err != nil {
		fmt.Printf("Session: not accepted by server (%v)\n", err)
		return nil
	}
	fmt.Println("Session: valid")
	return nil
}

func printPosts(posts []model.Post) {
	if len(posts) == 0 {
		fmt.Println("No posts.")
		return
	}
	for _, p := range posts {
		printPost(p)
	}
}

func printPost(p model.Post) {
	fmt.Printf("[%d] %s\n", p.ID, p.Title)
	fmt.Printf("   by %s (%s) at %s", p.AuthorName, p.AuthorID, p.CreatedAt.Local().Format(time.DateTime))
	if p.ImagePath != "" {
		fmt.Printf(" [image %s]", p.ImagePath)
	}
	fmt.Println()
}

// ============================================================================
// HELPERS
// ============================================================================

func inkwellDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".inkwell")
}

func cliConfigPath() string {
	return filepath.Join(inkwellDir(), "config.json")
}

func loadCLIConfig() (CLIConfig, error) {
	data, err := os.ReadFile(cliConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return CLIConfig{}, errors.New("not signed in - run 'inkwell login --userid <id> --pw <pw>'")
		}
		return CLIConfig{}, err
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

func saveCLIConfig(cfg CLIConfig) error {
	if err := os.MkdirAll(inkwellDir(), 0700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	return os.WriteFile(cliConfigPath(), data, 0600)
}

func saveSession(cl *client.Client, userID string) error {
	return saveCLIConfig(CLIConfig{BaseURL: cl.BaseURL, UserID: userID, Token: cl.Token()})
}

func loadClient() (CLIConfig, *client.Client, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return CLIConfig{}, nil, err
	}
	cl, err := client.New(cfg.BaseURL)
	if err != nil {
		return CLIConfig{}, nil, err
	}
	if cfg.Token != "" {
		cl.SetToken(cfg.Token)
	}
	return cfg, cl, nil
}

func loadAuthenticatedClient() (CLIConfig, *client.Client, error) {
	cfg, cl, err := loadClient()
	if err != nil {
		return CLIConfig{}, nil, err
	}
	if cfg.Token == "" {
		return CLIConfig{}, nil, errors.New("not signed in - run 'inkwell login'")
	}
	return cfg, cl, nil
}

// readClient prefers the saved session so reads show "liked" state, and
// falls back to an anonymous client for --url.
func readClient(c *cli.Context) (*client.Client, error) {
	if cfg, cl, err := loadClient(); err == nil && (!c.IsSet("url") || strings.TrimRight(c.String("url"), "/") == cfg.BaseURL) {
		return cl, nil
	}
	return client.New(c.String("url"))
}
