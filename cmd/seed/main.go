package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/inkwell-blog/inkwell/internal/client"

	"github.com/urfave/cli/v2"
)

var writers = []struct {
	userID string
	name   string
}{
	{"ada", "Ada"},
	{"grace", "Grace"},
	{"linus", "Linus"},
	{"barbara", "Barbara"},
	{"ken", "Ken"},
}

var posts = []struct {
	title   string
	content string
}{
	{"Hello, Inkwell", "First post on a fresh install. Everything seems to work."},
	{"Notes on writing every day", "Small habits beat big plans. Ten minutes is enough to start."},
	{"What I learned shipping a side project", "Scope down twice, then ship. The rest is maintenance."},
	{"A short review of my favorite keyboard", "Tactile switches, no RGB, and a cable that stays put."},
	{"Weekend hike photos", "Clear skies on the ridge. More pictures next time."},
	{"Reading list for the autumn", "Three novels, one book on typography, one on databases."},
	{"Why I moved my blog here", "Fewer features, faster pages, and comments that are readable."},
	{"Debugging a flaky test", "It was the clock. It is always the clock."},
	{"Coffee brewing ratios", "Sixteen to one for pour-over, adjust by taste."},
	{"On naming things", "Good names make the reader's job small."},
}

var comments = []string{
	"Great post, thanks for sharing.",
	"I had the same experience last year.",
	"Could you write a follow-up on this?",
	"Not sure I agree, but it's a good read.",
	"Bookmarked.",
	"This is exactly what I needed today.",
	"Nice photos!",
	"How long did this take you?",
}

const seedPassword = "inkwell-seed"

func main() {
	app := &cli.App{
		Name:  "seed",
		Usage: "fill an Inkwell server with sample writers, posts, comments and likes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Inkwell server URL"},
			&cli.Int64Flag{Name: "seed", Usage: "random seed (default: current time)"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	baseURL := c.String("url")
	seed := c.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	ctx := c.Context

	log.Printf("Seeding %s...\n", baseURL)

	var clients []*client.Client
	for _, w := range writers {
		cl, err := client.New(baseURL)
		if err != nil {
			return err
		}
		if _, err := cl.Signup(ctx, w.userID, seedPassword, w.name); err != nil && !errors.Is(err, client.ErrAlreadyRegistered) {
			return fmt.Errorf("signup %s: %w", w.userID, err)
		}
		if _, err := cl.Login(ctx, w.userID, seedPassword); err != nil {
			return fmt.Errorf("login %s: %w", w.userID, err)
		}
		log.Printf("✓ Signed in: %s", w.userID)
		clients = append(clients, cl)
	}

	var postIDs []int64
	for _, p := range posts {
		idx := rng.Intn(len(clients))
		post, err := clients[idx].CreatePost(ctx, client.PostInput{Title: p.title, Content: p.content})
		if err != nil {
			log.Printf("✗ Failed to post: %v", err)
			continue
		}
		postIDs = append(postIDs, post.ID)
		log.Printf("✓ Post #%d: %s (by %s)", post.ID, p.title, writers[idx].userID)

		// Spread out created_at times.
		time.Sleep(20 * time.Millisecond)
	}

	commentCount := 0
	for _, id := range postIDs {
		n := rng.Intn(4)
		for i := 0; i < n; i++ {
			cl := clients[rng.Intn(len(clients))]
			if err := cl.Comment(ctx, id, comments[rng.Intn(len(comments))]); err != nil {
				log.Printf("✗ Failed to comment on #%d: %v", id, err)
				continue
			}
			commentCount++
		}
	}
	log.Printf("✓ Added %d comments", commentCount)

	likeCount := 0
	for _, cl := range clients {
		for _, id := range postIDs {
			if rng.Float32() >= 0.4 {
				continue
			}
			result, err := cl.ToggleLike(ctx, id)
			if err != nil {
				log.Printf("✗ Failed to like #%d: %v", id, err)
				continue
			}
			if result.Liked {
				likeCount++
			}
		}
	}
	log.Printf("✓ Added %d likes", likeCount)

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Writers:  %d (password %q)\n", len(writers), seedPassword)
	fmt.Printf("Posts:    %d\n", len(postIDs))
	fmt.Printf("Comments: %d\n", commentCount)
	fmt.Println("\nView at:", baseURL)
	return nil
}
