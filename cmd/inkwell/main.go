package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/config"
	httpapp "github.com/inkwell-blog/inkwell/internal/http"
	"github.com/inkwell-blog/inkwell/internal/rate"
	"github.com/inkwell-blog/inkwell/internal/store"
	"github.com/inkwell-blog/inkwell/internal/store/mongo"
	"github.com/inkwell-blog/inkwell/internal/store/postgres"
	"github.com/inkwell-blog/inkwell/internal/store/sqlite"
	"github.com/inkwell-blog/inkwell/internal/upload"

	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "inkwell",
		Usage:   "a small publishing platform: server and command-line client",
		Version: version,
		Action:  runServer,
		Commands: append([]*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server"},
				Usage:   "start the Inkwell server (default if no command)",
				Action:  runServer,
			},
		}, clientCommands()...),
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// ============================================================================
// SERVER
// ============================================================================

func runServer(c *cli.Context) error {
	cfg := config.Load()
	if err := cfg.CheckSecret(); err != nil {
		return err
	}

	st, err := openStore(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer st.Close()

	codec, err := auth.NewCodec(cfg.TokenAlg, cfg.TokenSecret)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(st, codec, cfg.BcryptCost, cfg.CookieName)

	uploads, err := upload.New(cfg.UploadDir)
	if err != nil {
		return err
	}

	server := httpapp.NewServer(st, authSvc, uploads, rate.NewMemory(), cfg)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("inkwell listening on %s (store=%s, token=%s)", cfg.Addr, cfg.Store, codec.Alg())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case "sqlite", "":
		st, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := postgres.Open(ctx, cfg.PostgresDSN, cfg.PostgresConns)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "mongo":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		st, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store %q (want sqlite, postgres or mongo)", cfg.Store)
	}
}
