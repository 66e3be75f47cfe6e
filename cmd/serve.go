package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-finder/internal/database/mock"
	"github.com/kozaktomas/photo-finder/internal/governor"
	"github.com/kozaktomas/photo-finder/internal/imaging"
	"github.com/kozaktomas/photo-finder/internal/share"
	"github.com/kozaktomas/photo-finder/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Photo Finder web server.
The server exposes event management, batch photo ingestion and selfie-based
face search over HTTP. Ingestion and search are rate limited per client.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// resolveShareSecret returns the configured share secret, or generates an
// ephemeral one. Ephemeral secrets mean issued tokens die with the process.
func resolveShareSecret(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating share secret: %w", err)
	}
	fmt.Println("SHARE_TOKEN_SECRET not set - share tokens will not survive restarts")
	return hex.EncodeToString(buf), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	// Without a database the server still works, events just live in memory.
	events := env.events
	photos := env.photos
	if events == nil {
		events = mock.NewMockEventRepository()
		photos = mock.NewMockPhotoRepository()
	}

	secret, err := resolveShareSecret(env.cfg.Share.Secret)
	if err != nil {
		return err
	}
	shares, err := share.NewManager(secret, time.Duration(env.cfg.Share.ExpiryMinutes)*time.Minute)
	if err != nil {
		return fmt.Errorf("creating share manager: %w", err)
	}

	var store *imaging.Store
	if dir := env.cfg.Upload.StorageDir; dir != "" {
		store, err = imaging.NewStore(dir, env.cfg.Upload.MaxDimension, env.cfg.Upload.JPEGQuality)
		if err != nil {
			return fmt.Errorf("creating photo storage: %w", err)
		}
		fmt.Printf("Stored copies enabled in %s\n", dir)
	} else {
		fmt.Println("UPLOAD_STORAGE_DIR not set - stored copies disabled")
	}

	limiter := governor.New(
		env.cfg.RateLimit.MaxRequests,
		time.Duration(env.cfg.RateLimit.WindowSeconds)*time.Second,
	)
	limiter.StartSweeper(governor.DefaultSweepInterval)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(env.cfg, port, host, env.engine, events, photos, limiter, shares, store)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photo Finder on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
