package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/imaging"
	"github.com/kozaktomas/photo-finder/internal/slug"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <event-code> <folder-path> [folder-path...]",
	Short: "Ingest photos from folders into an event",
	Long: `Ingest photos from one or more folders into an event's face corpus.

By default, only files in the specified folders are ingested (non-recursive).
Use -r to search recursively in subdirectories. A photo that fails to process
is reported and skipped; the rest of the batch continues.

Requires DATABASE_URL so the ingested corpus survives the process.

Example:
  photo-finder ingest summer-wedding /path/to/photos
  photo-finder ingest -r --create summer-wedding /mnt/sdcard`,
	Args: cobra.MinimumNArgs(2),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolP("recursive", "r", false, "Search for photos recursively in subdirectories")
	ingestCmd.Flags().Bool("create", false, "Create the event if it does not exist")
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	supported := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".bmp":  true,
	}
	return supported[ext]
}

// collectImageFiles gathers image paths from a folder, optionally recursing.
func collectImageFiles(folder string, recursive bool) ([]string, error) {
	var paths []string
	if recursive {
		err := filepath.WalkDir(folder, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isImageFile(d.Name()) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", folder, err)
		}
		return paths, nil
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", folder, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			paths = append(paths, filepath.Join(folder, entry.Name()))
		}
	}
	return paths, nil
}

// resolveEvent finds the event by code, creating it when --create is set.
func resolveEvent(ctx context.Context, events database.EventRepository, code string, create bool) (*database.Event, error) {
	event, err := events.GetEventByCode(ctx, code)
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("looking up event %s: %w", code, err)
	}
	if !create {
		return nil, fmt.Errorf("event %s not found (use --create to create it)", code)
	}

	event = &database.Event{
		ID:        uuid.New().String(),
		Code:      slug.Make(code),
		Name:      code,
		CreatedAt: time.Now().UTC(),
	}
	if err := events.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("creating event %s: %w", code, err)
	}
	fmt.Printf("Created event %s (%s)\n", event.Code, event.ID)
	return event, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	recursive := mustGetBool(cmd, "recursive")
	create := mustGetBool(cmd, "create")
	code := args[0]
	folders := args[1:]

	ctx := context.Background()
	env, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.events == nil {
		return errors.New("DATABASE_URL environment variable is required for ingest")
	}

	event, err := resolveEvent(ctx, env.events, code, create)
	if err != nil {
		return err
	}

	var store *imaging.Store
	if dir := env.cfg.Upload.StorageDir; dir != "" {
		store, err = imaging.NewStore(dir, env.cfg.Upload.MaxDimension, env.cfg.Upload.JPEGQuality)
		if err != nil {
			return fmt.Errorf("opening photo storage: %w", err)
		}
	}

	var paths []string
	for _, folder := range folders {
		found, err := collectImageFiles(folder, recursive)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return errors.New("no image files found")
	}
	fmt.Printf("Ingesting %d photos into %s\n", len(paths), event.Code)

	bar := progressbar.Default(int64(len(paths)), "ingesting")
	now := time.Now().UTC()
	ready, failed, faces := 0, 0, 0

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("\n%s: %v\n", path, err)
			failed++
			bar.Add(1)
			continue
		}

		photo := &database.Photo{
			ID:         uuid.New().String(),
			EventID:    event.ID,
			Filename:   filepath.Base(path),
			Status:     database.PhotoStatusPending,
			UploadedAt: now,
		}
		if err := env.photos.CreatePhoto(ctx, photo); err != nil {
			fmt.Printf("\n%s: recording photo: %v\n", path, err)
			failed++
			bar.Add(1)
			continue
		}

		result := env.engine.IngestPhoto(ctx, event.ID, photo.ID, data)
		if err := env.photos.UpdatePhotoStatus(ctx, photo.ID, result.Status, len(result.Faces)); err != nil {
			fmt.Printf("\n%s: updating photo status: %v\n", path, err)
		}
		if result.Err != nil {
			fmt.Printf("\n%s: %v\n", path, result.Err)
			failed++
		} else {
			ready++
			faces += len(result.Faces)
			if store != nil {
				if _, err := store.Save(event.ID, photo.ID, data); err != nil {
					fmt.Printf("\n%s: storing compressed copy: %v\n", path, err)
				}
			}
		}
		bar.Add(1)
	}

	fmt.Printf("\nDone: %d photos ingested, %d faces indexed, %d failed\n", ready, faces, failed)
	return nil
}
