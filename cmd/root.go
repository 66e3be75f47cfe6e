package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-finder",
	Short: "Find yourself in event photo galleries by face",
	Long: `Photo Finder indexes the faces in event photo galleries and lets
guests find every photo they appear in from a single selfie. Faces are
embedded by a neural embedding service when one is available, with a local
pixel-matching fallback for offline use.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
