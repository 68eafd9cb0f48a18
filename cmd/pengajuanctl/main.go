package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pengajuan-konten-api/internal/client"
	"github.com/pengajuan-konten-api/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	serverURL string
	verbose   bool
	timeout   time.Duration

	log zerolog.Logger = zerolog.Nop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pengajuanctl",
	Short: "Command line client for the pengajuan konten API",
	Long: `pengajuanctl submits pengajuan drafts, reserves tracking codes and downloads
the Rekap Data export from a running pengajuan-konten-api server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		log = logger.NewWithOptions(logger.Options{
			Level:   level,
			Format:  "pretty",
			Service: "pengajuanctl",
			Out:     cmd.ErrOrStderr(),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("PENGAJUAN_API_URL", "http://localhost:8080"), "API base URL (or set PENGAJUAN_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Request timeout")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(serverURL, nil)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
