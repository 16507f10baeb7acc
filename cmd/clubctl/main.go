// Command clubctl is the operator CLI for the owners club: it grants the
// admin role, edits site settings and lists members straight against the
// SQLite database, without going through the web server.
//
//	clubctl admin grant sam@example.com
//	clubctl settings set site_title "GT86 Owners Club"
//	clubctl members list --status private
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/owners-club/internal/config"
	sqliteRepo "github.com/sakif/owners-club/internal/repository/sqlite"
)

var (
	// Global flags.
	configFile string
	dbPath     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "clubctl",
	Short: "Operate an owners club registry",
	Long: `clubctl manages an owners club registry from the command line.

The database is taken from --db, or from the server configuration
(club.yaml and CLUB_* environment variables) when --db is not given.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./club.yaml or /etc/owners-club/club.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides the config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	adminCmd.AddCommand(adminGrantCmd)
	adminCmd.AddCommand(adminRevokeCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	membersCmd.AddCommand(membersListCmd)

	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(membersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger writes to stderr so command output stays pipeable.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openDB opens the database named by --db or the configuration.
func openDB() (*sqliteRepo.DB, error) {
	path := dbPath
	if path == "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		path = cfg.DBPath
	}

	db, err := sqliteRepo.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return db, nil
}
