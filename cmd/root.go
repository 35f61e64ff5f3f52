package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"boardmaster/internal/store"
)

var (
	enginePath string
	dbPath     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "boardmaster",
	Short: "Chess game review: engine analysis, move classification, puzzles",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&enginePath, "engine", "", "Path to the engine binary")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the evaluation cache database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// newLogger builds the zerolog logger for long-running components. Quiet by
// default: progress goes to stderr separately, the way users expect from a
// CLI, and structured logs are opt-in.
func newLogger() zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.DebugLevel)
}

// engineNames are tried on PATH when no engine is configured.
var engineNames = []string{"stockfish", "stockfish.exe"}

// engineDirs are common install locations tried last.
var engineDirs = []string{"/usr/bin", "/usr/local/bin", "/usr/games"}

// FindEngine resolves the engine binary: env > flag > PATH > common dirs.
func FindEngine() (string, error) {
	if env := os.Getenv("BOARDMASTER_ENGINE"); env != "" {
		return env, nil
	}
	if enginePath != "" {
		return enginePath, nil
	}
	for _, name := range engineNames {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	for _, dir := range engineDirs {
		for _, name := range engineNames {
			candidate := filepath.Join(dir, name)
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("engine not found: install stockfish, set BOARDMASTER_ENGINE, or pass --engine")
}

// OpenCache opens the evaluation cache: --db if given, else the user cache
// directory. Returns nil without error when no location is usable — analysis
// still works, it just can't resume.
func OpenCache() (*store.DB, error) {
	path := dbPath
	if path == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, nil
		}
		dir := filepath.Join(base, "boardmaster")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil
		}
		path = filepath.Join(dir, "evals.db")
	}
	return store.Open(path)
}
