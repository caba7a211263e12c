// Package cli implements the provvakt cobra commands.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/efredriksson/provvakt/internal/adapter/driven/sqlite"
	"github.com/efredriksson/provvakt/internal/adapter/driven/trafikverket"
	"github.com/efredriksson/provvakt/internal/config"
	"github.com/efredriksson/provvakt/internal/domain/model"
)

// defaultUserAgent is sent when the config document does not pin one.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"

// examTypeFlag registers the shared --exam-type flag on a command.
func examTypeFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "exam-type", "e", string(model.ExamTypeKunskapsprov),
		"exam type to operate on (Kunskapsprov or Körprov)")
}

// parseExamType validates the --exam-type flag value.
func parseExamType(s string) (model.ExamType, error) {
	et := model.ExamType(s)
	if !et.Valid() {
		return "", fmt.Errorf("unknown exam type %q (expected %s or %s)",
			s, model.ExamTypeKunskapsprov, model.ExamTypeKorprov)
	}
	return et, nil
}

// loadConfig resolves and loads the configuration document.
func loadConfig() (*config.Config, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// openStore opens the database, runs migrations, and returns the slot repo.
// The caller owns closing the returned DB.
func openStore(cfg *config.Config) (*sqlite.DB, *sqlite.SlotRepo, error) {
	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := sqlite.RunMigrations(db.Writer); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, sqlite.NewSlotRepo(db), nil
}

// newSessionManager builds the session manager seeded from the config
// document, persisting renewed cookies back to it.
func newSessionManager(cfg *config.Config) *trafikverket.SessionManager {
	return trafikverket.NewSessionManager(cfg.Cookies, userAgent(cfg), cfg.SaveCookies)
}

func userAgent(cfg *config.Config) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}
	return defaultUserAgent
}

func closeQuietly(db *sqlite.DB) {
	if err := db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
