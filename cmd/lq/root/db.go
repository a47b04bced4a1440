package root

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lifequest/internal/auth"
	"lifequest/internal/config"
	"lifequest/internal/engine"
	"lifequest/internal/logging"
	"lifequest/internal/storage"
	"lifequest/internal/timeutil"
	"lifequest/internal/ui"
)

// session is everything a command needs: the service, a context carrying the
// signed-in user and the result of the start-of-session daily pass.
type session struct {
	svc   *engine.Service
	ctx   context.Context
	start *engine.SessionResult
	log   *zap.Logger
	db    *sql.DB
}

func (s *session) Close() {
	_ = s.log.Sync()
	_ = s.db.Close()
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lifequest.yaml"
	}
	return filepath.Join(home, ".lifequest.yaml")
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	path, err := storage.ResolveDBPath(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, path)
}

func balanceFrom(cfg config.Config) engine.Balance {
	return engine.Balance{
		Curve: engine.Curve{
			Base:   cfg.Progression.BaseXPToNextLevel,
			Growth: cfg.Progression.LevelGrowth,
		},
		BaseStat:     cfg.Progression.BaseStat,
		StatFloor:    cfg.Progression.StatFloor,
		PenaltyRatio: cfg.Daily.PenaltyRatio,
	}
}

// openSession loads config, opens the store and runs the daily cycle and
// streak check. Notices from that pass go to stderr unless quiet is set.
func openSession(cmd *cobra.Command, quiet bool) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if u := strings.TrimSpace(userFlag); u != "" {
		cfg.User.ID = u
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	svc := engine.NewService(
		storage.NewSQLiteStore(db, timeutil.RealClock{}),
		storage.NewMarkerRepo(db),
		engine.WithLogger(log),
		engine.WithBalance(balanceFrom(cfg)),
		engine.WithCacheTiming(cfg.Cache.TTL, cfg.Cache.FetchThrottle),
	)
	s := &session{svc: svc, ctx: auth.WithUser(ctx, cfg.User.ID), log: log, db: db}

	start, err := svc.StartSession(s.ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.start = start
	if !quiet {
		printSessionNotices(cmd.ErrOrStderr(), start)
	}
	return s, nil
}

func printSessionNotices(w io.Writer, res *engine.SessionResult) {
	if res == nil {
		return
	}
	if d := res.Daily; d != nil && d.Ran {
		if len(d.Failed) > 0 {
			fmt.Fprintln(w, ui.Bad.Render(fmt.Sprintf("%s %d daily quest(s) missed, %d XP lost", ui.IconSkull, len(d.Failed), d.Penalty)))
		}
		if n := len(d.Reset) + len(d.Recurring); n > 0 {
			fmt.Fprintln(w, ui.Muted.Render(fmt.Sprintf("%s %d quest(s) reopened for today", ui.IconSun, n)))
		}
	}
	if st := res.Streak; st != nil && st.Changed {
		fmt.Fprintln(w, ui.Warn.Render(ui.IconFire+" "+st.Message))
	}
}
