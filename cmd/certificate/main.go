package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/service"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/database"
	applogger "github.com/MTES-MCT/mobilic-api-sub000/pkg/logger"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/redis"
)

const dateLayout = "2006-01-02"

var rootCmd = &cobra.Command{
	Use:   "certificate",
	Short: "Mobilic company certification",
	Long: `Computes the monthly company certification from the activity logged in Mobilic.

A run evaluates every company with activity in the previous calendar month against
five criteria (activity level, regulatory compliance, change frequency, validation
timeliness, real-time logging) and stores one certification row per company.`,
	SilenceUsage: true,
}

func main() {
	addPersistentFlags()
	registerCommands()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default ./config/config.yaml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scoresCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
}

// ── wiring ──

// env everything a command needs, closed by withEnv
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	svc    *service.Service
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// withEnv connects the database (and Redis when withLock) and builds the services
func withEnv(ctx context.Context, withLock bool, tune func(*config.Config), fn func(context.Context, *env) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if tune != nil {
		tune(cfg)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)

	e := &env{cfg: cfg, logger: logger, db: db}

	var locker service.RunLocker
	if withLock {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, running without the run lock", zap.Error(err))
		} else {
			defer rdb.Close()
			e.rdb = rdb
			locker = rdb
		}
	}

	e.svc = service.NewService(cfg, repository.NewRepository(db), locker, logger)
	return fn(ctx, e)
}

// parseDay parses --date in the certification timezone; empty means today
func parseDay(value string, cfg *config.CertificationConfig) (time.Time, error) {
	loc := cfg.Location()
	if value == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}
