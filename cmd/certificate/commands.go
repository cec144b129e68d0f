package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/database"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/jwt"
)

// ── run ──

func runCmd() *cobra.Command {
	var (
		date    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Certify every eligible company for the month preceding --date",
		Long: `Certify every eligible company for the month preceding --date.

Rows previously stored for the same attribution date are replaced. Companies that fail
are reported but do not change the exit code; only global failures (configuration,
database, run already in progress) exit non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tune := func(cfg *config.Config) {
				if cmd.Flags().Changed("workers") {
					cfg.Certification.Workers = workers
				}
			}
			return withEnv(cmd.Context(), true, tune, func(ctx context.Context, e *env) error {
				ref, err := parseDay(date, &e.cfg.Certification)
				if err != nil {
					return err
				}
				summary, err := e.svc.Certification.Run(ctx, ref)
				if summary == nil {
					return err
				}
				// a cancelled run still reports what was committed
				if viper.GetBool("json") {
					if perr := printJSON(os.Stdout, summaryJSON(summary)); perr != nil {
						return perr
					}
				} else {
					renderSummary(os.Stdout, summary)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "attribution date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent companies (0 = one per CPU)")
	return cmd
}

// ── scores ──

func scoresCmd() *cobra.Command {
	var (
		companyID int64
		date      string
	)
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Print the percentage report of a company, nothing is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			if companyID <= 0 {
				return fmt.Errorf("--company required")
			}
			return withEnv(cmd.Context(), false, nil, func(ctx context.Context, e *env) error {
				ref, err := parseDay(date, &e.cfg.Certification)
				if err != nil {
					return err
				}
				scores, err := e.svc.Certification.ScoreCompany(ctx, companyID, ref)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(os.Stdout, scores)
				}
				renderScores(os.Stdout, scores)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "company id")
	cmd.Flags().StringVar(&date, "date", "", "reference date YYYY-MM-DD (default today)")
	return cmd
}

// ── export ──

func exportCmd() *cobra.Command {
	var date, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the certifications of an attribution date to an Excel file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				return fmt.Errorf("--date required")
			}
			return withEnv(cmd.Context(), false, nil, func(ctx context.Context, e *env) error {
				day, err := parseDay(date, &e.cfg.Certification)
				if err != nil {
					return err
				}
				buf, filename, err := e.svc.Export.ExportCertifications(ctx, day)
				if err != nil {
					return err
				}
				if out == "" {
					out = filename
				}
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Fprintf(os.Stdout, "wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "attribution date YYYY-MM-DD")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default certifications_<date>.xlsx)")
	return cmd
}

// ── migrate ──

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer database.Close(db)

			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return database.RunMigrations(sqlDB, logger)
		},
	}
}

// ── token ──

func tokenCmd() *cobra.Command {
	var (
		userID int64
		role   string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the certification API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user-id required")
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := cfg.ValidateAuth(); err != nil {
				return err
			}

			token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(strconv.FormatInt(userID, 10), role)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			logger.Info("Access token issued", zap.Int64("user_id", userID), zap.String("role", role),
				zap.Duration("ttl", cfg.Auth.AccessTokenTTL))
			fmt.Fprintln(os.Stdout, token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "user id carried by the token")
	cmd.Flags().StringVar(&role, "role", "admin", "role carried by the token")
	return cmd
}
