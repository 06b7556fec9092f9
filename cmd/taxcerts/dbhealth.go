package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/repository"
)

func newDBHealthCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "dbhealth",
		Short: "Check that the Postgres store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db := a.cfg.Database
			if db.DSN == "" {
				return common.NewAppError("CONFIG_ERROR", "DB_URL is required", common.ErrInvalidInput)
			}
			pool, err := repository.OpenPool(cmd.Context(), repository.DBConfig{
				DSN:             db.DSN,
				MaxConns:        1,
				MaxConnLifetime: db.MaxConnLifetime,
				MaxConnIdleTime: db.MaxConnIdleTime,
				DialTimeout:     db.DialTimeout,
			}, a.logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.HealthCheck(cmd.Context(), pool, timeout, a.logger); err != nil {
				return fmt.Errorf("DB health: FAIL: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("DB health: OK"))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Second, "ping timeout")
	return cmd
}
