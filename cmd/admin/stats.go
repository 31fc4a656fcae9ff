package main

import (
	"encoding/json"
	"fmt"
	"io"

	"arbitra/internal/config"
	"arbitra/internal/models"
	"arbitra/internal/repositories"
	"arbitra/internal/repositories/cache"
	"arbitra/internal/services/stats"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func statsCmd() *cobra.Command {
	var output, business, arbitrator string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print dispute statistics",
		Long: `Print global dispute statistics, or the statistics of one business
with --business, or one arbitrator's performance with --arbitrator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q (want json or yaml)", output)
			}

			// The CLI always reads fresh numbers.
			admin := &models.Actor{ID: "cli", Role: models.RoleAdmin}
			var q stats.Query
			if business != "" {
				q.BusinessID = &business
			}
			if arbitrator != "" {
				q.ArbitratorID = &arbitrator
			}

			return withDB(cmd.Context(), func(db *gorm.DB) error {
				svc := stats.NewService(repositories.NewStatsRepository(db), cache.NewMemoryCache(), config.Load().StatsCacheTTL)

				var result interface{}
				var err error
				if arbitrator != "" {
					result, err = svc.ArbitrationStats(cmd.Context(), admin, q)
				} else {
					result, err = svc.DisputeStats(cmd.Context(), admin, q)
				}
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, result)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	cmd.Flags().StringVar(&business, "business", "", "Restrict to one business ID")
	cmd.Flags().StringVar(&arbitrator, "arbitrator", "", "Report on one arbitrator ID")

	return cmd
}

func render(w io.Writer, format string, v interface{}) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
