package main

import (
	"fmt"

	"arbitra/internal/repositories"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	var normalize bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		Long: `Create or update every table and index the service uses.
Legacy status spellings (pending, opened, cancelled) are then rewritten
onto the canonical set unless --normalize-statuses=false is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *gorm.DB) error {
				if err := repositories.Migrate(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")

				if !normalize {
					return nil
				}
				n, err := repositories.NormalizeLegacyStatuses(db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "normalized %d dispute statuses\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&normalize, "normalize-statuses", true, "Rewrite legacy dispute statuses")
	return cmd
}
