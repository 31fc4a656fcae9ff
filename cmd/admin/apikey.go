package main

import (
	"fmt"

	"arbitra/internal/models"
	"arbitra/internal/repositories"
	"arbitra/internal/services/apikey"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func apiKeyCmd() *cobra.Command {
	var in apikey.IssueInput
	var role, business string

	cmd := &cobra.Command{
		Use:   "seed-apikey",
		Short: "Issue a new API key",
		Long: `Issue a new API key and print it once. Only its digest is stored,
so the raw key cannot be recovered later.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Role = models.Role(role)
			if business != "" {
				in.BusinessID = &business
			}

			return withDB(cmd.Context(), func(db *gorm.DB) error {
				raw, key, err := apikey.NewService(repositories.NewAPIKeyRepository(db)).Issue(cmd.Context(), in)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "id:   %s\n", key.ID)
				fmt.Fprintf(out, "role: %s\n", key.Role)
				fmt.Fprintf(out, "key:  %s\n", raw)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "Email of the key holder")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "Role: admin, arbitrator or user")
	cmd.Flags().StringVar(&business, "business", "", "Business ID the key is bound to")
	cmd.Flags().StringSliceVar(&in.WhitelistedIPs, "ip", nil, "Allowed client IP or CIDR (repeatable)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func deactivateAPIKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate-apikey <id>",
		Short: "Deactivate an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid key id %q", args[0])
			}

			return withDB(cmd.Context(), func(db *gorm.DB) error {
				if err := apikey.NewService(repositories.NewAPIKeyRepository(db)).Deactivate(cmd.Context(), id.String()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s\n", id)
				return nil
			})
		},
	}
}
