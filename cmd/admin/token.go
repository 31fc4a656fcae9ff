package main

import (
	"errors"
	"fmt"
	"time"

	"arbitra/internal/config"
	"arbitra/internal/middleware"
	"arbitra/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var actor models.Actor
	var role, business string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := config.Load().JWTSecret
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			actor.Role = models.Role(role)
			if !actor.Role.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if actor.ID == "" {
				actor.ID = uuid.NewString()
			}
			if business != "" {
				actor.BusinessID = &business
			}

			token, err := middleware.SignToken(secret, &actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor.ID, "id", "", "Actor ID (random when empty)")
	cmd.Flags().StringVar(&actor.Email, "email", "", "Actor email")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "Role: admin, arbitrator or user")
	cmd.Flags().StringVar(&business, "business", "", "Business ID")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
