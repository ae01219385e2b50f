package main

import (
	"errors"
	"fmt"
	"time"

	"fittrack/backend/internal/api"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTokenCommand(configPath *string) *cobra.Command {
	var (
		userHex string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			if rt.cfg.JWT.Secret == "" {
				return errors.New("jwt.secret must be set")
			}
			userID, err := primitive.ObjectIDFromHex(userHex)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			if ttl == 0 {
				ttl = rt.cfg.JWT.Expiration
			}

			token, err := api.IssueToken(rt.cfg.JWT.Secret, rt.cfg.JWT.Issuer, userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userHex, "user", "u", "", "User ObjectID hex")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to jwt.expiration)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
