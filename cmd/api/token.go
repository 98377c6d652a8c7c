package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"focus-tasks-backend/internal/auth"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token for the API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		if cfg.Auth.Secret == "" {
			return errors.New("auth.secret is not set; the API does not require a token")
		}

		ttl := cfg.Auth.TokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}

		tok, err := auth.GenerateToken([]byte(cfg.Auth.Secret), ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, e.g. 720h (default auth.token_ttl)")
}
