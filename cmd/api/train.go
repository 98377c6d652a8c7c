package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"focus-tasks-backend/internal/app"
	"focus-tasks-backend/internal/recommend"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the duration model on recent focus sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app.App, l *zap.Logger) error {
			res, err := a.Train(cmd.Context())
			if errors.Is(err, recommend.ErrInsufficientData) {
				fmt.Fprintf(cmd.OutOrStdout(), "not enough focus sessions to train (%d examples)\n", res.Examples)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model trained on %d examples\n", res.Examples)
			return nil
		})
	},
}
