package main

import (
	"os"

	"github.com/spf13/cobra"
)

// @title FitTrack API
// @version 1.0
// @description API for managing plan types, clients, workouts, diets and their assignments.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "fittrack",
		Short:        "FitTrack plan management backend",
		Long:         `FitTrack serves the plan management API and ships the administrative commands that go with it.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "Directory containing config.yaml")

	rootCmd.AddCommand(
		newServeCommand(&configPath),
		newSeedCommand(&configPath),
		newTokenCommand(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
