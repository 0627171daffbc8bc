// Package main provides the entry point for the Job Tracker CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "job_tracker",
	Short: "Job application tracker",
	Long:  "Job Tracker detects job-application events on career pages, de-duplicates them per user, and persists them behind a REST API with resume matching.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
