package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// envFile is the optional .env file layered under the process environment.
var envFile string

// rootCmd represents the base command for the schedsync application
var rootCmd = &cobra.Command{
	Use:   "schedsync",
	Short: "Imports university schedules and syncs them into Google Calendar",
	Long: `schedsync reads faculty schedule workbooks (.xlsx) into a lesson database
and keeps each student's and teacher's Google Calendar in line with the
lessons that concern them.

It can run as:
  - A command-line tool for imports, calendar syncs and lesson administration
  - A background watcher importing uploaded workbooks
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "schedsync version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file read before the process environment")

	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newLessonsCmd())
	rootCmd.AddCommand(newSemesterCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
