// Package cmd provides CLI commands for the prism binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// ConfigFlag points at a prism.yaml config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to prism.yaml config file",
		EnvVars: []string{"PRISM_CONFIG"},
	}

	// BackendFlag overrides the backend base URL from config.
	BackendFlag = &cli.StringFlag{
		Name:    "backend",
		Usage:   "Backend base URL (overrides config)",
		EnvVars: []string{"PRISM_BACKEND"},
	}

	// FormatFlag selects output format: json, table.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table",
	}
)

// BackendFlags returns the flags shared by commands that contact the backend.
func BackendFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		BackendFlag,
	}
}
