package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/glassbead-io/prism/cli/render"
	"github.com/glassbead-io/prism/client"
)

// QueryCommand returns the query command: run SQL directly against the
// backend's local engine, bypassing the assistant.
func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Execute SQL against the backend and print the result",
		ArgsUsage: "<sql>",
		Flags:     append(BackendFlags(), FormatFlag),
		Action:    queryAction,
	}
}

func queryAction(c *cli.Context) error {
	sql := c.Args().First()
	if sql == "" {
		return cli.Exit("query requires a SQL argument", exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	backend, err := buildClient(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	result, err := backend.Query(context.Background(), sql)
	if err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return cli.Exit(fmt.Sprintf("query rejected: %v", err), exitUsage)
		}
		return cli.Exit(fmt.Sprintf("query failed: %v", err), exitStream)
	}

	return r.Result(result)
}
