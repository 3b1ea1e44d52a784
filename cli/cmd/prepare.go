package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/glassbead-io/prism/transform"
	"github.com/glassbead-io/prism/types"
)

// preparedOutput is the JSON shape of a prepared artifact.
type preparedOutput struct {
	Source string         `json:"source"`
	Shape  string         `json:"shape"`
	Scope  map[string]any `json:"scope"`
}

// PrepareCommand returns the prepare command: run the transform chain on a
// local source file, without contacting the backend.
func PrepareCommand() *cli.Command {
	return &cli.Command{
		Name:      "prepare",
		Usage:     "Normalize, rewrite, and bind a generated component source",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "Query result JSON ({columns, rows, row_count}) to bind",
			},
			&cli.StringFlag{
				Name:  "params",
				Usage: "Params JSON object to bind",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write the prepared source to a file instead of stdout",
			},
			FormatFlag,
		},
		Action: prepareAction,
	}
}

func prepareAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("prepare requires a source file argument", exitUsage)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot read source file: %v", err), exitUsage)
	}

	var result *types.QueryResult
	if dataJSON := c.String("data"); dataJSON != "" {
		var qr types.QueryResult
		if err := json.Unmarshal([]byte(dataJSON), &qr); err != nil {
			return cli.Exit(fmt.Sprintf("invalid --data JSON: %v", err), exitUsage)
		}
		result = &qr
	}

	var params map[string]any
	if paramsJSON := c.String("params"); paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
			return cli.Exit(fmt.Sprintf("invalid --params JSON: %v", err), exitUsage)
		}
	}

	artifact := transform.Prepare(string(source), result, params)

	if out := c.String("out"); out != "" {
		if err := os.WriteFile(out, []byte(artifact.Source), 0o644); err != nil {
			return cli.Exit(fmt.Sprintf("cannot write output: %v", err), exitUsage)
		}
		fmt.Printf("prepared %s (shape=%s)\n", out, artifact.Shape)
		return nil
	}

	if c.String("format") == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(preparedOutput{
			Source: artifact.Source,
			Shape:  string(artifact.Shape),
			Scope:  artifact.Scope,
		})
	}

	fmt.Print(artifact.Source)
	return nil
}
