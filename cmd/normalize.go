package cmd

import (
	"fmt"
	"io"
	"os"

	"entity-sync/core/normalize"
	"entity-sync/core/schema"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	schemaPath  string
	denormDepth int
)

// normalizeCmd normalizes a JSON document offline.
var normalizeCmd = &cobra.Command{
	Use:   "normalize <type> [file]",
	Short: "Normalize a nested JSON document against the schema",
	Long: `Reads a JSON object or array of <type> from file (or stdin) and prints the
normalized entity map and root ids. With --denormalize the result is rebuilt
into nested form, which shows how reads will look.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := schema.LoadFile(schemaPath)
		if err != nil {
			return err
		}
		sch, err := registry.Lookup(args[0])
		if err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if len(args) == 2 {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}

		var payload any
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}

		var target schema.Schema = sch
		if _, many := payload.([]any); many {
			target = schema.ArrayOf(sch)
		}
		res, err := normalize.Normalize(payload, target)
		if err != nil {
			return err
		}

		denorm, _ := cmd.Flags().GetBool("denormalize")
		if !denorm {
			return printJSON(cmd, res)
		}
		return printJSON(cmd, normalize.DenormalizeMany(res.IDs(), sch, res.Entities, normalize.WithMaxDepth(denormDepth)))
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&schemaPath, "schema", "schema.yaml", "Path to the schema file")
	normalizeCmd.Flags().Bool("denormalize", false, "Rebuild the nested form from the normalized result")
	normalizeCmd.Flags().IntVar(&denormDepth, "depth", 0, "Maximum nesting depth when denormalizing, 0 for unlimited")
	RootCmd.AddCommand(normalizeCmd)
}
