package cmd

import (
	"fmt"
	"os"

	"entity-sync/core/entity"
	"entity-sync/core/monitor"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// driftCmd diffs two entity map dumps.
var driftCmd = &cobra.Command{
	Use:   "drift <before.json> <after.json>",
	Short: "Report drift between two entity map dumps",
	Long: `Compares two normalized entity maps (as written by the snapshot API with
entities=true, or by normalize) and prints every added, removed and changed
path. Exits non-zero when drift is found.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		before, err := readEntities(args[0])
		if err != nil {
			return err
		}
		after, err := readEntities(args[1])
		if err != nil {
			return err
		}

		res, err := monitor.Diff(before, after)
		if err != nil {
			return err
		}
		if err := printJSON(cmd, res); err != nil {
			return err
		}
		if res.HasDrift {
			return fmt.Errorf("%d differences found", len(res.Differences))
		}
		return nil
	},
}

// readEntities loads an entity map, accepting a bare map or an object with
// an "entities" field.
func readEntities(path string) (entity.Entities, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Entities entity.Entities `json:"entities"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Entities != nil {
		return wrapped.Entities, nil
	}
	var es entity.Entities
	if err := json.Unmarshal(data, &es); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return es, nil
}

func init() {
	RootCmd.AddCommand(driftCmd)
}
