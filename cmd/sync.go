package cmd

import (
	"fmt"
	"strings"

	"entity-sync/core/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	prune      bool
	syncParams []string
)

// syncCmd syncs entity types once and prints the results.
var syncCmd = &cobra.Command{
	Use:   "sync [type...]",
	Short: "Sync entity types from the configured sources",
	Long: `Fetches each entity type (all registered types by default) from every
source, applies the primary's data to a fresh store and reports
cross-source mismatches and conflicts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx, ".")
		if err != nil {
			return err
		}
		defer a.Close()

		types := args
		if len(types) == 0 {
			types = a.Registry.Keys()
		}

		var results []*sync.SyncResult
		failed := 0
		for _, t := range types {
			res, err := a.Engine.Sync(ctx, t, syncOptions())
			if err != nil {
				return err
			}
			if res.Err != nil {
				failed++
				a.Logger.Error("Sync failed", zap.String("entity_type", t), zap.Error(res.Err))
			}
			results = append(results, res)
		}

		if err := printJSON(cmd, results); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d types failed to sync", failed, len(types))
		}
		return nil
	},
}

// syncOptions builds SyncOptions from the --prune and --param flags.
func syncOptions() sync.SyncOptions {
	opts := sync.SyncOptions{Prune: prune}
	for _, p := range syncParams {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		if opts.Params == nil {
			opts.Params = map[string]string{}
		}
		opts.Params[k] = v
	}
	return opts
}

func init() {
	syncCmd.Flags().BoolVar(&prune, "prune", false, "Remove local entities the primary no longer holds")
	syncCmd.Flags().StringArrayVar(&syncParams, "param", nil, "Fetch filter as key=value (repeatable)")
	RootCmd.AddCommand(syncCmd)
}
