package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"entity-sync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	purgeFlag  bool
	mirrorFlag bool
	dryRunFlag bool
	yesConfirm bool
)

// reconcileCmd compares the mirrors with the primary.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile <type>",
	Short: "Reconcile mirror sources against the primary (report + optionally purge/sync)",
	Long: `Compares one entity type across the primary and every secondary source.

Reports entities missing from a mirror, entities only a mirror holds, and
field mismatches. Optionally purge mirror-only entities, or sync (copy and
overwrite) mirrors from the primary.

Examples:
  # Report only
  reconcile posts

  # Purge orphans with interactive confirmation
  reconcile posts --purge

  # Copy and overwrite from the primary without prompting
  reconcile posts --sync --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		entityType := args[0]

		a, err := bootstrap(ctx, ".")
		if err != nil {
			return err
		}
		defer a.Close()
		if _, err := a.Registry.Lookup(entityType); err != nil {
			return err
		}

		r, err := a.Reconciler()
		if err != nil {
			return err
		}

		opts := reconcile.Options{DoPurge: purgeFlag, DoSync: mirrorFlag, DryRun: dryRunFlag}
		plan, err := r.ReconcileWithPlan(ctx, entityType, opts)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "\n=== Reconcile %s (primary: %s) ===\n", plan.EntityType, plan.Primary)
		fmt.Fprintf(w, "Total Items: %d\n", plan.Summary.TotalItems)
		fmt.Fprintf(w, "Mismatches: %d\n", plan.Summary.Mismatches)
		for name, n := range plan.Summary.Missing {
			fmt.Fprintf(w, "Missing in %s: %d\n", name, n)
		}
		for name, n := range plan.Summary.Orphaned {
			fmt.Fprintf(w, "Only in %s: %d\n", name, n)
		}

		if len(plan.Actions) == 0 {
			return nil
		}
		fmt.Fprintf(w, "\nPlanned actions: %d purge, %d sync\n", plan.Summary.PurgeActions, plan.Summary.SyncActions)
		for _, act := range plan.Actions {
			fmt.Fprintf(w, "  %-9s %s/%s (%s)\n", act.Type, act.Source, act.EntityID, act.Reason)
		}
		if dryRunFlag {
			fmt.Fprintln(w, "\nDry run: nothing changed.")
			return nil
		}

		opts.Confirmed = yesConfirm
		if !opts.Confirmed {
			opts.Confirmed = confirm(cmd, fmt.Sprintf("Apply %d actions?", len(plan.Actions)))
		}
		if !opts.Confirmed {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}

		executed, err := r.ApplyPlan(ctx, plan, opts)
		if err != nil {
			return fmt.Errorf("applied %d of %d actions: %w", executed, len(plan.Actions), err)
		}
		a.Logger.Info("Reconcile complete", zap.String("entity_type", entityType), zap.Int("executed", executed))
		return nil
	},
}

// confirm asks a yes/no question on stdin.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	in := cmd.InOrStdin()
	if in == nil {
		in = os.Stdin
	}
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	reconcileCmd.Flags().BoolVar(&purgeFlag, "purge", false, "Delete entities only a mirror holds")
	reconcileCmd.Flags().BoolVar(&mirrorFlag, "sync", false, "Copy missing and overwrite diverging mirror entities")
	reconcileCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Force dry-run (no mutations even with --yes)")
	reconcileCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	RootCmd.AddCommand(reconcileCmd)
}
