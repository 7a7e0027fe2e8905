package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	coreintegrity "entity-sync/core/integrity"
	"entity-sync/feature/integrity"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fixFlag        bool
	errorsOnlyFlag bool
	jsonFlag       bool
)

// integrityCmd checks the entities held by the sources.
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check referential integrity of the synced entities",
	Long: `Syncs every registered type from the configured sources, then validates
references, required fields, ids and unique values. With --fix the store is
repaired and the repaired entities are pushed back through the engine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		a, svc, err := integrityService(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, t := range a.Registry.Keys() {
			res, err := a.Engine.Sync(ctx, t, syncOptions())
			if err != nil {
				return err
			}
			if res.Err != nil {
				return fmt.Errorf("failed to sync %s: %w", t, res.Err)
			}
		}

		report := svc.Check()
		if fixFlag && !report.Valid {
			out, err := svc.Repair(coreintegrity.RepairOptions{ErrorsOnly: errorsOnlyFlag}, false)
			if err != nil {
				return err
			}
			if err := pushRepairs(ctx, a, out.Repairs); err != nil {
				return err
			}
			a.Logger.Info("Repairs applied",
				zap.Int("repairs", len(out.Repairs)),
				zap.Int("remaining", len(out.Remaining)),
			)
			report = svc.Check()
		}

		if jsonFlag {
			filename := fmt.Sprintf("integrity_%d.json", time.Now().Unix())
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			if err := os.WriteFile(filename, data, 0644); err != nil {
				return fmt.Errorf("failed to save JSON file: %w", err)
			}
			a.Logger.Info("Detailed JSON report saved", zap.String("file", filename))
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "\n=== Integrity Report ===")
		fmt.Fprintf(w, "Valid: %t\n", report.Valid)
		fmt.Fprintf(w, "Errors: %d\n", report.Summary.Errors)
		fmt.Fprintf(w, "Warnings: %d\n", report.Summary.Warnings)
		fmt.Fprintf(w, "Info: %d\n", report.Summary.Infos)
		for _, v := range report.Violations {
			fmt.Fprintf(w, "  [%s] %s/%s: %s\n", v.Severity, v.EntityType, v.EntityID, v.Message)
		}
		fmt.Fprintf(w, "Execution Time: %s\n", time.Since(start))

		if report.Summary.Errors > 0 {
			return &coreintegrity.ReportError{Report: report}
		}
		return nil
	},
}

// pushRepairs writes repaired entities back to the sources.
func pushRepairs(ctx context.Context, a *App, repairs []coreintegrity.Repair) error {
	seen := make(map[string]bool)
	for _, r := range repairs {
		t, id := r.Action.EntityType, r.Action.EntityID
		if seen[t+"/"+id] {
			continue
		}
		seen[t+"/"+id] = true

		current, ok := a.Store.Entity(t, id)
		if !ok {
			if err := a.Engine.Delete(ctx, t, id); err != nil {
				return fmt.Errorf("failed to delete %s/%s: %w", t, id, err)
			}
			continue
		}
		if _, err := a.Engine.Update(ctx, t, id, current); err != nil {
			return fmt.Errorf("failed to push %s/%s: %w", t, id, err)
		}
	}
	return nil
}

// storageCmd checks the object store layout.
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check and fix the per-type folders of the object store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, svc, err := integrityService(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := svc.CheckStorage(ctx)
		if err != nil {
			return err
		}
		if len(report.Missing) == 0 {
			a.Logger.Info("Storage layout is complete", zap.String("bucket", report.Bucket))
			return nil
		}
		a.Logger.Warn("Missing type folders", zap.Strings("missing", report.Missing))
		if !fixFlag {
			return printJSON(cmd, report)
		}
		return svc.FixStorage(ctx, report.Missing)
	},
}

// databaseCmd checks the entity table.
var databaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Check and migrate the entity table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, svc, err := integrityService(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := svc.CheckDatabase()
		if err != nil {
			return err
		}
		if !report.OK() && fixFlag {
			if err := svc.FixDatabase(ctx); err != nil {
				return err
			}
			if report, err = svc.CheckDatabase(); err != nil {
				return err
			}
		}
		return printJSON(cmd, report)
	},
}

func integrityService(ctx context.Context) (*App, *integrity.Service, error) {
	a, err := bootstrap(ctx, ".")
	if err != nil {
		return nil, nil, err
	}
	cfg := a.Config
	svc := integrity.NewService(a.Store, a.Checker, a.Metrics, a.Logger, a.DB, a.Storage, cfg.Storage.Bucket, cfg.Storage.Prefix)
	return a, svc, nil
}

func init() {
	integrityCmd.PersistentFlags().BoolVar(&fixFlag, "fix", false, "Repair what the check finds")
	integrityCmd.Flags().BoolVar(&errorsOnlyFlag, "errors-only", false, "Only repair error-severity violations")
	integrityCmd.Flags().BoolVar(&jsonFlag, "json", false, "Save the full report to integrity_<unix>.json")

	integrityCmd.AddCommand(storageCmd)
	integrityCmd.AddCommand(databaseCmd)
	RootCmd.AddCommand(integrityCmd)
}
