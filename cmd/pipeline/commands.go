package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"example.com/eligibility/internal/config"
	"example.com/eligibility/internal/manifest"
	"example.com/eligibility/internal/notify"
	"example.com/eligibility/internal/pipeline"
	"example.com/eligibility/internal/silver"
	"example.com/eligibility/internal/staging"
	"example.com/eligibility/internal/vendorcfg"
	"example.com/eligibility/internal/warehouse"
)

// dbFlags binds the warehouse connection flags shared by most commands.
func dbFlags(cmd *cobra.Command, cfg *config.Config, driver, dsn *string) {
	cmd.Flags().StringVar(driver, "driver", cfg.DBDriver, "Database driver: sqlite or postgres")
	cmd.Flags().StringVar(dsn, "dsn", cfg.DBDSN, "Database DSN (postgres) or file path (sqlite)")
}

// openStore opens the warehouse and migrates the schema when asked.
// Migration is idempotent, so stage commands run it for convenience and
// init-db stays the explicit bootstrap.
func openStore(driver, dsn string, migrate bool) (*warehouse.Store, error) {
	db, err := warehouse.Open(warehouse.Config{Driver: driver, DSN: dsn})
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := warehouse.Migrate(db); err != nil {
			return nil, err
		}
	}
	return warehouse.NewStore(db), nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func newInitDBCmd(cfg *config.Config) *cobra.Command {
	var driver, dsn string
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create or migrate the warehouse tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := warehouse.Open(warehouse.Config{Driver: driver, DSN: dsn})
			if err != nil {
				return err
			}
			return warehouse.Migrate(db)
		},
	}
	dbFlags(cmd, cfg, &driver, &dsn)
	return cmd
}

func newManifestCmd(cfg *config.Config) *cobra.Command {
	var input, output, mappings, runID string
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Record the discovery manifest for the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := vendorcfg.LoadDir(mappings)
			if err != nil {
				return err
			}
			if runID == "" {
				runID = staging.NewRunID()
			}
			m := manifest.Build(runID, input, registry.Specs())
			path, err := m.Write(output)
			if err != nil {
				return err
			}
			fmt.Printf("Run id: %s\n", runID)
			fmt.Printf("Manifest: %s (%d files, %d readable rows)\n", path, len(m.Files), m.TotalRows())
			if failed := m.FailedFiles(); len(failed) > 0 {
				fmt.Printf("Warning: %d files not readable:\n", len(failed))
				for _, f := range failed {
					fmt.Printf("  %s (%s): %s\n", f.SourceFile, f.SourceVendor, f.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", cfg.InputDir, "Directory holding the vendor extracts")
	cmd.Flags().StringVar(&output, "output", cfg.OutputDir, "Directory for manifest artifacts")
	cmd.Flags().StringVar(&mappings, "mappings", cfg.MappingsDir, "Directory of vendor mapping specs")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id to stamp (default: generate a new one)")
	return cmd
}

func newIngestCmd(cfg *config.Config) *cobra.Command {
	var input, mappings, runID, driver, dsn string
	var workers int
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Stage all vendor extracts into raw_staging",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := vendorcfg.LoadDir(mappings)
			if err != nil {
				return err
			}
			store, err := openStore(driver, dsn, true)
			if err != nil {
				return err
			}
			if runID == "" {
				runID = staging.NewRunID()
			}
			orch := pipeline.NewOrchestrator(registry, store, input, workers)
			summary, runErr := orch.Run(cmd.Context(), runID)
			if err := printJSON(summary); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&input, "input", cfg.InputDir, "Directory holding the vendor extracts")
	cmd.Flags().StringVar(&mappings, "mappings", cfg.MappingsDir, "Directory of vendor mapping specs")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id to ingest under (default: generate a new one)")
	cmd.Flags().IntVar(&workers, "workers", cfg.Workers, "Vendors processed concurrently")
	dbFlags(cmd, cfg, &driver, &dsn)
	return cmd
}

func newSilverCmd(cfg *config.Config) *cobra.Command {
	var runID, rulesPath, driver, dsn string
	cmd := &cobra.Command{
		Use:   "silver",
		Short: "Normalize one run's raw rows into silver_members",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := silver.LoadRules(rulesPath)
			if err != nil {
				return err
			}
			store, err := openStore(driver, dsn, true)
			if err != nil {
				return err
			}
			result, err := silver.NewService(store, rules).Run(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if err := printJSON(result); err != nil {
				return err
			}
			stats, err := store.NormalizationStats(cmd.Context(), runID)
			if err != nil {
				return err
			}
			fmt.Println("Per-vendor normalization stats:")
			return printJSON(stats)
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id to normalize (required)")
	cmd.Flags().StringVar(&rulesPath, "rules", cfg.RulesFile, "Normalization rules file")
	dbFlags(cmd, cfg, &driver, &dsn)
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}

func newVerifyCmd(cfg *config.Config) *cobra.Command {
	var runID, driver, dsn string
	var audit bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check canonical/payload consistency for one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(driver, dsn, false)
			if err != nil {
				return err
			}
			verification, err := store.VerifyRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if err := printJSON(verification); err != nil {
				return err
			}
			if audit {
				counts, err := store.CountByVendor(cmd.Context(), runID)
				if err != nil {
					return err
				}
				fmt.Println("Rows per vendor:")
				if err := printJSON(counts); err != nil {
					return err
				}
				gaps, err := store.AuditFieldGaps(cmd.Context(), runID)
				if err != nil {
					return err
				}
				fmt.Println("Field gaps per vendor:")
				if err := printJSON(gaps); err != nil {
					return err
				}
			}
			if !verification.Clean() {
				return fmt.Errorf("run %s failed verification", runID)
			}
			fmt.Printf("Run %s verified: %d canonical rows, all paired\n", runID, verification.CanonicalCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id to verify (required)")
	cmd.Flags().BoolVar(&audit, "audit", false, "Also print per-vendor row counts and field gaps")
	dbFlags(cmd, cfg, &driver, &dsn)
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	var input, output, mappings, rulesPath, driver, dsn string
	var workers int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the full pipeline: manifest, ingest, silver, verify",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := vendorcfg.LoadDir(mappings)
			if err != nil {
				return err
			}
			rules, err := silver.LoadRules(rulesPath)
			if err != nil {
				return err
			}
			store, err := openStore(driver, dsn, true)
			if err != nil {
				return err
			}

			svc := pipeline.NewService(registry, store, rules, pipeline.Options{
				InputDir:  input,
				OutputDir: output,
				Workers:   workers,
			})
			if cfg.WebhookURL != "" {
				wh, err := notify.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookPayloadTemplate)
				if err != nil {
					return err
				}
				svc.AddNotifier(wh)
				log.Printf("Webhook notifier enabled for %s", cfg.WebhookURL)
			}
			if cfg.EmailTo != "" {
				mailer, err := notify.NewEmailNotifier(notify.EmailConfig{
					Host:     cfg.SMTPHost,
					Port:     cfg.SMTPPort,
					Username: cfg.SMTPUser,
					Password: cfg.SMTPPass,
					From:     cfg.EmailFrom,
					To:       cfg.EmailTo,
				})
				if err != nil {
					return err
				}
				svc.AddNotifier(mailer)
				log.Printf("Email notifier enabled for %s", cfg.EmailTo)
			}
			if cfg.NATSURL != "" {
				nc, err := nats.Connect(cfg.NATSURL,
					nats.Timeout(10*time.Second),
					nats.RetryOnFailedConnect(true),
					nats.MaxReconnects(5),
					nats.ReconnectWait(time.Second))
				if err != nil {
					return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
				}
				defer nc.Close()
				js, err := nc.JetStream()
				if err != nil {
					return fmt.Errorf("failed to create JetStream context: %w", err)
				}
				svc.AddNotifier(notify.NewNATSPublisher(js))
				log.Println("NATS run event publisher enabled.")
			}

			report, runErr := svc.Execute(cmd.Context(), staging.NewRunID())
			if err := printJSON(report); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&input, "input", cfg.InputDir, "Directory holding the vendor extracts")
	cmd.Flags().StringVar(&output, "output", cfg.OutputDir, "Directory for manifest artifacts")
	cmd.Flags().StringVar(&mappings, "mappings", cfg.MappingsDir, "Directory of vendor mapping specs")
	cmd.Flags().StringVar(&rulesPath, "rules", cfg.RulesFile, "Normalization rules file")
	cmd.Flags().IntVar(&workers, "workers", cfg.Workers, "Vendors processed concurrently")
	dbFlags(cmd, cfg, &driver, &dsn)
	return cmd
}
