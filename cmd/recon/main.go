package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/recon-engine/internal/bulk"
	"github.com/dvloznov/recon-engine/internal/config"
	"github.com/dvloznov/recon-engine/internal/domain"
	"github.com/dvloznov/recon-engine/internal/engine"
	"github.com/dvloznov/recon-engine/internal/export"
	"github.com/dvloznov/recon-engine/internal/logger"
)

var (
	configPath string
	logLevel   string
	log        zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "Reconcile transaction feeds and detect duplicates",
	Long: `Recon matches transactions across two independent feeds (bank vs book),
clusters near-duplicates within a single feed, and produces auditable
resolution and discrepancy reports.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.New(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(bulkCmd)

	matchCmd.Flags().StringVar(&matchFeedA, "feed-a", "", "path to feed A JSON (required)")
	matchCmd.Flags().StringVar(&matchFeedB, "feed-b", "", "path to feed B JSON (required)")
	matchCmd.Flags().StringVar(&matchReport, "report", "", "write discrepancy report JSON to this path")
	matchCmd.MarkFlagRequired("feed-a")
	matchCmd.MarkFlagRequired("feed-b")

	dedupCmd.Flags().StringVar(&dedupFeed, "feed", "", "path to feed JSON (required)")
	dedupCmd.Flags().StringVar(&dedupKeep, "apply", "", "path to keep-selection JSON; resolves groups when set")
	dedupCmd.Flags().StringVar(&dedupAudit, "audit", "", "write audit log JSON to this path")
	dedupCmd.Flags().StringVar(&dedupClean, "clean", "", "write annotated clean-view CSV to this path")
	dedupCmd.MarkFlagRequired("feed")

	bulkCmd.Flags().StringVar(&bulkJobs, "jobs", "", "path to jobs JSON (required)")
	bulkCmd.Flags().IntVar(&bulkWorkers, "workers", 0, "worker count (0 = one per core)")
	bulkCmd.Flags().StringVar(&bulkOut, "out", "", "write full outcome JSON to this path")
	bulkCmd.MarkFlagRequired("jobs")
}

var (
	matchFeedA  string
	matchFeedB  string
	matchReport string
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match transactions between two feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		rowsA, err := loadRows(matchFeedA)
		if err != nil {
			return err
		}
		rowsB, err := loadRows(matchFeedB)
		if err != nil {
			return err
		}

		feedA := engine.Canonicalize("a", rowsA)
		feedB := engine.Canonicalize("b", rowsB)

		result, err := engine.Match(feedA, feedB, cfg.Settings)
		if err != nil {
			return err
		}
		report := engine.BuildDiscrepancyReport(result)

		printMatchSummary(result, report)

		if matchReport != "" {
			if err := writeTo(matchReport, func(f *os.File) error {
				return export.DiscrepancyJSON(f, report)
			}); err != nil {
				return err
			}
			log.Info().Str("path", matchReport).Msg("wrote discrepancy report")
		}
		return nil
	},
}

var (
	dedupFeed  string
	dedupKeep  string
	dedupAudit string
	dedupClean string
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Cluster duplicates within one feed, optionally resolve them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		rows, err := loadRows(dedupFeed)
		if err != nil {
			return err
		}
		txns := engine.Canonicalize("feed", rows)

		groups, err := engine.Cluster(txns, cfg.Settings)
		if err != nil {
			return err
		}
		printGroups(groups)

		if dedupKeep == "" && dedupAudit == "" && dedupClean == "" {
			return nil
		}

		keep := map[string]string{}
		if dedupKeep != "" {
			if err := loadJSON(dedupKeep, &keep); err != nil {
				return err
			}
		}

		auditLog, err := engine.Resolve(groups, keep)
		if err != nil {
			return err
		}
		log.Info().
			Int("groups", len(auditLog.Actions)).
			Int("removed", auditLog.Summary.RemovedCount).
			Msg("resolved duplicate groups")

		if dedupAudit != "" {
			if err := writeTo(dedupAudit, func(f *os.File) error {
				return export.AuditLogJSON(f, auditLog, "")
			}); err != nil {
				return err
			}
			log.Info().Str("path", dedupAudit).Msg("wrote audit log")
		}
		if dedupClean != "" {
			if err := writeTo(dedupClean, func(f *os.File) error {
				return export.CleanViewCSV(f, txns, auditLog)
			}); err != nil {
				return err
			}
			log.Info().Str("path", dedupClean).Msg("wrote clean view")
		}
		return nil
	},
}

var (
	bulkJobs    string
	bulkWorkers int
	bulkOut     string
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Reconcile many clients' feeds concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		var jobs []domain.BulkJob
		if err := loadJSON(bulkJobs, &jobs); err != nil {
			return err
		}

		workers := bulkWorkers
		if workers == 0 {
			workers = cfg.Bulk.Workers
		}
		orch := &bulk.Orchestrator{Workers: workers}

		ctx := logger.WithContext(cmd.Context(), log)
		outcome, err := orch.Run(ctx, jobs, cfg.Settings)
		if err != nil {
			return err
		}
		printBulkOutcome(outcome)

		if bulkOut != "" {
			if err := writeTo(bulkOut, func(f *os.File) error {
				return export.BulkOutcomeJSON(f, outcome)
			}); err != nil {
				return err
			}
			log.Info().Str("path", bulkOut).Msg("wrote bulk outcome")
		}
		return nil
	},
}

// loadRows reads a feed file: a JSON array of transaction-shaped objects
// as produced by the upstream statement/ledger parsers.
func loadRows(path string) ([]map[string]any, error) {
	var rows []map[string]any
	if err := loadJSON(path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeTo(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return write(f)
}

func printMatchSummary(result domain.MatchResult, report domain.DiscrepancyReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Matched", "Exact", "Fuzzy", "Only in A", "Only in B", "A residue total", "B residue total"})
	table.Append([]string{
		fmt.Sprintf("%d", report.MatchedCount),
		fmt.Sprintf("%d", report.ExactCount),
		fmt.Sprintf("%d", report.FuzzyCount),
		fmt.Sprintf("%d", len(report.OnlyInA)),
		fmt.Sprintf("%d", len(report.OnlyInB)),
		report.OnlyInATotal.StringFixed(2),
		report.OnlyInBTotal.StringFixed(2),
	})
	table.Render()

	if len(result.Pairs) == 0 {
		return
	}
	pairs := tablewriter.NewWriter(os.Stdout)
	pairs.SetHeader([]string{"A", "B", "Score", "Type"})
	for _, p := range result.Pairs {
		pairs.Append([]string{p.A.ID, p.B.ID, fmt.Sprintf("%.3f", p.Score), string(p.Type)})
	}
	pairs.Render()
}

func printGroups(groups []domain.DuplicateGroup) {
	if len(groups) == 0 {
		fmt.Println("No duplicate groups found.")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Group", "Label", "Members", "Min score"})
	for _, g := range groups {
		members := ""
		for i, id := range g.MemberIDs() {
			if i > 0 {
				members += ", "
			}
			members += id
		}
		table.Append([]string{g.GroupID, string(g.Label), members, fmt.Sprintf("%.3f", g.RepresentativeScore)})
	}
	table.Render()
}

func printBulkOutcome(outcome domain.BulkOutcome) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Client", "Status", "Matched", "Error"})
	for _, r := range outcome.Results {
		table.Append([]string{r.ClientID, string(r.Status), fmt.Sprintf("%d", r.MatchedCount), r.Err})
	}
	table.Render()

	fmt.Printf("succeeded=%d failed=%d total_matched=%d total_discrepancy=%s\n",
		outcome.Summary.Succeeded,
		outcome.Summary.Failed,
		outcome.Summary.TotalMatched,
		outcome.Summary.TotalDiscrepancyAmount.StringFixed(2),
	)
}
