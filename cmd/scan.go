package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/riskscan/internal/probe"
	"github.com/khanhnv2901/riskscan/internal/scan"
)

const (
	jsonPrefix      = ""
	jsonIndent      = "  "
	defaultFilePerm = 0o644
)

var (
	scanNetwork  bool
	scanWeb      bool
	scanEmail    bool
	scanSSL      bool
	scanSystem   bool
	scanOutput   string
	scanProgress bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Run a security scan against a domain",
	Long: `Scan a target domain and produce a risk assessment.

The target may be a bare domain, a URL, or an email address; it is
normalized to a hostname. Probes cover network exposure, web and TLS
posture, email authentication, and DNS health.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanNetwork, "network", true, "run the network port probe")
	scanCmd.Flags().BoolVar(&scanWeb, "web", true, "run the web security probe")
	scanCmd.Flags().BoolVar(&scanEmail, "email", true, "run the email authentication probe")
	scanCmd.Flags().BoolVar(&scanSSL, "ssl", true, "inspect the TLS certificate (requires --web)")
	scanCmd.Flags().BoolVar(&scanSystem, "system", true, "run the system/DNS probe")
	scanCmd.Flags().IntVar(&cliConfig.Scan.TimeoutSecs, "timeout", defaultProbeTimeoutSecs, "per-probe timeout in seconds")
	scanCmd.Flags().IntVar(&cliConfig.Scan.DeadlineSecs, "deadline", defaultDeadlineSecs, "overall scan deadline in seconds")
	scanCmd.Flags().IntVar(&cliConfig.Scan.Workers, "workers", defaultPortWorkers, "port scan worker count")
	scanCmd.Flags().IntVar(&cliConfig.Scan.RateLimit, "rate-limit", defaultRateLimit, "max probe requests per second (0 = unlimited)")
	scanCmd.Flags().IntSliceVar(&cliConfig.Scan.Ports, "ports", nil, "override the scanned port list")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "f", "", "write the JSON report to this file")
	scanCmd.Flags().BoolVar(&scanProgress, "progress", true, "show live progress")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := scan.Config{
		ProbeTimeout: time.Duration(cliConfig.Scan.TimeoutSecs) * time.Second,
		PortTimeout:  time.Duration(cliConfig.Scan.PortTimeoutSecs) * time.Second,
		Deadline:     time.Duration(cliConfig.Scan.DeadlineSecs) * time.Second,
		Ports:        cliConfig.Scan.Ports,
		MaxWorkers:   cliConfig.Scan.Workers,
		RateLimit:    rate.Limit(cliConfig.Scan.RateLimit),
	}

	var progress *progressPrinter
	orch := &scan.Orchestrator{
		Config: cfg,
		Logger: logger,
	}
	if scanProgress {
		progress = newProgressPrinter()
		orch.Observer = progress
	}

	req := scan.Request{
		Target: args[0],
		Options: scan.Options{
			Network: scanNetwork,
			Web:     scanWeb,
			Email:   scanEmail,
			SSL:     scanSSL,
			System:  scanSystem,
		},
	}

	report, err := orch.Run(cmd.Context(), req)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return err
	}

	printSummary(report)

	if scanOutput != "" {
		if err := writeReport(report, scanOutput); err != nil {
			return err
		}
		fmt.Printf("%s report written to %s\n", colorSuccess("OK"), scanOutput)
	}
	return nil
}

func printSummary(report *scan.Report) {
	fmt.Printf("\nScan %s for %s: %s\n", report.ScanID, report.Target, formatStatusWithColor(string(report.Status)))
	if report.Error != "" {
		fmt.Printf("  %s %s\n", colorError("error:"), report.Error)
	}
	if ra := report.RiskAssessment; ra != nil {
		fmt.Printf("  Overall score: %.1f/100  Grade: %s  Risk: %s\n",
			ra.OverallScore, ra.Grade, formatRiskLevelWithColor(ra.RiskLevel))
		for _, category := range []probe.Category{
			probe.CategoryNetwork, probe.CategoryWeb, probe.CategoryEmail, probe.CategorySystem,
		} {
			if score, ok := ra.ComponentScores[category]; ok {
				fmt.Printf("    %-8s %.1f\n", category, score)
			}
		}
	}

	if len(report.Findings) > 0 {
		fmt.Printf("\n  Findings (%d):\n", len(report.Findings))
		for _, f := range report.Findings {
			fmt.Printf("    [%s] %s\n", formatSeverityWithColor(f.Severity), f.Title)
		}
	}

	if len(report.Recommendations) > 0 {
		fmt.Println("\n  Recommendations:")
		for i, rec := range report.Recommendations {
			fmt.Printf("    %d. %s\n", i+1, rec)
		}
	}
	fmt.Println()
}

func writeReport(report *scan.Report, path string) error {
	b, err := json.MarshalIndent(report, jsonPrefix, jsonIndent)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, b, defaultFilePerm); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
