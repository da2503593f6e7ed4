package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/riskscan/internal/probe"
)

// CheckSpec describes one check riskscan performs and its category.
type CheckSpec struct {
	Name     string
	Category probe.Category
}

// checkCatalog lists every check the scan command runs. Keep this slice in
// sync with the probe implementations; catalog_test.go validates the
// contents.
var checkCatalog = []CheckSpec{
	{Name: "Risky TCP port exposure", Category: probe.CategoryNetwork},
	{Name: "DNS resolution", Category: probe.CategoryNetwork},
	{Name: "Private IP in public DNS", Category: probe.CategoryNetwork},
	{Name: "TLS certificate expiry", Category: probe.CategoryWeb},
	{Name: "TLS protocol version", Category: probe.CategoryWeb},
	{Name: "Strict-Transport-Security header", Category: probe.CategoryWeb},
	{Name: "Content-Security-Policy header", Category: probe.CategoryWeb},
	{Name: "X-Frame-Options header", Category: probe.CategoryWeb},
	{Name: "X-Content-Type-Options header", Category: probe.CategoryWeb},
	{Name: "Referrer-Policy header", Category: probe.CategoryWeb},
	{Name: "Permissions-Policy header", Category: probe.CategoryWeb},
	{Name: "Cross-Origin isolation headers", Category: probe.CategoryWeb},
	{Name: "Deprecated X-XSS-Protection header", Category: probe.CategoryWeb},
	{Name: "Sensitive path exposure", Category: probe.CategoryWeb},
	{Name: "HTTP to HTTPS redirect", Category: probe.CategoryWeb},
	{Name: "SPF record", Category: probe.CategoryEmail},
	{Name: "DKIM record (common selectors)", Category: probe.CategoryEmail},
	{Name: "DMARC policy enforcement", Category: probe.CategoryEmail},
	{Name: "MX records", Category: probe.CategoryEmail},
	{Name: "A record health", Category: probe.CategorySystem},
	{Name: "Server information disclosure", Category: probe.CategorySystem},
	{Name: "Technology fingerprinting", Category: probe.CategorySystem},
}

func getCheckCatalog() []CheckSpec {
	out := make([]CheckSpec, len(checkCatalog))
	copy(out, checkCatalog)
	return out
}

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the checks performed during a scan",
	Run: func(cmd *cobra.Command, args []string) {
		byCategory := map[probe.Category][]string{}
		for _, spec := range getCheckCatalog() {
			byCategory[spec.Category] = append(byCategory[spec.Category], spec.Name)
		}

		categories := make([]string, 0, len(byCategory))
		for category := range byCategory {
			categories = append(categories, string(category))
		}
		sort.Strings(categories)

		for _, category := range categories {
			fmt.Printf("%s:\n", colorInfo(category))
			for _, name := range byCategory[probe.Category(category)] {
				fmt.Printf("  - %s\n", name)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(checksCmd)
}
