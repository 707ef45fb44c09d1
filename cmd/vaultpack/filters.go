// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"vaultpack/internal/filter"
	"vaultpack/internal/issue"
	"vaultpack/internal/pack"

	"github.com/spf13/cobra"
)

// filtersCmd shows the workspace filter rules the next build would use.
var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Show the resolved workspace filter rules",
	Long: `Show the workspace filter rules loaded from the work directory's
filter.xml, in the order the build resolves them.

A package without any rules includes the whole source tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}

		filterPath := filepath.Join(cfg.WorkDir, filepath.FromSlash(pack.MetaDir), pack.FilterXML)
		filters, err := filter.Load(filterPath)
		if err != nil {
			rendered, _ := issue.Get(issue.FilterParseErrorId).Render("dark")
			fmt.Fprint(os.Stderr, rendered)
			return err
		}

		fmt.Println(TitleStyle.Render("Workspace filter") + SubtitleStyle.Render(" "+filterPath))
		if len(filters.Rules) == 0 {
			fmt.Println(SubtitleStyle.Render("  (no rules: the whole source tree is included)"))
			return nil
		}
		for i, rule := range filters.Rules {
			fmt.Printf("  %2d. %s\n", i+1, PathStyle.Render(rule.Root))
		}
		return nil
	},
}
