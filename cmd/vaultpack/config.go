// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vaultpack/internal/config"
	"vaultpack/internal/issue"

	"github.com/spf13/cobra"
)

// configCmd is the `vaultpack config` command tree.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vaultpack configuration",
	Long: `Manage vaultpack configuration.

A project-local vaultpack.cue takes precedence. The global file lives in:
  - Linux: ~/.config/vaultpack/config.cue
  - macOS: ~/Library/Application Support/vaultpack/config.cue
  - Windows: %APPDATA%\vaultpack\config.cue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd.Context())
		},
	})
}

func showConfig() error {
	loaded, err := config.Load()
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return err
	}
	fmt.Print(config.GenerateCUE(loaded))
	return nil
}

func initConfig() error {
	if err := config.CreateDefaultConfig(); err != nil {
		return err
	}
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	path := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
	fmt.Println(SuccessStyle.Render("✓ configuration ready: ") + PathStyle.Render(path))
	return nil
}

// showConfigPath prints the config file the lookup chain actually
// resolved to, or the global default location when running on built-in
// defaults.
func showConfigPath(ctx context.Context) error {
	provider := config.NewProvider(config.LoadOptions{ConfigFilePath: cfgFile})
	_, resolved, err := provider.Load(ctx)
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return err
	}

	if resolved != "" {
		fmt.Println(resolved)
		return nil
	}

	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Println(filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt) +
		SubtitleStyle.Render(" (not created yet; using defaults)"))
	return nil
}
