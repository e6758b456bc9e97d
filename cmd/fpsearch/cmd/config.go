package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/fpsearch/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user/global configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/fpsearch/config.yaml)
  3. Project config (.fpsearch.yaml)
  4. Environment variables (FPSEARCH_*, also read from .env)`,
		Example: `  # Create user config with default values
  fpsearch config init

  # Show effective configuration (merged from all sources)
  fpsearch config show

  # Print user config file path
  fpsearch config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file with default values.

The file is created at ~/.config/fpsearch/config.yaml
(or $XDG_CONFIG_HOME/fpsearch/config.yaml if XDG_CONFIG_HOME is set).
With --force an existing file is backed up and replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration (a backup is kept)")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := newWriter(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}
			if out.IsJSON() {
				return out.JSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out, err := newWriter(cmd)
	if err != nil {
		return err
	}
	configPath := config.GetUserConfigPath()

	var backupPath string
	if config.UserConfigExists() {
		if !force {
			if out.IsJSON() {
				return out.JSON(map[string]any{"path": configPath, "created": false})
			}
			out.Warningf("User configuration already exists: %s", configPath)
			out.Status("💡", "Use --force to replace it (a backup is kept)")
			return nil
		}
		backupPath, err = config.BackupFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
	}

	if err := config.NewConfig().WriteYAML(configPath); err != nil {
		return err
	}

	if out.IsJSON() {
		return out.JSON(map[string]any{"path": configPath, "created": true, "backup": backupPath})
	}
	out.Successf("Created user configuration: %s", configPath)
	if backupPath != "" {
		out.Status("💾", "Backup: "+backupPath)
	}
	return nil
}
