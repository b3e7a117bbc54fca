package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ari/internal/config"
)

func newConfigCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage configuration",
	}
	cmd.AddCommand(newConfigShowCmd(opts))
	cmd.AddCommand(newConfigInitCmd(opts))
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigShowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration and where each value came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			display := *cfg
			if display.Provider.APIKey != "" {
				display.Provider.APIKey = "[redacted]"
			}

			data, err := yaml.Marshal(&display)
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			fmt.Print(string(data))

			if len(cfg.Sources) > 0 {
				keys := make([]string, 0, len(cfg.Sources))
				for key := range cfg.Sources {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				fmt.Println(gray("\n# overridden values"))
				for _, key := range keys {
					fmt.Printf("%s %s %s\n", gray("#"), key, gray("← "+string(cfg.Sources[key])))
				}
			}
			return nil
		},
	}
}

func newConfigInitCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Printf("%s wrote %s\n", green("✓"), path)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the default config file location",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.DefaultConfigPath())
		},
	}
}
