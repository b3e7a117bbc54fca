package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"ari/internal/config"
)

// Color helpers shared by every command.
var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// isTTY checks if the current environment has a TTY available
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// cliOptions carries the global flags into command constructors.
type cliOptions struct {
	configPath string
	provider   string
	model      string
	storage    string
	mock       bool
	plain      bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "ari",
		Short: "Conversational assistant with streaming replies and study tools",
		Long: fmt.Sprintf(`%s

ari is a conversational assistant core. It routes each message to a
response mode, streams the reply as it generates, tracks the session
mood, and can rewrite any text into summaries, quizzes, flashcards,
or bullet outlines.

%s
  ari                             # Chat in the most recent conversation
  ari chat --new                  # Start a fresh conversation
  ari serve                       # Run the HTTP API
  ari transform quiz notes.md     # Turn notes into a quiz
  ari import https://example.com  # Add reference material
  ari config show                 # Show effective configuration`,
			bold("ari"), bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return runOneShot(cmd, opts, strings.Join(args, " "))
			}
			if !isTTY() {
				return cmd.Help()
			}
			return runChat(cmd, opts, chatFlags{})
		},
		Args: cobra.ArbitraryArgs,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&opts.provider, "provider", "p", "", "Provider name (openai, openrouter, deepseek, ollama)")
	rootCmd.PersistentFlags().StringVarP(&opts.model, "model", "m", "", "Model name")
	rootCmd.PersistentFlags().StringVar(&opts.storage, "storage", "", "Conversation store backend (memory, file, sqlite)")
	rootCmd.PersistentFlags().BoolVar(&opts.mock, "mock", false, "Use the offline mock provider")
	rootCmd.PersistentFlags().BoolVar(&opts.plain, "plain", false, "Disable colors and terminal rendering")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newChatCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newTransformCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	viper.SetConfigName("ari-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("ARI")
	viper.AutomaticEnv()

	return rootCmd
}

// loadConfig resolves the config file (flag, then ari-config.yaml via
// viper's search path, then the default location) and applies flag
// overrides on top.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		if err := viper.ReadInConfig(); err == nil {
			path = viper.ConfigFileUsed()
		}
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if opts.provider != "" {
		cfg.Provider.Name = opts.provider
		cfg.Sources["provider.name"] = config.SourceOverride
	}
	if opts.model != "" {
		cfg.Provider.Model = opts.model
		cfg.Sources["provider.model"] = config.SourceOverride
	}
	if opts.storage != "" {
		cfg.Storage.Backend = opts.storage
		cfg.Sources["storage.backend"] = config.SourceOverride
	}
	return cfg, nil
}
