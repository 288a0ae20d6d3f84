// Command assistant is the multi-agent coding assistant. It serves the chat
// over HTTP (serve) or in the terminal (chat). Generated code lands under
// GeneratedCode/ and documentation under Documentation/ in the output
// directory.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codingassistant/assistant/internal/config"
)

var (
	configFile string
	port       int
	variant    string
	outputDir  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Multi-agent coding assistant",
	Long: `A coordinator agent routes each request to a code-generating specialist
or a documentation specialist. Code is saved under GeneratedCode/<language>/,
explanations as .docx under Documentation/.`,
	SilenceUsage: true,
	RunE:         runChat, // the terminal chat is the default
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.IntVar(&port, "port", 0, "HTTP port (overrides ASSISTANT_PORT)")
	flags.StringVar(&variant, "variant", "", "agent topology: solo, code or full")
	flags.StringVar(&outputDir, "output-dir", "", "root directory for GeneratedCode/ and Documentation/")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")

	rootCmd.AddCommand(serveCmd, chatCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "assistant v%s\n", cfg.Version)
		return nil
	},
}

// loadConfig reads configuration and applies command-line overrides, then
// configures the global logger from the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if port > 0 {
		cfg.Port = port
	}
	if variant != "" {
		cfg.Variant = variant
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
