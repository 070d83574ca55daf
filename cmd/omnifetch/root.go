package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PauloJuniorVitrine/omnifetch"
)

// All linker flags are set by release infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:           "omnifetch",
	Short:         "Issue JSON API requests with caching and retries.",
	Long:          `omnifetch issues JSON API requests through a client-side cache and retry layer, the same one the Omni Keywords Finder dashboard uses for its data fetching.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig wires environment variables and defaults into viper.
func initConfig() {
	viper.SetEnvPrefix("OMNIFETCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("timeout", omnifetch.DefaultTimeout)
	viper.SetDefault("retries", omnifetch.DefaultMaxAttempts)
	viper.SetDefault("retry-delay", omnifetch.DefaultRetryDelay)
	viper.SetDefault("cache-ttl", omnifetch.DefaultCacheTTL)
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("base-url", "", "base URL resolved against relative endpoints (env: OMNIFETCH_BASE_URL)")
	pf.String("token", "", "bearer token attached to requests (env: OMNIFETCH_TOKEN)")
	pf.Duration("timeout", omnifetch.DefaultTimeout, "per-attempt timeout")
	pf.Int("retries", omnifetch.DefaultMaxAttempts, "total transport attempts for transient failures")
	pf.Duration("retry-delay", omnifetch.DefaultRetryDelay, "wait between attempts")
	pf.Duration("cache-ttl", omnifetch.DefaultCacheTTL, "time-to-live for cached GET responses")
	pf.Bool("no-cache", false, "disable the response cache")
	pf.Bool("stats", false, "print cache statistics after the request")
	pf.Bool("verbose", false, "log request lifecycle events to stderr")

	for _, name := range []string{"base-url", "token", "timeout", "retries", "retry-delay", "cache-ttl", "no-cache", "stats", "verbose"} {
		if err := viper.BindPFlag(name, pf.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(newMethodCmd("get"))
	rootCmd.AddCommand(newMethodCmd("post"))
	rootCmd.AddCommand(newMethodCmd("put"))
	rootCmd.AddCommand(newMethodCmd("patch"))
	rootCmd.AddCommand(newMethodCmd("delete"))
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("omnifetch %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(1)
	}
}
