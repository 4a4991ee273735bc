package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-strand/strand/pkg/conf"
	"github.com/go-strand/strand/pkg/log"
	"github.com/go-strand/strand/pkg/runner"
	"github.com/go-strand/strand/pkg/trace"
	"github.com/go-strand/strand/pkg/version"
)

var (
	logLevel   string
	configDir  string
	runtimeCfg *conf.Runtime
)

var rootCmd = &cobra.Command{
	Use:   "strandctl",
	Short: "strandctl drives the strand scheduler's seed scenarios",
	Long:  "strandctl is a demo harness for the strand concurrency runtime: a Disruptor-style ring buffer paired with a cooperative fiber scheduler.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if _, ok := log.ParseLogLevel(logLevel); !ok {
			fmt.Fprintf(os.Stderr, "strandctl: unrecognized --log-level %q, falling back to info\n", logLevel)
		}

		logConf := log.SetDefaults()
		logConf.Level = logLevel
		log.MustInit(logConf)

		rt := conf.DefaultRuntime()
		if configDir != "" {
			loaded, err := conf.LoadRuntime(configDir)
			if err != nil {
				log.GetLogger().Warnw("falling back to default runtime tuning", "configDir", configDir, "error", err)
			} else {
				rt = loaded
			}
		}
		runtimeCfg = rt
		log.GetLogger().Debugw("strandctl starting", "host", runner.Hostname, "pwd", runner.Pwd, "pid", runner.PID)

		if err := trace.Init(rt.Trace); err != nil {
			log.GetLogger().Warnw("tracing disabled", "error", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := trace.Shutdown(context.Background()); err != nil {
			log.GetLogger().Warnw("tracing shutdown failed", "error", err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.toml with scheduler tuning overrides")
	rootCmd.AddCommand(version.VersionCmd)
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI, exiting the process with a non-zero status on
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
