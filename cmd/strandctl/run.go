package main

import "github.com/spf13/cobra"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run one of the built-in concurrency scenarios",
}

func init() {
	runCmd.AddCommand(pingpongCmd)
	runCmd.AddCommand(pipelineCmd)
}
