// Command strandctl is the demo/harness executable for the strand
// runtime: a cobra CLI that drives the built-in scenarios (ping-pong, a
// three-stage pipeline) against the real scheduler, and prints version
// information.
package main

func main() {
	Execute()
}
