package waitstrategy

// procYield is a pure busy-spin tick: unlike runtime.Gosched it does not
// hand the P back to the scheduler, so it is only ever used for the
// first, shortest tier of a Tiered wait.
func procYield() {
	for i := 0; i < 30; i++ {
	}
}
