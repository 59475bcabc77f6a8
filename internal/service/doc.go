// Package service implements bounded execution of repair subprocesses.
//
// Overview
// Supervisor runs one repair Task on a dedicated goroutine and waits for it
// at most for a time budget. The wait ends with exactly one Outcome:
// Patched, TimedOut, Failed or Interrupted. The worker is abandoned, not
// joined, when the budget elapses or the parent context is cancelled, so a
// late result is dropped on a buffered channel and never observed.
//
// After a timeout the Supervisor calls its Sweeper once. ProcessSweeper
// kills every process whose command line contains a pattern, which is how
// children spawned by an abandoned engine (fault localization agents,
// solvers) are cleaned up.
//
// Runner is a thin, opinionated wrapper around os/exec:
//   - starts the process in its own process group
//   - captures stdout
//   - streams stderr line by line to a callback
//   - kills the whole group on timeout or cancellation
//
// Data flow:
//
//   Step              Supervisor             worker goroutine      Runner{cmd}
//     |                   |                        |                   |
//     | Supervise() ----->| go task(ctx) --------->| Build() --------->| Start()
//     |                   | select:                |                   | os/exec.Start
//     |                   |   done / timer / ctx   |<---- Result ------|
//     |                   |<------ patches --------|                   |
//     |                   | timeout: Sweep()                           |
//     |<---- Outcome -----|                                            |
//
// Invariants:
//   - Supervise returns exactly one terminal Outcome per call.
//   - Supervise never waits longer than the budget for the task.
//   - The sweeper runs at most once per call and only after a timeout.
//   - Sweep errors are logged, never returned.
package service
