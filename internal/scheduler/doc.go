// Package scheduler runs daily-recurring jobs for the bot.
//
// # Overview
//
// Jobs are registered with a fire time of day ("HH:MM", UTC) and an action.
// A single background worker wakes on a coarse interval, fires due jobs,
// and recomputes each job's next run. Callers administer jobs concurrently
// through Register/Remove/Enable/Disable and read state via Status.
//
// # Concurrency
//
// One mutex guards the job map. Actions run outside the critical section,
// so a long-running broadcast never blocks a status query or another
// registration. The worker loop is single-threaded: a job is never executing
// twice at once, and jobs due in the same tick all fire within that tick.
//
// # Failure containment
//
// An action error (or panic) is logged and surfaced by Execute; it never
// terminates the worker loop. Disabled jobs are skipped at fire time but
// keep advancing their next run.
package scheduler
