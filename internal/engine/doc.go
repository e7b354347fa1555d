// Package engine compiles item reps by executing their action sequences.
//
// Each rep to compile gets a cooperative task. A task runs on its own
// goroutine, but control is handed back and forth over channels so exactly
// one task executes at any moment:
//
//	scheduler --resume--> task
//	scheduler <--yield--- task   (suspended | done | failed)
//
// A task suspends when it asks for compiled content that does not exist
// yet. The scheduler parks it, moves the rep it waits on to the front of
// the ready queue, and resumes it once that rep has the snapshot. Since
// only one task runs at a time, the stores shared by tasks need no locks
// and dependency edges are recorded in a deterministic order.
//
// When nothing is runnable but tasks are still suspended, the wait graph
// is searched for strongly connected components (Tarjan). A cycle aborts
// the run with a DependencyCycleError.
//
// Task states:
//
//	Pending -> Running -> Done
//	              |  ^
//	              v  |
//	          Suspended(waiting on rep@snapshot)
//	              |
//	              v
//	            Failed
package engine
