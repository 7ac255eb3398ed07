// Package loop provides the single-threaded event loop that editor
// callbacks run on, together with the Scheduler seam used for timers.
//
// Extensions never call time.AfterFunc directly: they ask their Scheduler,
// which in production posts timer callbacks back onto the Loop goroutine and
// in tests is a manual clock (see package looptest).
package loop
