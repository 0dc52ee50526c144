// Package toast delivers transient error notifications, collapsing
// repeats of the same message within a configurable window so burst
// failures surface as a single toast.
package toast
