// Package installer runs the install sequence for one package and target:
//
//	unlock -> purge -> materialize -> lock -> update-registry -> done
//
// Any step may end in failed. A registry failure is the exception: the
// files are already in place, so it is recorded in the report with a
// fallback message and the run still succeeds.
package installer
