// Package outdated decides which reps must be recompiled and keeps the
// outdatedness and action-sequence state carried between runs.
package outdated
