// Package tune parses a small subset of ABC notation and drives the
// check-in note sequencer: a cursor over the parsed notes that advances
// exactly one step per check-in and loops forever.
package tune
