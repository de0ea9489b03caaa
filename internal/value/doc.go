// Package value provides the tagged sensor value model and range predicates
// for Hearth Core.
//
// Values are what device inputs produce (a temperature reading, a door
// contact, a free-form JSON document from a vendor bridge) and what monitor
// statements send back out. Ranges are the predicates monitor conditions
// test those values against.
//
// # Key Types
//
//   - Value: Tagged union of Bool, String, Num, Vec, JSON and Blob
//   - Range: Tagged predicate (Any, EqBool, EqString, Leq, Geq, BetweenEq, OutOfStrict)
//
// Matching is a total function: every (value, range) pair yields a defined
// verdict, and a type mismatch between a value and a range is a non-match,
// never an error.
//
// # Thread Safety
//
// Value and Range are immutable after construction and safe to share between
// goroutines.
package value
