// Package emit converts rows into records and hands them to the output
// boundary.
//
// An Emitter wraps each row in a Record, runs it through a Decorator that
// attaches instance-wide metadata, and passes it to a Publisher. Publishing
// is ordered and does not wait for the record to be processed; the only
// blocking a caller sees is backpressure applied by the Publisher itself
// (for example a full Queue).
package emit
