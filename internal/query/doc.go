// Package query turns a statement with named placeholders into a lazy
// sequence of rows.
//
// Placeholders use the :name form. Parse records them once; Bind rewrites
// them into the positional syntax of the target dialect and resolves each one
// against a parameter map. Binding happens before anything is sent to the
// database, so an unresolved parameter never reaches the driver.
//
// Executor.Execute runs a bound statement and returns *Rows, a forward-only
// cursor over the result set in the order the database returns it. A Rows
// value is consumed once; every execution issues a fresh query.
package query
