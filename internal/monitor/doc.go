// Package monitor provides the reactive rule engine for Hearth Core.
//
// A monitor is a user-authored script: "when X happens, do Y". It declares
// abstract device requirements, carries the devices allocated to them, and
// holds an ordered set of triggers. Each trigger guards a conjunction of
// range conditions over sensor inputs and executes device actions when the
// guard transitions from false to true.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────┐
//	│                 Execution (execution.go)                  │
//	│  start/stop lifecycle, one goroutine per running script   │
//	│                                                           │
//	│  Script ──▶ Binder ──▶ CompiledScript                    │
//	│  (types.go) (binder.go)  (compiled.go)                    │
//	│                             │                             │
//	│     DevEnv.Watch callbacks ─┴─▶ op channel ─▶ event loop │
//	│     cell writes, edge-triggered IsMet (eval.go),          │
//	│     statement dispatch via DevEnv.Send                    │
//	└──────────────────────────────────────────────────────────┘
//
// # Two-phase lifecycle
//
// A Script is unchecked: conditions and statements reference requirements by
// index and carry no runtime state. Binding produces a CompiledScript whose
// conditions hold shared live value cells and mutable truth flags. The two
// forms are distinct types, so compiled-only operations (IsMet, Eval) are
// unreachable on an unbound tree.
//
// # Concurrency
//
// Each running script owns one goroutine. Device watch callbacks run on
// watcher-owned goroutines and only enqueue messages; the event loop is the
// single consumer and the single writer of all trigger and condition state.
// Individual cells carry their own lock because the data model anticipates
// shared readers outside the loop.
//
// # Usage
//
//	binder := monitor.NewEnvBinder(deviceRegistry)
//	exec := monitor.NewExecution("night-alarm", binder, env, monitor.Hooks{Logger: log})
//
//	exec.Start(script, func(err error) { ... })
//	exec.Stop(func(err error) { ... })
//
// The Manager wraps many named monitors behind one thread-safe surface for
// the HTTP API.
package monitor
