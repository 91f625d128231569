/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package dispatch provides a bounded-concurrency dispatcher of jobs.
//
// At most the configured number of jobs run simultaneously. Jobs submitted while all slots are busy
// wait in a FIFO queue and are started strictly in submission order as running jobs complete.
// Running jobs are never cancelled by the dispatcher.
package dispatch
