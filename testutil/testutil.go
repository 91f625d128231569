/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains helpers for testing HTTP handlers and servers.
package testutil

type tHelper interface {
	Helper()
}
