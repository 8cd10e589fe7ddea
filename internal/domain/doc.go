// Package domain holds the core types shared between the server and the
// dashboard: check-in events, the websocket envelope protocol, statistics
// snapshots and sentinel errors. It has no dependencies on transport or
// presentation code.
package domain
