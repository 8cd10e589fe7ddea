// Package broadcast implements the subscription registry and fan-out hub
// using the actor pattern.
//
// A single goroutine owns all state and consumes a typed command channel
// (no mutexes). Each connection gets a writer goroutine with a bounded send
// buffer; a full buffer marks the client as slow and evicts it so one stuck
// subscriber never delays the rest. Delivery order within one collection
// matches publish order.
package broadcast
