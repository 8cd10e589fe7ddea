// Package eventmobi is a client for the EventMobi Unified API (v4).
//
// Every operation takes the caller's API key as a parameter; the key is
// never stored server-side. Calls run through a shared circuit breaker so
// a struggling upstream degrades to fast failures instead of piling up
// request goroutines.
package eventmobi
