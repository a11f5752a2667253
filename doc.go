// Package jsbridge is a bidirectional marshalling layer between Go
// values and a single-threaded JavaScript engine (goja). It converts
// primitives, containers, structs, functions and host objects in both
// directions without per-call-site conversion code, and bridges
// asynchronous results across the thread boundary: the engine's value
// graph belongs to one owning goroutine, and AsyncCallback and Promise
// cross back into it through an Invoker that delivers work there in FIFO
// order.
package jsbridge
