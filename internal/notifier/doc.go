// Package notifier delivers text messages to the configured chat.
//
// Delivery is synchronous: Notify returns only after the message was accepted
// by the transport or every retry failed. Calls are throttled by a token
// bucket and failed sends are retried with jittered exponential backoff.
//
// A failure is returned as a homework delivery error so callers can tell it
// apart from fetch and validation failures.
//
// The service keeps a small in-memory history of delivered messages for the
// send-test command and for debugging.
package notifier
