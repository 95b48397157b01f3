// Package session attaches to the mail application's main window.
//
// Connect discovers the debuggable targets on a host endpoint, picks the
// primary window with a target.MatchRule, dials its DevTools socket and
// wires the domain proxies and the remote evaluator on top of the
// connection. Finding no matching window is not an error: Connect returns
// a nil session so callers can report "not attached" and exit cleanly.
package session
