// Package apptest provides a fake mail application for automation tests.
//
// The application runs in a goja JavaScript runtime and exposes the same
// compose surface the default profile expects: a registry of drafts under
// window.MailApp.composer.sessions, per-draft setters, a save method
// returning a promise, and close actions. Timing quirks of a real client
// (late editor initialisation, asynchronous rendering, delayed persistence)
// are driven by Options.
//
// An App answers Runtime.evaluate directly, so it can back an
// evaluator.Evaluator in-process, or be installed on a cdptest.Browser to
// be reached over a real DevTools socket.
package apptest
