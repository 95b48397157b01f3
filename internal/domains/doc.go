// Package domains exposes the handful of CDP domains the automation layer
// needs as thin typed wrappers over a cdp connection.
//
// Each command method builds the cdproto params, sends them and decodes the
// cdproto returns; nothing else. Event subscriptions decode the raw event
// params into the matching cdproto event type and return an unsubscribe
// function.
package domains
