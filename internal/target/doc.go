// Package target discovers debuggable targets through the DevTools HTTP
// listing endpoint and picks the mail application's foreground page.
//
// The Electron app exposes several targets: the interactive window, a
// background process page and assorted workers. SelectPrimary applies a
// MatchRule to find the one page that represents the visible window.
package target
