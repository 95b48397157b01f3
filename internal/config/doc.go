// Package config resolves the automation profile.
//
// A Profile describes how to find the mail application's window and how to
// reach into its compose surface: the expression yielding the registry of
// open compose sessions, the action that opens a new one, per-field getters
// and setters, the save entry point, the dirty flag and the ordered list of
// close candidates. The remote application is unversioned, so all of this
// is data rather than code.
//
// Values are layered, later layers winning:
//
//  1. DefaultProfile
//  2. the YAML profile file (MAILCDP_PROFILE or --profile), read through afero
//  3. MAILCDP_* environment variables
//  4. command line flags
package config
