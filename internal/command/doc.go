// Package command turns one line of free text into a validated, dispatched
// function call.
//
// A registry maps case-insensitive command names to handlers with declared
// required/optional argument names. Parse errors (blank input, unknown name,
// missing arguments) are typed so the webhook layer can render localized
// replies; errors raised by a handler itself pass through untouched.
package command
