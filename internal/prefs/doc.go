// Package prefs resolves, for every distinct recipient address of one send
// attempt, how the message must be delivered: the encryption scheme, the MIME
// type the recipient receives and whether the package is signed.
//
// Resolution queries a [Lookup] for each address in parallel. Each lookup
// writes exactly one slot of the result, and the slots are collected into an
// immutable [Preferences] map once every lookup has returned. A failed lookup
// becomes a [Failure] on that address; it never aborts the other lookups and
// never removes the address from the result.
package prefs
