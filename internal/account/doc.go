// Package account implements the connected-account registry.
//
// The server is stateless: the full list of connected accounts, including
// their provider tokens, travels with every request as an opaque encoded
// blob. This package owns that blob's codec and the in-memory operations
// on the decoded list (lookup, upsert, remove). Persistence of the encoded
// form is entirely the caller's responsibility.
//
// Decoding is defensive by contract: a corrupt or empty blob yields an
// empty account list, never an error. An empty list is indistinguishable
// from "not authenticated" and callers treat it as such.
package account
