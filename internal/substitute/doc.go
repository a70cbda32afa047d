// Package substitute expands {{{KEY}}} placeholder tokens in text. Expansion
// runs in passes until no token is replaced, so a value may introduce tokens
// resolved on a later pass. It performs no I/O.
package substitute
