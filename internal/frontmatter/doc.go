// Package frontmatter reads the optional YAML header of a steering markdown
// file into a typed record with named defaults, and extracts sections of the
// markdown body by heading. Parsing is line oriented; malformed headers are
// reported through ErrMalformed rather than guessed at.
package frontmatter
