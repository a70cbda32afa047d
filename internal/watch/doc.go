// Package watch rebuilds the dev-watch output whenever a source file
// changes. After one full build it rewrites only the files whose sources
// changed, unlocking and relocking each one, and falls back to a full
// rebuild when the manifest or a section source changes.
package watch
