// Package registry reads and updates the JSON document that records which
// packages are installed and where their files came from. Updates replace
// exactly one package entry and one source entry; every other entry is
// carried through as raw JSON and written back unchanged.
package registry
