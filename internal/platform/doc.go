// Package platform manages the protection state of generated files. A file
// is either Writable (0644) or ReadOnly (0444); directories always keep
// 0755. On Windows permission changes are no-ops because Windows does not
// support Unix-style permission bits.
package platform
