// Package userdata resolves where steerkit writes: the Kiro powers root,
// per-package install roots, the registry document, and the distribution
// and dev-watch output roots. It also implements the doctor health check
// for an installed package.
package userdata
