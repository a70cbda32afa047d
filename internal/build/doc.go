// Package build defines the build targets and the explicit build context that
// is threaded through manifest resolution, placeholder expansion and
// installation. There is no package-level build state.
package build
