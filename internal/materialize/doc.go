// Package materialize turns one resolved mapping into one destination file:
// read the source, expand placeholders, write the result.
package materialize
