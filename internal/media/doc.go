// Package media defines the indexed file record and the pure functions that
// produce it: indexability, stable identity, and directory-derived tags.
package media
