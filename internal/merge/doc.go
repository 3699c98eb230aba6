// Package merge concatenates an ordered merge set into a single artifact
// without re-encoding.
package merge
