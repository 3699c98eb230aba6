// Package locale renders operator-facing text in English or Russian using
// golang.org/x/text message catalogs.
package locale
