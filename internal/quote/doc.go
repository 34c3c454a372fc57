// Package quote turns raw literary-clock rows into the records stored in the
// quotes table.
//
// A source row has five fields in a fixed order:
//
//	time | fragment | quote | book | author
//
// and becomes a Record with:
//   - Minute: minutes since midnight, hours*60 + minutes from "HH:MM"
//   - Text: the quote with the first occurrence of fragment wrapped in <b></b>
//   - Book, Author: copied from the row
//
// Text, Book and Author all pass through NormalizeQuotes, which collapses
// runs of double quotes into a single apostrophe. Consumers of existing
// quote stores depend on those exact output values.
//
// This package has no I/O and imports nothing internal.
package quote
