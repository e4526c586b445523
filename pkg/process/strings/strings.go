// Package strings provides ready-made sequence steps for string items. Each
// constructor returns a step that rewrites the current item and advances
// immediately.
package strings

import (
	stdstrings "strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wehubfusion/Ariadne/pkg/sequence"
)

// Map returns a step that replaces each item with f(item).
func Map(f func(string) string) sequence.StepFunc[string] {
	return func(_ int, value string, cont *sequence.Continuation[string]) {
		cont.AdvanceWith(f(value))
	}
}

// Upper returns a step that uppercases each item for the given language.
func Upper(tag language.Tag) sequence.StepFunc[string] {
	caser := cases.Upper(tag)
	return Map(caser.String)
}

// Lower returns a step that lowercases each item for the given language.
func Lower(tag language.Tag) sequence.StepFunc[string] {
	caser := cases.Lower(tag)
	return Map(caser.String)
}

// Title returns a step that title-cases each item for the given language.
func Title(tag language.Tag) sequence.StepFunc[string] {
	caser := cases.Title(tag)
	return Map(caser.String)
}

// Trim returns a step that trims cutset from both ends of each item. An empty
// cutset trims unicode whitespace.
func Trim(cutset string) sequence.StepFunc[string] {
	return Map(func(s string) string {
		if cutset == "" {
			return stdstrings.TrimSpace(s)
		}
		return stdstrings.Trim(s, cutset)
	})
}

// StopOnEmpty returns a step that aborts the walk when it meets an empty
// item, and otherwise advances without touching the value.
func StopOnEmpty() sequence.StepFunc[string] {
	return func(_ int, value string, cont *sequence.Continuation[string]) {
		if value == "" {
			cont.Abort()
			return
		}
		cont.Advance()
	}
}
