// Package convert is a declarative object-graph conversion engine.
//
// A Definition pairs a list of conversion rules with source/destination
// types and options, and converts one object into another, recursing
// into nested rule sets for child values.
//
// # Key types
//
//   - Rule: canonical (destination, source, options) triple all raw rule
//     forms normalize to
//   - Definition: a reusable rule set (types, rules, options, washers, hooks)
//   - Adapter: getter/setter capability set injected per representation
//     (maps, structs, XML trees, row groups, relational rows)
//   - Registry: named converter lookup shared between rule sets
//
// # Rule forms
//
// Rules accept several raw shapes, normalized with a fixed precedence:
//
//	"a"                            copy a -> a
//	[]any{"a"}                     copy a -> a
//	[]any{"b", "a"}                copy a -> b
//	[]any{"b", fn}                 convert b with fn
//	[]any{"b", opts}               copy b with options
//	[]any{"c", NotOnSource, dflt}  no source field, use default
//	[]any{"d", "a", fn}            convert a -> d with fn
//	fn                             whole-source computed value
//
// Typed constructors (Copy, Rename, Field, Absent, Computed) produce the
// same canonical rules without the dynamic forms.
//
// # Context
//
// Each conversion tree carries a stack-scoped context. Entering a
// conversion merges {previous, built, caller-supplied} and restores the
// previous context on exit, including on error unwind. Values found in
// the context act as a fallback when the source has no matching field.
package convert
