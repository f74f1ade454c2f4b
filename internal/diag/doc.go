// Package diag defines the diagnostic model shared by the lexer, parser,
// capture walker and converter.
//
// Non-fatal findings (for example a value that degrades to an unconvertible
// placeholder) are Diagnostics emitted through a Reporter into a Bag. Fatal
// findings are returned as *Error values that carry a Code, a source position
// and a trace of the enclosing definitions they bubbled through. Both share the
// same Code space:
//
//   - LEX1xxx lexical
//   - SYN2xxx syntax
//   - CAP3xxx capture (walker, resolver)
//   - CNV4xxx conversion and result transform
//   - RUN5xxx host runtime
//   - STO6xxx store, wire and io
package diag
