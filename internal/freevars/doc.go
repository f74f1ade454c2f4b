// Package freevars performs the syntactic scope analysis used by capture:
// which member-access chains a def, lambda, class or with-block reads from
// outside itself, which names each scope binds, and which statements make a
// block impossible to lift out of its frame.
//
// Scoping follows the host language: assignment anywhere in a function makes
// the name local to the whole function, class bodies do not enclose the
// functions defined in them, comprehensions open their own scope, and default
// values and base classes are evaluated in the enclosing scope.
package freevars
