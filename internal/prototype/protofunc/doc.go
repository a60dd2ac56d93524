// Package protofunc parses and evaluates protofunctions: named function
// calls embedded in string attribute values using $name(arg, ...) syntax.
//
// Parsing happens in three steps. Bare object-reference tokens (#12) are
// first rewritten into explicit $obj(#12) calls. The string is then scanned
// for calls against a registry of named functions, evaluating them
// left-to-right with nested calls resolved first, and interpolating results
// back into the string; a string that is exactly one call yields the call's
// native result. Finally, string results are run through a literal decoder so
// "[1, 2]" or "true" come back as the data they denote.
//
// Functions are sourced from Go code and from Lua modules. Evaluation errors
// and literal-decode misses never abort a parse: the raw text is kept and the
// problem is recorded as a diagnostic, surfaced by ParseForTest.
package protofunc
