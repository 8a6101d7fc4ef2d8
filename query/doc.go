// Package query places compiled pushdown fragments into remote query text.
//
// Two entry points exist. Rewrite, AppendLimit and WrapCount edit query text
// supplied by a user, locating clauses with a small lexer that skips
// comments, string literals and quoted identifiers and only looks at the top
// parenthesis level. Select builds the query from a table reference, for
// scans synthesized by the engine.
//
// The rewriter only handles a single SELECT ... FROM statement. Set
// operations, WITH prefixes and multiple statements are rejected with
// ErrUnsupported; callers run the original text and filter locally.
package query
