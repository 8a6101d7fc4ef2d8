package filter

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
)

// FilterType identifies the kind of a table filter.
type FilterType string

const (
	TypeConstantComparison FilterType = "CONSTANT_COMPARISON"
	TypeIsNull             FilterType = "IS_NULL"
	TypeIsNotNull          FilterType = "IS_NOT_NULL"
	TypeInSet              FilterType = "IN_FILTER"
	TypeConjunctionAnd     FilterType = "CONJUNCTION_AND"
	TypeConjunctionOr      FilterType = "CONJUNCTION_OR"
	TypeOptional           FilterType = "OPTIONAL_FILTER"
	TypeDeferred           FilterType = "DYNAMIC_FILTER"
)

// ComparisonType identifies the operator of a ConstantComparison.
type ComparisonType string

const (
	CompareEqual              ComparisonType = "COMPARE_EQUAL"
	CompareNotEqual           ComparisonType = "COMPARE_NOTEQUAL"
	CompareLessThan           ComparisonType = "COMPARE_LESSTHAN"
	CompareGreaterThan        ComparisonType = "COMPARE_GREATERTHAN"
	CompareLessThanOrEqual    ComparisonType = "COMPARE_LESSTHANOREQUALTO"
	CompareGreaterThanOrEqual ComparisonType = "COMPARE_GREATERTHANOREQUALTO"
	CompareDistinctFrom       ComparisonType = "COMPARE_DISTINCT_FROM"
	CompareNotDistinctFrom    ComparisonType = "COMPARE_NOT_DISTINCT_FROM"
)

// Filter is a node of a table filter tree. The set of implementations is
// closed: ConstantComparison, IsNull, IsNotNull, InSet, And, Or, Optional
// and Deferred. A filter does not know its column; the column is given by
// the Set entry that holds the root of the tree.
type Filter interface {
	// Type returns the filter kind.
	Type() FilterType

	// filterMarker prevents implementations outside this package.
	filterMarker()
}

// ConstantComparison compares the column with a constant.
type ConstantComparison struct {
	Op    ComparisonType
	Value Value
}

// IsNull matches rows where the column is NULL.
type IsNull struct{}

// IsNotNull matches rows where the column is not NULL.
type IsNotNull struct{}

// InSet matches rows where the column equals one of Values.
// Values MUST NOT be empty.
type InSet struct {
	Values []Value
}

// And matches rows accepted by every child.
type And struct {
	Children []Filter
}

// Or matches rows accepted by at least one child.
type Or struct {
	Children []Filter
}

// Optional wraps a filter that the engine may skip. Pushing it is allowed
// but never required for correctness.
type Optional struct {
	Child Filter
}

// Deferred is a placeholder for a filter whose value becomes known during
// execution, e.g. from the build side of a join. Until Resolve is called it
// compiles to nothing. Resolve may be called from another goroutine.
type Deferred struct {
	resolved atomic.Pointer[resolvedFilter]
}

type resolvedFilter struct {
	filter Filter
}

func (*ConstantComparison) Type() FilterType { return TypeConstantComparison }
func (*IsNull) Type() FilterType             { return TypeIsNull }
func (*IsNotNull) Type() FilterType          { return TypeIsNotNull }
func (*InSet) Type() FilterType              { return TypeInSet }
func (*And) Type() FilterType                { return TypeConjunctionAnd }
func (*Or) Type() FilterType                 { return TypeConjunctionOr }
func (*Optional) Type() FilterType           { return TypeOptional }
func (*Deferred) Type() FilterType           { return TypeDeferred }

func (*ConstantComparison) filterMarker() {}
func (*IsNull) filterMarker()             {}
func (*IsNotNull) filterMarker()          {}
func (*InSet) filterMarker()              {}
func (*And) filterMarker()                {}
func (*Or) filterMarker()                 {}
func (*Optional) filterMarker()           {}
func (*Deferred) filterMarker()           {}

// Resolve sets the concrete filter. Passing nil clears the placeholder.
func (d *Deferred) Resolve(f Filter) {
	if f == nil {
		d.resolved.Store(nil)
		return
	}
	d.resolved.Store(&resolvedFilter{filter: f})
}

// Resolved returns the concrete filter, or nil while unresolved.
func (d *Deferred) Resolved() Filter {
	r := d.resolved.Load()
	if r == nil {
		return nil
	}
	return r.filter
}

// Columns is the projected column list used to address filters.
// Index i is the i-th column of the projection, not of the base table,
// whenever a projection has been applied.
type Columns []string

// Name returns the column name at index i.
func (c Columns) Name(i int) (string, error) {
	if i < 0 || i >= len(c) {
		return "", &InvariantError{
			Kind:   InvariantColumnIndex,
			Detail: fmt.Sprintf("column index %d out of range (%d columns)", i, len(c)),
		}
	}
	return c[i], nil
}

// Set maps a column index (into Columns) to the filter on that column.
// Filters of different entries are implicitly AND'ed together.
type Set map[int]Filter

// Indexes returns the column indexes in ascending order.
func (s Set) Indexes() []int {
	idx := make([]int, 0, len(s))
	for i := range s {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// ErrInvariant is matched by every InvariantError.
var ErrInvariant = errors.New("filter invariant violation")

// InvariantKind classifies invariant violations.
type InvariantKind string

const (
	InvariantEmptyInSet    InvariantKind = "empty_in_set"
	InvariantColumnIndex   InvariantKind = "column_index"
	InvariantLiteralType   InvariantKind = "literal_type"
	InvariantEmptyColumn   InvariantKind = "empty_column"
	InvariantNilFilter     InvariantKind = "nil_filter"
	InvariantLiteralFormat InvariantKind = "literal_format"
)

// InvariantError reports a malformed filter tree. It is a programming error
// on the caller side and must not be treated as "cannot push down".
type InvariantError struct {
	Kind   InvariantKind
	Detail string
}

func (e *InvariantError) Error() string {
	return "filter: " + string(e.Kind) + ": " + e.Detail
}

// Is makes errors.Is(err, ErrInvariant) match.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}
