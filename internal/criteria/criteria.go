package criteria

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidFilterValue = errors.New("filter value must be an integer or a non-empty list of integers")
	ErrInvalidColumn      = errors.New("unsupported filter column")
	ErrInvalidConnective  = errors.New("connective must be AND or OR")
)

const (
	ColumnID   = "id"
	ColumnTime = "t"
)

type Connective string

const (
	Or  Connective = "OR"
	And Connective = "AND"
)

// Predicate is a WHERE clause over the IMG_SNAPSHOTS table.
type Predicate struct {
	Expr string
}

func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return p.Expr
}

// Build turns a scalar integer into an equality test and a list of integers
// into a membership test on column.
func Build(column string, value any) (*Predicate, error) {
	if column != ColumnID && column != ColumnTime {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, column)
	}

	if v, ok := scalar(value); ok {
		return &Predicate{Expr: fmt.Sprintf("%s = %s", column, v)}, nil
	}

	values, ok := list(value)
	if !ok || len(values) == 0 {
		return nil, fmt.Errorf("%w: %v (%T)", ErrInvalidFilterValue, value, value)
	}

	return &Predicate{Expr: fmt.Sprintf("%s IN (%s)", column, strings.Join(values, ","))}, nil
}

// Resolve combines the identifier and time filters. A nil filter is absent.
// With neither present it returns nil and no error, meaning no query should
// be run at all.
func Resolve(id, t any, connective Connective) (*Predicate, error) {
	conn, err := ParseConnective(string(connective))
	if err != nil {
		return nil, err
	}

	var idPred, tPred *Predicate
	if !isNil(id) {
		if idPred, err = Build(ColumnID, id); err != nil {
			return nil, err
		}
	}
	if !isNil(t) {
		if tPred, err = Build(ColumnTime, t); err != nil {
			return nil, err
		}
	}

	switch {
	case idPred != nil && tPred != nil:
		return &Predicate{Expr: fmt.Sprintf("%s %s %s", idPred.Expr, conn, tPred.Expr)}, nil
	case idPred != nil:
		return idPred, nil
	case tPred != nil:
		return tPred, nil
	default:
		return nil, nil
	}
}

// ParseConnective accepts "and"/"or" in any case and defaults to OR.
func ParseConnective(s string) (Connective, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(Or):
		return Or, nil
	case string(And):
		return And, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidConnective, s)
	}
}

func scalar(value any) (string, bool) {
	switch v := value.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	}
	return "", false
}

func list(value any) ([]string, bool) {
	var out []string
	switch v := value.(type) {
	case []int:
		for _, e := range v {
			out = append(out, strconv.FormatInt(int64(e), 10))
		}
	case []int32:
		for _, e := range v {
			out = append(out, strconv.FormatInt(int64(e), 10))
		}
	case []int64:
		for _, e := range v {
			out = append(out, strconv.FormatInt(e, 10))
		}
	default:
		return nil, false
	}
	return out, true
}

// isNil treats typed nil slices as absent filters, so a nil []int64 coming
// from a request behaves like an untyped nil.
func isNil(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case []int:
		return v == nil
	case []int32:
		return v == nil
	case []int64:
		return v == nil
	}
	return false
}
