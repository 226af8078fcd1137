// Package conditions compares a resolved context attribute with a workflow condition literal.
package conditions

import (
	"cmp"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/pkg/errors"
)

var (
	ErrTypeMismatch    = errors.New("incomparable operand types")
	ErrUnknownOperator = errors.New("unknown operator")
)

// literal layouts accepted when the attribute is temporal
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Operators lists every supported operator in display order.
func Operators() []domain.Operator {
	return []domain.Operator{
		domain.OperatorEqual,
		domain.OperatorNotEqual,
		domain.OperatorGreaterOrEqual,
		domain.OperatorLessOrEqual,
		domain.OperatorGreater,
		domain.OperatorLess,
	}
}

func IsOperator(op domain.Operator) bool {
	for _, o := range Operators() {
		if o == op {
			return true
		}
	}
	return false
}

// Evaluate applies op to value and literal. Temporal values compare as instants, values
// where both sides parse as numbers compare numerically, anything else lexically.
// Composite values cannot be ordered and yield ErrTypeMismatch.
func Evaluate(value any, op domain.Operator, literal string) (bool, error) {
	if !IsOperator(op) {
		return false, errors.WithMessagef(ErrUnknownOperator, "operator %q", op)
	}

	switch v := value.(type) {
	case time.Time:
		return compareTime(v, op, literal)
	case *time.Time:
		if v != nil {
			return compareTime(*v, op, literal)
		}
		value = nil
	case []byte:
		value = string(v)
	case fmt.Stringer:
		value = v.String()
	}

	if isComposite(value) {
		return false, errors.WithMessagef(ErrTypeMismatch, "cannot compare %T with %q", value, literal)
	}

	if left, ok := toNumber(value); ok {
		if right, ok := parseNumber(literal); ok {
			return apply(op, compareNumbers(left, right)), nil
		}
	}
	return apply(op, strings.Compare(toString(value), literal)), nil
}

func compareTime(v time.Time, op domain.Operator, literal string) (bool, error) {
	other, err := parseTime(literal, v.Location())
	if err != nil {
		return false, errors.WithMessagef(ErrTypeMismatch, "cannot compare time with %q", literal)
	}
	return apply(op, v.Compare(other)), nil
}

func parseTime(literal string, loc *time.Location) (time.Time, error) {
	literal = strings.TrimSpace(literal)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, literal, loc); err == nil {
			return t, nil
		}
	}
	if unix, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return time.Unix(unix, 0).In(loc), nil
	}
	return time.Time{}, errors.Errorf("unparseable time %q", literal)
}

func apply(op domain.Operator, c int) bool {
	switch op {
	case domain.OperatorEqual:
		return c == 0
	case domain.OperatorNotEqual:
		return c != 0
	case domain.OperatorGreaterOrEqual:
		return c >= 0
	case domain.OperatorLessOrEqual:
		return c <= 0
	case domain.OperatorGreater:
		return c > 0
	case domain.OperatorLess:
		return c < 0
	}
	return false
}

func isComposite(value any) bool {
	if value == nil {
		return false
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer,
		reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return true
	}
	return false
}

type numberKind int

const (
	signedNumber numberKind = iota
	unsignedNumber
	floatNumber
)

// number is a numeric operand. Integral values keep their exact value.
type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func (n number) float() float64 {
	switch n.kind {
	case signedNumber:
		return float64(n.i)
	case unsignedNumber:
		return float64(n.u)
	}
	return n.f
}

// toNumber reads numeric kinds, named types included. Bools count as 0 and 1.
func toNumber(value any) (number, bool) {
	if value == nil {
		return number{}, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: signedNumber, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{kind: unsignedNumber, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{kind: floatNumber, f: rv.Float()}, true
	case reflect.Bool:
		if rv.Bool() {
			return number{kind: signedNumber, i: 1}, true
		}
		return number{kind: signedNumber}, true
	case reflect.String:
		return parseNumber(rv.String())
	}
	return number{}, false
}

func parseNumber(s string) (number, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{kind: signedNumber, i: i}, true
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return number{kind: unsignedNumber, u: u}, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return number{kind: floatNumber, f: f}, true
	}
	return number{}, false
}

// compareNumbers compares integers exactly and falls back to float64 when either side
// is fractional.
func compareNumbers(a, b number) int {
	switch {
	case a.kind == signedNumber && b.kind == signedNumber:
		return cmp.Compare(a.i, b.i)
	case a.kind == unsignedNumber && b.kind == unsignedNumber:
		return cmp.Compare(a.u, b.u)
	case a.kind == signedNumber && b.kind == unsignedNumber:
		if a.i < 0 {
			return -1
		}
		return cmp.Compare(uint64(a.i), b.u)
	case a.kind == unsignedNumber && b.kind == signedNumber:
		if b.i < 0 {
			return 1
		}
		return cmp.Compare(a.u, uint64(b.i))
	}
	return cmp.Compare(a.float(), b.float())
}

func toString(value any) string {
	if value == nil {
		return ""
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		return rv.String()
	}
	return fmt.Sprint(value)
}
