// Package filter translates AIP-160 list filters into SQL conditions over the
// cafes table.
package filter

import (
	"fmt"
	"strings"

	"github.com/louisbranch/cafes/internal/services/cafes/storage"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// fieldMapping maps filter field names to SQL column names.
var fieldMapping = map[string]string{
	"name":           "name",
	"location":       "location",
	"seats":          "seats",
	"coffee_price":   "coffee_price",
	"has_toilet":     "has_toilet",
	"has_wifi":       "has_wifi",
	"has_sockets":    "has_sockets",
	"can_take_calls": "can_take_calls",
}

var boolFields = map[string]bool{
	"has_toilet":     true,
	"has_wifi":       true,
	"has_sockets":    true,
	"can_take_calls": true,
}

// CafeDeclarations returns the field declarations for cafe filtering.
func CafeDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("name", filtering.TypeString),
		filtering.DeclareIdent("location", filtering.TypeString),
		filtering.DeclareIdent("seats", filtering.TypeString),
		filtering.DeclareIdent("coffee_price", filtering.TypeString),
		filtering.DeclareIdent("has_toilet", filtering.TypeBool),
		filtering.DeclareIdent("has_wifi", filtering.TypeBool),
		filtering.DeclareIdent("has_sockets", filtering.TypeBool),
		filtering.DeclareIdent("can_take_calls", filtering.TypeBool),
	)
}

// Parse parses an AIP-160 filter expression into a SQL condition.
// An empty filter yields the zero condition.
func Parse(filterStr string) (storage.Condition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return storage.Condition{}, nil
	}

	decls, err := CafeDeclarations()
	if err != nil {
		return storage.Condition{}, fmt.Errorf("create declarations: %w", err)
	}

	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return storage.Condition{}, fmt.Errorf("parse filter: %w", err)
	}

	return translateExpr(filter.CheckedExpr.GetExpr())
}

func translateExpr(e *expr.Expr) (storage.Condition, error) {
	if e == nil {
		return storage.Condition{}, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	case *expr.Expr_IdentExpr:
		return translateBoolField(kind.IdentExpr.Name, true)
	default:
		return storage.Condition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

// translateBoolField handles bare boolean members such as "has_wifi" and
// "NOT has_wifi".
func translateBoolField(field string, want bool) (storage.Condition, error) {
	if !boolFields[field] {
		return storage.Condition{}, fmt.Errorf("field %s is not boolean", field)
	}
	value := int64(0)
	if want {
		value = 1
	}
	return storage.Condition{
		Clause: fmt.Sprintf("%s = ?", fieldMapping[field]),
		Args:   []any{value},
	}, nil
}

func translateCall(call *expr.Expr_Call) (storage.Condition, error) {
	switch call.Function {
	case "_&&_", "AND":
		return translateLogical(call.Args, "AND")
	case "_||_", "OR":
		return translateLogical(call.Args, "OR")
	case "_==_", "=":
		return translateComparison(call.Args, "=")
	case "_!=_", "!=":
		return translateComparison(call.Args, "!=")
	case "NOT", "-":
		if len(call.Args) != 1 {
			return storage.Condition{}, fmt.Errorf("NOT requires 1 argument")
		}
		field, err := extractFieldName(call.Args[0])
		if err != nil {
			return storage.Condition{}, fmt.Errorf("NOT supports boolean fields only: %w", err)
		}
		return translateBoolField(field, false)
	default:
		return storage.Condition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateLogical(args []*expr.Expr, op string) (storage.Condition, error) {
	if len(args) != 2 {
		return storage.Condition{}, fmt.Errorf("%s requires 2 arguments", op)
	}

	left, err := translateExpr(args[0])
	if err != nil {
		return storage.Condition{}, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return storage.Condition{}, err
	}

	params := make([]any, 0, len(left.Args)+len(right.Args))
	params = append(params, left.Args...)
	params = append(params, right.Args...)
	return storage.Condition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Args:   params,
	}, nil
}

func translateComparison(args []*expr.Expr, op string) (storage.Condition, error) {
	if len(args) != 2 {
		return storage.Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return storage.Condition{}, err
	}
	column, ok := fieldMapping[field]
	if !ok {
		return storage.Condition{}, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return storage.Condition{}, err
	}
	// Booleans are stored as 0/1 integers.
	if b, ok := value.(bool); ok {
		if b {
			value = int64(1)
		} else {
			value = int64(0)
		}
	}

	return storage.Condition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Args:   []any{value},
	}, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_IdentExpr:
		switch kind.IdentExpr.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("unexpected identifier in value position: %s", kind.IdentExpr.Name)
	default:
		return nil, fmt.Errorf("expected constant, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}

	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}
