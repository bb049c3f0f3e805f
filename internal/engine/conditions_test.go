package engine

import (
	"testing"

	"github.com/approvalflow/approvalflow/pkg/approvalflow/models"
)

func TestParseCondition_EmptyIsAlwaysTrue(t *testing.T) {
	for _, expr := range []string{"", "   ", "\t\n"} {
		cond, err := ParseCondition(expr)
		if err != nil {
			t.Fatalf("ParseCondition(%q) returned error: %v", expr, err)
		}
		if !cond.Always {
			t.Errorf("ParseCondition(%q) expected always-true condition", expr)
		}
	}
}

func TestParseCondition_MalformedIsAlwaysTrue(t *testing.T) {
	// Anything that does not split into field/op/literal stays permissive.
	for _, expr := range []string{"amount", "amount >", "a > b extra"} {
		cond, err := ParseCondition(expr)
		if err != nil {
			t.Fatalf("ParseCondition(%q) returned error: %v", expr, err)
		}
		if !cond.Always {
			t.Errorf("ParseCondition(%q) expected always-true condition", expr)
		}
	}
}

func TestParseCondition_UnknownOperator(t *testing.T) {
	if _, err := ParseCondition("amount >> 100"); err == nil {
		t.Fatal("expected error for unknown operator")
	}
	if _, err := ParseCondition("amount in 100"); err == nil {
		t.Fatal("expected error for unknown operator")
	}
}

func TestParseCondition_SingleEqualsIsEquality(t *testing.T) {
	cond, err := ParseCondition("type = expense")
	if err != nil {
		t.Fatalf("ParseCondition returned error: %v", err)
	}
	if cond.Operator != OpEq {
		t.Errorf("expected OpEq, got %q", cond.Operator)
	}
}

func TestEvaluateCondition_NumericOperators(t *testing.T) {
	data := map[string]any{"amount": float64(1000)}
	tests := []struct {
		expr string
		want bool
	}{
		{"amount > 500", true},
		{"amount > 1000", false},
		{"amount >= 1000", true},
		{"amount < 500", false},
		{"amount <= 1000", true},
		{"amount == 1000", true},
		{"amount = 1000", true},
		{"amount != 1000", false},
		{"amount != 999", true},
	}
	for _, tc := range tests {
		if got := EvaluateCondition(tc.expr, data); got != tc.want {
			t.Errorf("EvaluateCondition(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvaluateCondition_IntValues(t *testing.T) {
	data := map[string]any{"count": 3}
	if !EvaluateCondition("count > 2", data) {
		t.Error("expected int value to compare numerically")
	}
	if EvaluateCondition("count > 3", data) {
		t.Error("expected count > 3 to be false")
	}
}

func TestEvaluateCondition_BoolValues(t *testing.T) {
	data := map[string]any{"urgent": true}
	tests := []struct {
		expr string
		want bool
	}{
		{"urgent == true", true},
		{"urgent = true", true},
		{"urgent != false", true},
		{"urgent == false", false},
		// Ordering has no meaning for bools.
		{"urgent > false", false},
		// Non-boolean literal never matches.
		{"urgent == yes", false},
	}
	for _, tc := range tests {
		if got := EvaluateCondition(tc.expr, data); got != tc.want {
			t.Errorf("EvaluateCondition(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvaluateCondition_StringValues(t *testing.T) {
	data := map[string]any{"department": "engineering", "priority": "10"}
	tests := []struct {
		expr string
		want bool
	}{
		{"department == engineering", true},
		{"department != finance", true},
		{"department == finance", false},
		// Lexicographic ordering for non-numeric strings.
		{"department > design", true},
		{"department < finance", true},
		// Both sides numeric: compare as numbers, not lexicographically.
		{"priority > 9", true},
		{"priority < 9", false},
	}
	for _, tc := range tests {
		if got := EvaluateCondition(tc.expr, data); got != tc.want {
			t.Errorf("EvaluateCondition(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvaluateCondition_NumericValueNonNumericLiteral(t *testing.T) {
	data := map[string]any{"amount": float64(100)}
	if !EvaluateCondition("amount == 100", data) {
		t.Error("expected numeric equality to hold")
	}
	if EvaluateCondition("amount == abc", data) {
		t.Error("expected mismatch against non-numeric literal")
	}
	if !EvaluateCondition("amount != abc", data) {
		t.Error("expected != against non-numeric literal to be true")
	}
	if EvaluateCondition("amount > abc", data) {
		t.Error("ordering against non-numeric literal is false")
	}
}

func TestEvaluateCondition_MissingField(t *testing.T) {
	data := map[string]any{"amount": float64(100)}
	for _, expr := range []string{"missing == 1", "missing != 1", "missing > 0"} {
		if EvaluateCondition(expr, data) {
			t.Errorf("EvaluateCondition(%q) on missing field should be false", expr)
		}
	}
}

func TestEvaluateCondition_EmptyAlwaysTrue(t *testing.T) {
	if !EvaluateCondition("", map[string]any{}) {
		t.Error("empty condition should always hold")
	}
	if !EvaluateCondition("  ", nil) {
		t.Error("blank condition should hold with nil data")
	}
}

func TestEvaluateCondition_StoredUnknownOperatorIsFalse(t *testing.T) {
	// A stored condition that no longer parses makes its step ineligible.
	if EvaluateCondition("amount ~ 100", map[string]any{"amount": float64(100)}) {
		t.Error("unparseable stored condition must evaluate to false")
	}
}

func TestValidateSteps_DuplicateOrder(t *testing.T) {
	steps := []models.SaveStepRequest{
		{Name: "first", RoleID: 1, StepOrder: 1},
		{Name: "second", RoleID: 1, StepOrder: 1},
	}
	if err := ValidateSteps(steps); err == nil {
		t.Fatal("expected duplicate step order to be rejected")
	}
}

func TestValidateSteps_BadCondition(t *testing.T) {
	steps := []models.SaveStepRequest{
		{Name: "first", RoleID: 1, StepOrder: 1, Condition: "amount >> 100"},
	}
	if err := ValidateSteps(steps); err == nil {
		t.Fatal("expected unknown operator to be rejected")
	}
}

func TestValidateSteps_Valid(t *testing.T) {
	steps := []models.SaveStepRequest{
		{Name: "manager", RoleID: 1, StepOrder: 1, Condition: ""},
		{Name: "finance", RoleID: 2, StepOrder: 2, Condition: "amount > 1000"},
	}
	if err := ValidateSteps(steps); err != nil {
		t.Fatalf("ValidateSteps returned error: %v", err)
	}
}
