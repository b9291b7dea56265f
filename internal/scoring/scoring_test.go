package scoring

import "testing"

func TestScoreEmptyLead(t *testing.T) {
	if got := Score(map[string]any{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestScoreEmailOnly(t *testing.T) {
	if got := Score(map[string]any{"email": "a@b.com"}); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
}

func TestScoreNameAndEmail(t *testing.T) {
	lead := map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
	}
	if got := Score(lead); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestScoreSingleName(t *testing.T) {
	if got := Score(map[string]any{"first_name": "Ada"}); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := Score(map[string]any{"last_name": "Lovelace"}); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
}

func TestScoreCompleteLead(t *testing.T) {
	lead := map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"phone":      "+1 (555) 010-2030",
		"address":    map[string]any{"city": "Austin", "state": "TX"},
		"demographics": map[string]any{
			"age": 36, "income": "high", "homeowner": true,
		},
	}
	if got := Score(lead); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestScoreInvalidEmailAndPhone(t *testing.T) {
	lead := map[string]any{
		"email": "not an email",
		"phone": "123",
	}
	if got := Score(lead); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestScoreAddressNeedsCityAndState(t *testing.T) {
	lead := map[string]any{"address": map[string]any{"city": "Austin"}}
	if got := Score(lead); got != 0 {
		t.Fatalf("expected 0 without state, got %d", got)
	}
}

func TestScoreDemographicsThreshold(t *testing.T) {
	two := map[string]any{"demographics": map[string]any{"a": 1, "b": 2}}
	if got := Score(two); got != 0 {
		t.Fatalf("two keys must not score, got %d", got)
	}
	three := map[string]any{"demographics": map[string]any{"a": 1, "b": 2, "c": 3}}
	if got := Score(three); got != 10 {
		t.Fatalf("expected 10 for three keys, got %d", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	lead := map[string]any{
		"email":      "ada@example.com",
		"first_name": "Ada",
		"phone":      "+15550102030",
	}
	first := Score(lead)
	for i := 0; i < 10; i++ {
		if got := Score(lead); got != first {
			t.Fatalf("score changed between calls: %d vs %d", first, got)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	leads := []map[string]any{
		{},
		{"email": 42, "phone": true, "address": "nope", "demographics": []any{1, 2, 3}},
		{"first_name": "", "last_name": ""},
	}
	for _, lead := range leads {
		got := Score(lead)
		if got < 0 || got > 100 {
			t.Fatalf("score out of bounds for %#v: %d", lead, got)
		}
	}
}
