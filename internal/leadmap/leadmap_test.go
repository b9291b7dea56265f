package leadmap

import (
	"reflect"
	"testing"
)

func TestMapResolvesNestedPath(t *testing.T) {
	source := map[string]any{"x": map[string]any{"y": 5}}
	got := Map(source, map[string]string{"a": "x.y"})
	want := map[string]any{"a": 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestMapOmitsMissingKeys(t *testing.T) {
	source := map[string]any{"x": map[string]any{}}
	got := Map(source, map[string]string{"a": "x.y"})
	if len(got) != 0 {
		t.Fatalf("expected missing key to be omitted, got %#v", got)
	}
	if _, present := got["a"]; present {
		t.Fatalf("key must be absent, not nil")
	}
}

func TestMapNonObjectIntermediate(t *testing.T) {
	source := map[string]any{"x": "scalar"}
	got := Map(source, map[string]string{"a": "x.y"})
	if len(got) != 0 {
		t.Fatalf("expected no fields, got %#v", got)
	}
}

func TestMapTopLevelAndDeep(t *testing.T) {
	source := map[string]any{
		"email": "a@b.com",
		"user":  map[string]any{"profile": map[string]any{"phone": "+1 (555) 000-1234"}},
	}
	got := Map(source, map[string]string{
		"email": "email",
		"phone": "user.profile.phone",
		"city":  "user.profile.address.city",
	})
	if got["email"] != "a@b.com" || got["phone"] != "+1 (555) 000-1234" {
		t.Fatalf("unexpected result: %#v", got)
	}
	if _, present := got["city"]; present {
		t.Fatalf("unresolvable path must be omitted")
	}
}

func TestMapDoesNotMutateSource(t *testing.T) {
	source := map[string]any{"x": map[string]any{"y": 1}}
	_ = Map(source, map[string]string{"a": "x.y", "b": "x.z"})
	if len(source) != 1 || len(source["x"].(map[string]any)) != 1 {
		t.Fatalf("source was mutated: %#v", source)
	}
}
