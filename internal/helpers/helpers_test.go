package helpers

import "testing"

func TestHashCombineIsOrderSensitive(t *testing.T) {
	a := HashCombine(HashCombine(0, 1), 2)
	b := HashCombine(HashCombine(0, 2), 1)
	if a == b {
		t.Fatalf("expected HashCombine(x,y) != HashCombine(y,x) in general, got %d for both", a)
	}
}

func TestHashCombineStringIsDeterministic(t *testing.T) {
	a := HashCombineString(0, "util.greet")
	b := HashCombineString(0, "util.greet")
	if a != b {
		t.Fatalf("expected the same input to hash the same way, got %d and %d", a, b)
	}

	c := HashCombineString(0, "util.Greet")
	if a == c {
		t.Fatal("expected a different string to hash differently")
	}
}

func TestStringArrayToQuotedCommaSeparatedString(t *testing.T) {
	got := StringArrayToQuotedCommaSeparatedString([]string{"a", "b.c"})
	want := `"a", "b.c"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if StringArrayToQuotedCommaSeparatedString(nil) != "" {
		t.Fatal("expected an empty string for an empty slice")
	}
}
