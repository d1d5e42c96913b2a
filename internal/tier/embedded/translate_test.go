package embedded

import "testing"

func TestTranslateRewritesBareAssert(t *testing.T) {
	got := Translate("assert 1 == 1")
	want := "_assert(1 == 1)"
	if got != want {
		t.Errorf("Translate = %q, want %q", got, want)
	}
}

func TestTranslateRewritesAssertWithMessage(t *testing.T) {
	got := Translate(`assert x == 1, "x should be 1"`)
	want := `_assert(x == 1, "x should be 1")`
	if got != want {
		t.Errorf("Translate = %q, want %q", got, want)
	}
}

func TestTranslatePreservesIndentAndOtherLines(t *testing.T) {
	body := "x = 1\nif x:\n    assert x == 1"
	got := Translate(body)
	want := "x = 1\nif x:\n    _assert(x == 1)"
	if got != want {
		t.Errorf("Translate = %q, want %q", got, want)
	}
}
