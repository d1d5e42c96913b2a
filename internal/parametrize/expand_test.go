package parametrize_test

import (
	"testing"

	"github.com/fastestgo/fastest/internal/model"
	"github.com/fastestgo/fastest/internal/parametrize"
)

func itemWithDecorators(decorators ...string) *model.TestItem {
	return &model.TestItem{
		ID:         "test_mod.py::test_it",
		Func:       "test_it",
		Decorators: decorators,
		Params:     map[string]interface{}{},
		Indirect:   map[string]bool{},
	}
}

func TestExpandSingleName(t *testing.T) {
	item := itemWithDecorators(`pytest.mark.parametrize("n", [1, 2, 3])`)
	got, err := parametrize.Expand(item)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	wantIDs := []string{
		"test_mod.py::test_it[1]",
		"test_mod.py::test_it[2]",
		"test_mod.py::test_it[3]",
	}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, want)
		}
		if got[i].Params["n"] != int64(i+1) {
			t.Errorf("got[%d].Params[n] = %v, want %d", i, got[i].Params["n"], i+1)
		}
	}
}

func TestExpandCrossProduct(t *testing.T) {
	item := itemWithDecorators(
		`pytest.mark.parametrize("a", [1, 2])`,
		`pytest.mark.parametrize("b", ["x", "y"])`,
	)
	got, err := parametrize.Expand(item)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len(got) = %d, want 4", len(got))
	}
	wantIDs := map[string]bool{
		"test_mod.py::test_it[1-x]": true,
		"test_mod.py::test_it[1-y]": true,
		"test_mod.py::test_it[2-x]": true,
		"test_mod.py::test_it[2-y]": true,
	}
	for _, g := range got {
		if !wantIDs[g.ID] {
			t.Errorf("unexpected id %q", g.ID)
		}
		delete(wantIDs, g.ID)
	}
	if len(wantIDs) != 0 {
		t.Errorf("missing ids: %v", wantIDs)
	}
}

func TestExpandMultiName(t *testing.T) {
	item := itemWithDecorators(`pytest.mark.parametrize("a,b", [(1, 2), (3, 4)])`)
	got, err := parametrize.Expand(item)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Params["a"] != int64(1) || got[0].Params["b"] != int64(2) {
		t.Errorf("got[0].Params = %v", got[0].Params)
	}
	if got[0].ID != "test_mod.py::test_it[1-2]" {
		t.Errorf("got[0].ID = %q", got[0].ID)
	}
}

func TestExpandParamWrapperIDAndMarks(t *testing.T) {
	item := itemWithDecorators(`pytest.mark.parametrize("n", [param(1, id="one"), param(2, marks=pytest.mark.xfail)])`)
	got, err := parametrize.Expand(item)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].ID != "test_mod.py::test_it[one]" {
		t.Errorf("got[0].ID = %q, want [one]", got[0].ID)
	}
	if !got[1].ExpectFail {
		t.Errorf("got[1].ExpectFail = false, want true")
	}
}

func TestExpandZeroRowsYieldsNoInstances(t *testing.T) {
	item := itemWithDecorators(`pytest.mark.parametrize("n", [])`)
	got, err := parametrize.Expand(item)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if got != nil {
		t.Errorf("got = %v, want nil", got)
	}
}

func TestExpandNoParametrizeReturnsOriginal(t *testing.T) {
	item := itemWithDecorators()
	got, err := parametrize.Expand(item)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(got) != 1 || got[0] != item {
		t.Errorf("got = %v, want []*TestItem{item}", got)
	}
}

func TestRowIDSanitizesNonAlnum(t *testing.T) {
	got := parametrize.RowID([]interface{}{"a b", "c/d"})
	want := "a_b-c_d"
	if got != want {
		t.Errorf("RowID = %q, want %q", got, want)
	}
}
