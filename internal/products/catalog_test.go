package products

import "testing"

func TestAllReturnsCopies(t *testing.T) {
	first := All()
	if len(first) == 0 {
		t.Fatal("catalog must not be empty")
	}
	first[0].Name = "mutated"

	second := All()
	if second[0].Name == "mutated" {
		t.Fatal("All must return a copy, not the backing array")
	}
}

func TestByID(t *testing.T) {
	p, ok := ByID(2)
	if !ok || p.Name != "Apple" {
		t.Fatalf("ByID(2) = %+v, %v", p, ok)
	}
	if _, ok := ByID(0); ok {
		t.Fatal("id 0 must not resolve")
	}
	if _, ok := ByID(len(All()) + 1); ok {
		t.Fatal("out-of-range id must not resolve")
	}
}
