package cpsat

import "testing"

func TestDomainBasics(t *testing.T) {
	d := NewDomain(-1, 3)
	if d.Size() != 5 {
		t.Fatalf("expected size 5, got %d", d.Size())
	}
	if !d.Has(-1) || !d.Has(3) {
		t.Fatalf("expected bounds to be present")
	}
	if d.Has(4) {
		t.Fatalf("expected 4 to be out of range")
	}

	lo, ok := d.Min()
	if !ok || lo != -1 {
		t.Fatalf("expected min -1, got %d, %v", lo, ok)
	}
	hi, ok := d.Max()
	if !ok || hi != 3 {
		t.Fatalf("expected max 3, got %d, %v", hi, ok)
	}
}

func TestDomainRemoveIsCopyOnWrite(t *testing.T) {
	d := NewDomain(0, 2)
	d2 := d.Remove(1)
	if !d.Has(1) {
		t.Fatalf("original domain must be unaffected by Remove")
	}
	if d2.Has(1) {
		t.Fatalf("new domain must not have the removed value")
	}
	if d2.Size() != 2 {
		t.Fatalf("expected size 2 after remove, got %d", d2.Size())
	}
}

func TestDomainIntersect(t *testing.T) {
	d := NewDomain(0, 9)
	d2 := d.Intersect(3, 5)
	if d2.Size() != 3 {
		t.Fatalf("expected size 3, got %d", d2.Size())
	}
	for _, v := range []int{3, 4, 5} {
		if !d2.Has(v) {
			t.Fatalf("expected %d to remain", v)
		}
	}
	for _, v := range []int{0, 2, 6, 9} {
		if d2.Has(v) {
			t.Fatalf("expected %d to be removed", v)
		}
	}
}

func TestDomainFixAndIsFixed(t *testing.T) {
	d := NewDomain(0, 9)
	fixed := d.Fix(7)
	if !fixed.IsFixed() {
		t.Fatalf("expected fixed domain")
	}
	if fixed.FixedValue() != 7 {
		t.Fatalf("expected fixed value 7, got %d", fixed.FixedValue())
	}
	if d.IsFixed() {
		t.Fatalf("original domain must remain unfixed")
	}
}

func TestDomainIsEmpty(t *testing.T) {
	d := NewDomain(0, 0)
	d = d.Remove(0)
	if !d.IsEmpty() {
		t.Fatalf("expected domain to be empty after removing its only value")
	}
	if _, ok := d.Min(); ok {
		t.Fatalf("expected Min to report false on an empty domain")
	}
}

func TestDomainValuesAscending(t *testing.T) {
	d := NewDomain(5, 8)
	d = d.Remove(6)
	got := d.Values()
	want := []int{5, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDomainWideRangeSpansMultipleWords(t *testing.T) {
	d := NewDomain(0, 200)
	if d.Size() != 201 {
		t.Fatalf("expected size 201, got %d", d.Size())
	}
	d = d.Remove(130)
	if d.Has(130) {
		t.Fatalf("expected 130 removed across a word boundary")
	}
	if d.Size() != 200 {
		t.Fatalf("expected size 200, got %d", d.Size())
	}
}
