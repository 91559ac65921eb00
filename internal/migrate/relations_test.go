package migrate

import (
	"reflect"
	"testing"
)

func TestNewPairNormalizes(t *testing.T) {
	if NewPair("b", "a") != NewPair("a", "b") {
		t.Error("pairs must be unordered")
	}
	if p := NewPair("z", "y"); p.A != "y" || p.B != "z" {
		t.Errorf("unexpected pair %+v", p)
	}
}

func TestRelationResolver(t *testing.T) {
	r := NewRelationResolver()

	if !r.Defer("a", "b") {
		t.Error("first Defer should add the pair")
	}
	if r.Defer("b", "a") {
		t.Error("reverse Defer should be a duplicate")
	}
	if got := r.Pending(); !reflect.DeepEqual(got, []Pair{{"a", "b"}}) {
		t.Errorf("expected one pending pair, got %v", got)
	}

	if !r.MarkLinked("b", "a") {
		t.Error("MarkLinked should report the dropped pending pair")
	}
	if len(r.Pending()) != 0 || !r.Linked("a", "b") {
		t.Error("linked pair must leave the pending set")
	}
	if r.Defer("a", "b") {
		t.Error("linked pair must not become pending again")
	}
	if r.MarkLinked("a", "c") {
		t.Error("MarkLinked on a pair that was never pending reports false")
	}
}

func TestRelationResolver_PendingOrderAndSeed(t *testing.T) {
	r := NewRelationResolver(Pair{A: "d", B: "c"}, Pair{A: "a", B: "b"})
	r.Defer("a", "c")

	want := []Pair{{"a", "b"}, {"a", "c"}, {"c", "d"}}
	if got := r.Pending(); !reflect.DeepEqual(got, want) {
		t.Errorf("Pending() = %v, want %v", got, want)
	}

	r.Drop(Pair{A: "a", B: "b"})
	if got := r.Pending(); !reflect.DeepEqual(got, []Pair{{"a", "c"}, {"c", "d"}}) {
		t.Errorf("Drop did not remove the pair: %v", got)
	}
}
