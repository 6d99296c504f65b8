package statemachine

import "testing"

type counter struct {
	n int
}

func addOne(c *counter) StateFn[counter] {
	c.n++
	if c.n >= 2 {
		return nil
	}
	return addOne
}

func TestDispatch(t *testing.T) {
	c := &counter{}
	m := New(c, addOne)

	m.Dispatch()
	if c.n != 1 {
		t.Fatalf("after one dispatch n = %d, want 1", c.n)
	}
	if m.Current() == nil {
		t.Fatal("machine halted after one dispatch")
	}

	m.Dispatch()
	if c.n != 2 {
		t.Fatalf("after two dispatches n = %d, want 2", c.n)
	}
	if m.Current() != nil {
		t.Fatal("machine still running after terminal state")
	}

	// Halted machines ignore further dispatches.
	m.Dispatch()
	if c.n != 2 {
		t.Fatalf("halted dispatch mutated entity, n = %d", c.n)
	}
}

func TestSet(t *testing.T) {
	c := &counter{n: 5}
	m := New[counter](c, nil)

	m.Dispatch()
	if c.n != 5 {
		t.Fatalf("nil-state dispatch mutated entity, n = %d", c.n)
	}

	m.Set(addOne)
	m.Dispatch()
	if c.n != 6 {
		t.Fatalf("after Set and dispatch n = %d, want 6", c.n)
	}
}
