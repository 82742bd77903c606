package channel

import "testing"

func TestBuffered_SendReceive(t *testing.T) {
	c := New[string](2)
	c.Send("ut")
	c.Send("tp")

	if c.Len() != 2 {
		t.Errorf("expected len 2, got %d", c.Len())
	}
	if got := <-c.Receive(); got != "ut" {
		t.Errorf("expected ut, got %s", got)
	}
}

func TestBuffered_TrySend(t *testing.T) {
	c := NewBuffered[int](1)

	if !c.TrySend(1) {
		t.Error("send into empty buffer must succeed")
	}
	if c.TrySend(2) {
		t.Error("send into full buffer must be dropped")
	}
	if got := <-c.Receive(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestBuffered_CloseEndsRange(t *testing.T) {
	c := New[int](4)
	c.Send(1)
	c.Send(2)
	c.Close()

	sum := 0
	for v := range c.Receive() {
		sum += v
	}
	if sum != 3 {
		t.Errorf("expected sum 3, got %d", sum)
	}
}
