package pipeline

import "testing"

func TestVideoLogContextEnterLeave(t *testing.T) {
	var c videoLogContext
	c.current = make(map[int]string)

	if _, ok := c.get(3); ok {
		t.Fatalf("expected no entry before enter")
	}
	c.enter(3, "a.mp4")
	if path, ok := c.get(3); !ok || path != "a.mp4" {
		t.Fatalf("got (%q, %v), want (a.mp4, true)", path, ok)
	}
	c.leave(3)
	if _, ok := c.get(3); ok {
		t.Fatalf("expected entry cleared after leave")
	}
}

func TestVideoLogContextIsolatesWorkers(t *testing.T) {
	var c videoLogContext
	c.current = make(map[int]string)
	c.enter(0, "a.mp4")
	c.enter(1, "b.mp4")
	if path, _ := c.get(0); path != "a.mp4" {
		t.Fatalf("worker 0: got %q", path)
	}
	if path, _ := c.get(1); path != "b.mp4" {
		t.Fatalf("worker 1: got %q", path)
	}
}
