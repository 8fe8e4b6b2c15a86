package ids

import "testing"

func TestNewIsSortableAndValid(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if !Valid(next) {
			t.Fatalf("invalid id %q", next)
		}
		if next <= prev {
			t.Fatalf("ids not monotonic: %q then %q", prev, next)
		}
		prev = next
	}
	if Valid("not-a-ulid") {
		t.Fatalf("expected garbage to be rejected")
	}
}
