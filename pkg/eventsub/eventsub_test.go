package eventsub_test

import (
	"testing"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/eventsub"
)

func TestSubscribePublish(t *testing.T) {
	var h eventsub.Hub[int]
	var got []int

	unsub := h.Subscribe(func(v int) { got = append(got, v) })
	h.Publish(1)
	h.Publish(2)
	unsub()
	h.Publish(3)

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}
	if h.Len() != 0 {
		t.Fatalf("Len = %d, want 0", h.Len())
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	var h eventsub.Hub[string]
	calls := 0
	unsub1 := h.Subscribe(func(string) { calls++ })
	unsub2 := h.Subscribe(func(string) { calls++ })

	unsub1()
	unsub1() // must not remove the other subscriber
	h.Publish("x")

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	unsub2()
	if h.Len() != 0 {
		t.Fatalf("Len = %d, want 0", h.Len())
	}
}

func TestDeliveryOrder(t *testing.T) {
	var h eventsub.Hub[int]
	var order []int
	h.Subscribe(func(int) { order = append(order, 1) })
	h.Subscribe(func(int) { order = append(order, 2) })
	h.Subscribe(func(int) { order = append(order, 3) })

	h.Publish(0)
	for i, v := range order {
		if v != i+1 {
			t.Fatalf("order = %v, want [1 2 3]", order)
		}
	}
}
