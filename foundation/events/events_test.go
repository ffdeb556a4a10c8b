package events_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/google/uuid"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan events out to subscribers.")
	{
		evts := events.New()

		id1 := uuid.NewString()
		id2 := uuid.NewString()
		ch1 := evts.Acquire(id1)
		ch2 := evts.Acquire(id2)

		if evts.Count() != 2 {
			t.Fatalf("\t%s\tShould have 2 subscribers, got %d.", failed, evts.Count())
		}
		t.Logf("\t%s\tShould have 2 subscribers.", success)

		evts.Send("viewer: block: {}")

		for i, ch := range []<-chan string{ch1, ch2} {
			if msg := <-ch; msg != "viewer: block: {}" {
				t.Fatalf("\t%s\tShould deliver the event to subscriber %d, got %q.", failed, i, msg)
			}
		}
		t.Logf("\t%s\tShould deliver the event to every subscriber.", success)

		if err := evts.Release(id1); err != nil {
			t.Fatalf("\t%s\tShould be able to release a subscriber: %s", failed, err)
		}
		if _, open := <-ch1; open {
			t.Fatalf("\t%s\tShould close a released channel.", failed)
		}
		if err := evts.Release(id1); err == nil {
			t.Fatalf("\t%s\tShould not release an unknown subscriber.", failed)
		}
		t.Logf("\t%s\tShould be able to release a subscriber.", success)

		for n := 0; n < 1000; n++ {
			evts.Send("flood")
		}
		t.Logf("\t%s\tShould not block when a subscriber falls behind.", success)

		evts.Shutdown()
		for range ch2 {
		}
		if evts.Count() != 0 {
			t.Fatalf("\t%s\tShould remove all subscribers on shutdown.", failed)
		}
		if _, open := <-evts.Acquire(uuid.NewString()); open {
			t.Fatalf("\t%s\tShould hand out closed channels after shutdown.", failed)
		}
		t.Logf("\t%s\tShould close all subscribers on shutdown.", success)
	}
}
