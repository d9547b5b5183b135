package event_test

import (
	"testing"

	"github.com/google/uuid"

	"launchpad/internal/event"
)

// ============================================================================
// Test: Recorder
// ============================================================================

func TestRecorder_AssignsMonotonicSequence(t *testing.T) {
	out := make(chan event.Envelope, 8)
	r := event.NewRecorder(out)

	actor := uuid.New()
	for i := 0; i < 3; i++ {
		r.Emit(event.TypeUnitsPurchased, "TKN", actor, "resident", event.UnitsPurchased{AssetID: "TKN"})
	}

	for want := int64(0); want < 3; want++ {
		env := <-out
		if env.Sequence != want {
			t.Errorf("sequence: got %d, want %d", env.Sequence, want)
		}
	}
	if r.Sequence() != 3 {
		t.Errorf("next sequence: got %d, want 3", r.Sequence())
	}
}

func TestRecorder_ChainsHashes(t *testing.T) {
	out := make(chan event.Envelope, 8)
	r := event.NewRecorder(out)
	actor := uuid.New()

	r.Emit(event.TypeSaleLaunched, "TKN", actor, "resident", event.SaleLaunched{AssetID: "TKN"})
	r.Emit(event.TypeUnitsPurchased, "TKN", actor, "resident", event.UnitsPurchased{AssetID: "TKN"})

	first := <-out
	second := <-out

	if second.PrevHash != first.StateHash {
		t.Error("second envelope's prev hash must equal first's state hash")
	}
	if first.StateHash == second.StateHash {
		t.Error("distinct envelopes must not share a state hash")
	}
	var zero [32]byte
	if first.PrevHash == zero {
		t.Error("genesis prev hash should be seeded, not zero")
	}
}

func TestRecorder_EnvelopeCarriesContext(t *testing.T) {
	out := make(chan event.Envelope, 1)
	r := event.NewRecorder(out)
	actor := uuid.New()

	r.Emit(event.TypeSaleClosed, "TKN", actor, "detached", event.SaleClosed{AssetID: "TKN"})

	env := <-out
	if env.EventType != event.TypeSaleClosed {
		t.Errorf("type: got %v", env.EventType)
	}
	if env.AssetID != "TKN" || env.Actor != actor || env.Backend != "detached" {
		t.Errorf("context mismatch: %+v", env)
	}
	if len(env.Payload) == 0 {
		t.Error("payload should be populated")
	}
}

func TestRecorder_FullChannelDropsWithoutBlocking(t *testing.T) {
	out := make(chan event.Envelope, 1)
	r := event.NewRecorder(out)
	actor := uuid.New()

	r.Emit(event.TypeSaleLaunched, "TKN", actor, "resident", event.SaleLaunched{})
	r.Emit(event.TypeSaleLaunched, "TKN", actor, "resident", event.SaleLaunched{})

	if r.Dropped() != 1 {
		t.Errorf("dropped: got %d, want 1", r.Dropped())
	}
	// Sequence still advances for dropped envelopes.
	if r.Sequence() != 2 {
		t.Errorf("sequence: got %d, want 2", r.Sequence())
	}
}

func TestRecorder_NilChannelAllowed(t *testing.T) {
	r := event.NewRecorder(nil)
	r.Emit(event.TypeSaleLaunched, "TKN", uuid.New(), "resident", event.SaleLaunched{})
	if r.Sequence() != 1 {
		t.Errorf("sequence: got %d, want 1", r.Sequence())
	}
}

// ============================================================================
// Test: Tee
// ============================================================================

func TestTee_DurableGetsEverything(t *testing.T) {
	in := make(chan event.Envelope)
	durable := make(chan event.Envelope, 8)
	slow := make(chan event.Envelope) // unbuffered, never drained

	done := make(chan struct{})
	go func() {
		event.Tee(in, durable, slow)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		in <- event.Envelope{Sequence: int64(i)}
	}
	close(in)
	<-done

	for want := int64(0); want < 3; want++ {
		env, ok := <-durable
		if !ok {
			t.Fatal("durable channel closed early")
		}
		if env.Sequence != want {
			t.Errorf("sequence: got %d, want %d", env.Sequence, want)
		}
	}
	if _, ok := <-durable; ok {
		t.Error("durable channel should be closed after Tee returns")
	}
	if _, ok := <-slow; ok {
		t.Error("best-effort channel should be closed after Tee returns")
	}
}
