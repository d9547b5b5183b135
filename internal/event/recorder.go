package event

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const genesisHashSeed = "launchpad:genesis:v1"

// Recorder assigns sequences, chains state hashes, and hands envelopes to the
// emission channel. The send is non-blocking: a full channel drops the
// envelope rather than stalling settlement, and consumers rebuild from the
// persisted event log if they fall behind.
type Recorder struct {
	mu       sync.Mutex
	sequence int64
	prevHash [32]byte
	out      chan<- Envelope
	dropped  int64
}

// NewRecorder creates a recorder writing to out. A nil channel is allowed;
// envelopes are then sequence-stamped and discarded, which keeps the engine
// usable in tests that do not observe emission.
func NewRecorder(out chan<- Envelope) *Recorder {
	return &Recorder{
		prevHash: sha256.Sum256([]byte(genesisHashSeed)),
		out:      out,
	}
}

// Emit builds, chains, and publishes an envelope. Marshal failures are
// impossible for the payload structs in this package, so the error is
// swallowed into a zero payload rather than propagated into settlement.
func (r *Recorder) Emit(evtType Type, assetID string, actor uuid.UUID, backendName string, payload any) {
	data, _ := json.Marshal(payload)

	r.mu.Lock()
	seq := r.sequence
	r.sequence++

	prev := r.prevHash
	hash := r.chainHash(seq, evtType, data)
	r.prevHash = hash

	env := Envelope{
		Sequence:  seq,
		EventType: evtType,
		AssetID:   assetID,
		Actor:     actor,
		Backend:   backendName,
		Timestamp: time.Now().UTC(),
		Payload:   data,
		StateHash: hash,
		PrevHash:  prev,
	}
	r.mu.Unlock()

	if r.out == nil {
		return
	}
	select {
	case r.out <- env:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// chainHash computes sha256(prev || sequence || type || payload). Caller
// holds the lock and rotates the chain tip.
func (r *Recorder) chainHash(seq int64, evtType Type, payload []byte) [32]byte {
	h := sha256.New()
	h.Write(r.prevHash[:])

	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(seq))
	binary.LittleEndian.PutUint32(buf[8:], uint32(evtType))
	h.Write(buf[:])
	h.Write(payload)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Dropped returns how many envelopes were discarded on a full channel.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Sequence returns the next sequence to be assigned.
func (r *Recorder) Sequence() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sequence
}
