package event

// Tee forwards envelopes from in until it closes. The durable channel gets a
// blocking send so the event log never silently loses an envelope; the
// best-effort channels get non-blocking sends and slow consumers miss
// envelopes, which they recover from the persisted log. Closes every output
// when in closes.
func Tee(in <-chan Envelope, durable chan<- Envelope, bestEffort ...chan<- Envelope) {
	for env := range in {
		durable <- env
		for _, out := range bestEffort {
			select {
			case out <- env:
			default:
			}
		}
	}
	close(durable)
	for _, out := range bestEffort {
		close(out)
	}
}
