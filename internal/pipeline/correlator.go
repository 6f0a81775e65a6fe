package pipeline

// Correlator stamps requests and filters responses for freshness.
//
// It is not safe for concurrent use; Controller serializes access. The
// counter is a uint64, wraparound within a process lifetime is not a
// practical concern and is not handled.
type Correlator struct {
	latest uint64
}

// Issue returns a request stamped with the next sequence number and records
// it as the latest.
func (c *Correlator) Issue(payload string) Request {
	c.latest++
	return Request{Seq: c.latest, Payload: payload}
}

// Accept reports whether resp answers the latest issued request. A false
// result is the expected outcome for superseded work, not an error.
func (c *Correlator) Accept(resp Response) bool {
	return c.latest != 0 && resp.Seq == c.latest
}

func (c *Correlator) Latest() uint64 { return c.latest }
