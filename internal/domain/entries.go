package domain

// BodySize accumulates captured payload bytes by direction.
type BodySize struct {
	Request  uint64 `json:"request" cbor:"request" yaml:"request"`
	Response uint64 `json:"response" cbor:"response" yaml:"response"`
}

// Entries summarizes a contiguous run of entries. Data carries the run itself
// for staging packs, struct{} for a summary-only manifest, or a slice of
// nested summaries for a rotation history.
//
// An Entries value is owned and mutated by exactly one goroutine; on rotation
// or session end it is frozen and serialized as a manifest.
type Entries[T any] struct {
	BeginIndex uint32   `json:"begin_index" cbor:"begin_index" yaml:"begin_index"`
	BeginTime  Timings  `json:"begin_time" cbor:"begin_time" yaml:"begin_time"`
	EndIndex   uint32   `json:"end_index" cbor:"end_index" yaml:"end_index"`
	EndTime    Timings  `json:"end_time" cbor:"end_time" yaml:"end_time"`
	Count      uint32   `json:"count" cbor:"count" yaml:"count"`
	BodySize   BodySize `json:"body_size" cbor:"body_size" yaml:"body_size"`
	Data       T        `json:"data" cbor:"data" yaml:"data"`
}

// Summary is a manifest view of a run without its payload.
type Summary = Entries[struct{}]

func NewEntries[T any](beginIndex uint32, beginTime Timings) *Entries[T] {
	return &Entries[T]{
		BeginIndex: beginIndex,
		BeginTime:  beginTime,
		EndIndex:   beginIndex,
		EndTime:    beginTime,
	}
}

// Update folds one entry into the running summary. Entries must be applied in
// index order by the owning goroutine.
func (es *Entries[T]) Update(e *Entry) {
	es.EndIndex = e.Index
	es.EndTime = e.Timings
	es.Count++
	req, resp := e.BodyBytes()
	es.BodySize.Request += req
	es.BodySize.Response += resp
}

// ContentSize is the single rotation-trigger metric.
func (es *Entries[T]) ContentSize() uint64 {
	return es.BodySize.Request + es.BodySize.Response
}

// Summary strips the payload, keeping the counters.
func (es *Entries[T]) Summary() Summary {
	return Summary{
		BeginIndex: es.BeginIndex,
		BeginTime:  es.BeginTime,
		EndIndex:   es.EndIndex,
		EndTime:    es.EndTime,
		Count:      es.Count,
		BodySize:   es.BodySize,
	}
}
