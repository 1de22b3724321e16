package domain

import (
	"net/netip"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Version is the schema version stamped into every entry.
type Version struct {
	Major uint16 `json:"major" cbor:"major" yaml:"major"`
	Minor uint16 `json:"minor" cbor:"minor" yaml:"minor"`
}

// CurrentVersion is the schema this package writes.
var CurrentVersion = Version{Major: 0, Minor: 1}

// Timings spans request start to response finish, in UTC. The human-readable
// form is RFC 3339; the binary form is epoch microseconds.
type Timings struct {
	StartTime  time.Time `json:"start_time" yaml:"start_time"`
	FinishTime time.Time `json:"finish_time" yaml:"finish_time"`
}

type timingsWire struct {
	StartTime  int64 `cbor:"start_time"`
	FinishTime int64 `cbor:"finish_time"`
}

func (t Timings) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(timingsWire{
		StartTime:  t.StartTime.UnixMicro(),
		FinishTime: t.FinishTime.UnixMicro(),
	})
}

func (t *Timings) UnmarshalCBOR(data []byte) error {
	var w timingsWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	t.StartTime = time.UnixMicro(w.StartTime).UTC()
	t.FinishTime = time.UnixMicro(w.FinishTime).UTC()
	return nil
}

// Entry is one fully-captured request/response exchange. Entries are immutable
// once constructed; the recorder shares one value read-only across both sink
// workers.
type Entry struct {
	Version    Version         `json:"version" cbor:"version"`
	Index      uint32          `json:"index" cbor:"index"`
	ClientAddr netip.AddrPort  `json:"client_addr" cbor:"client_addr"`
	ServerAddr *netip.AddrPort `json:"server_addr,omitempty" cbor:"server_addr,omitempty"`
	Timings    Timings         `json:"timings" cbor:"timings"`
	Request    Request         `json:"request" cbor:"request"`
	Response   Response        `json:"response" cbor:"response"`
}

// BodyBytes is the entry's weight toward rotation thresholds, split by
// direction.
func (e *Entry) BodyBytes() (request, response uint64) {
	request = e.Request.Body.ContentSize()
	if e.Response.Content != nil {
		response = e.Response.Content.Size
	}
	return request, response
}
