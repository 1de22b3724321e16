package domain

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// URL wraps the parsed request URL. It serializes as the raw string in both
// the human-readable and the binary form.
type URL struct {
	*url.URL
}

func ParseURL(raw string) (URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URL{}, &ParseError{Field: "url", Value: raw}
	}
	return URL{URL: u}, nil
}

func (u URL) String() string {
	if u.URL == nil {
		return ""
	}
	return u.URL.String()
}

// HostLabel names the directory an entry is archived under: the URL's domain,
// its address literal if there is no domain, or "unknown".
func (u URL) HostLabel() string {
	if u.URL != nil {
		if h := u.Hostname(); h != "" {
			return h
		}
	}
	return "unknown"
}

// PathSegments returns the non-empty leading path segments, stopping at the
// first empty one. Dot segments are dropped.
func (u URL) PathSegments() []string {
	if u.URL == nil {
		return nil
	}
	var segs []string
	for _, s := range strings.Split(strings.TrimPrefix(u.Path, "/"), "/") {
		if s == "" {
			break
		}
		if s == "." || s == ".." {
			continue
		}
		segs = append(segs, s)
	}
	return segs
}

func (u URL) MarshalJSON() ([]byte, error) { return json.Marshal(u.String()) }

func (u *URL) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	u.URL = parsed
	return nil
}

func (u URL) MarshalCBOR() ([]byte, error) { return cbor.Marshal(u.String()) }

func (u *URL) UnmarshalCBOR(data []byte) error {
	var raw string
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	u.URL = parsed
	return nil
}
