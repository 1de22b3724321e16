package httpapi

import (
	"net/netip"
	"time"

	"github.com/reixn/http-recorder/internal/domain"
	"github.com/reixn/http-recorder/pkg/shared/redact"
)

// flowRecord is the intake wire format: one intercepted exchange as the
// upstream proxy adapter ships it. Bodies are base64 in JSON; a missing
// content field means the body was not captured, as opposed to captured and
// empty. Timestamps are float epoch seconds.
type flowRecord struct {
	ClientAddr string       `json:"client_addr"`
	ServerAddr string       `json:"server_addr,omitempty"`
	Request    flowRequest  `json:"request"`
	Response   flowResponse `json:"response"`
}

type flowRequest struct {
	TimestampStart float64     `json:"timestamp_start"`
	HTTPVersion    string      `json:"http_version"`
	Method         string      `json:"method"`
	URL            string      `json:"url"`
	Headers        [][2]string `json:"headers"`
	Content        []byte      `json:"content,omitempty"`
}

type flowResponse struct {
	TimestampEnd float64     `json:"timestamp_end"`
	HTTPVersion  string      `json:"http_version"`
	StatusCode   int         `json:"status_code"`
	Headers      [][2]string `json:"headers"`
	Content      []byte      `json:"content,omitempty"`
}

// toEntry translates the wire record into the statically-typed Entry. The
// index is assigned later by the recorder.
func (f *flowRecord) toEntry(redactHeaders bool) (*domain.Entry, error) {
	client, err := netip.ParseAddrPort(f.ClientAddr)
	if err != nil {
		return nil, &domain.ParseError{Field: "client address", Value: f.ClientAddr}
	}
	var server *netip.AddrPort
	if f.ServerAddr != "" {
		a, err := netip.ParseAddrPort(f.ServerAddr)
		if err != nil {
			return nil, &domain.ParseError{Field: "server address", Value: f.ServerAddr}
		}
		server = &a
	}
	req, err := domain.ParseRequest(
		f.Request.HTTPVersion,
		f.Request.Method,
		f.Request.URL,
		toHeaders(f.Request.Headers, redactHeaders),
		f.Request.Content,
	)
	if err != nil {
		return nil, err
	}
	resp, err := domain.ParseResponse(
		f.Response.HTTPVersion,
		f.Response.StatusCode,
		f.Request.URL,
		toHeaders(f.Response.Headers, redactHeaders),
		f.Response.Content,
	)
	if err != nil {
		return nil, err
	}
	return &domain.Entry{
		Version:    domain.CurrentVersion,
		ClientAddr: client,
		ServerAddr: server,
		Timings: domain.Timings{
			StartTime:  epochTime(f.Request.TimestampStart),
			FinishTime: epochTime(f.Response.TimestampEnd),
		},
		Request:  req,
		Response: resp,
	}, nil
}

func toHeaders(pairs [][2]string, redactValues bool) domain.Headers {
	hs := make(domain.Headers, 0, len(pairs))
	for _, p := range pairs {
		name, value := p[0], p[1]
		if redactValues {
			value = redact.HeaderValue(name, value)
		}
		hs = append(hs, domain.Header{Name: name, Value: value})
	}
	return hs
}

func epochTime(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second))).UTC()
}
