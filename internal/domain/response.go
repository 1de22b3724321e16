package domain

type Response struct {
	Status      int         `json:"status" cbor:"status"`
	HTTPVersion HTTPVersion `json:"http_version" cbor:"http_version"`
	Headers     Headers     `json:"headers" cbor:"headers"`
	Content     *Content    `json:"content,omitempty" cbor:"content,omitempty"`
}

// ParseResponse builds a Response. rawURL is the request URL, used only for
// content classification; content is nil when no body was captured.
func ParseResponse(httpVersion string, status int, rawURL string, headers Headers, content []byte) (Response, error) {
	v, err := ParseHTTPVersion(httpVersion)
	if err != nil {
		return Response{}, err
	}
	resp := Response{Status: status, HTTPVersion: v, Headers: headers}
	if content != nil {
		c := NewContent(rawURL, headers.Get("Content-Type"), content)
		resp.Content = &c
	}
	return resp, nil
}
