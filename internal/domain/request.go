package domain

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
)

type BodyKind string

const (
	BodyContent    BodyKind = "content"
	BodyMultipart  BodyKind = "multipart"
	BodyURLEncoded BodyKind = "urlencoded"
)

// FormField is one decoded multipart/form-data field.
type FormField struct {
	Name     string  `json:"name" cbor:"name"`
	FileName string  `json:"file_name,omitempty" cbor:"file_name,omitempty"`
	Content  Content `json:"content" cbor:"content"`
}

// Param is one name/value pair of an urlencoded form, order preserved.
type Param struct {
	Name  string `json:"name" cbor:"name"`
	Value string `json:"value" cbor:"value"`
}

// Body is the decoded request payload. Exactly one of Content, Form, Params is
// set, per Kind.
type Body struct {
	Kind    BodyKind    `json:"kind" cbor:"kind"`
	Content *Content    `json:"content,omitempty" cbor:"content,omitempty"`
	Form    []FormField `json:"form,omitempty" cbor:"form,omitempty"`
	Params  []Param     `json:"params,omitempty" cbor:"params,omitempty"`
}

// ContentSize is the body's weight toward rotation thresholds. Urlencoded
// forms weigh nothing.
func (b *Body) ContentSize() uint64 {
	if b == nil {
		return 0
	}
	switch b.Kind {
	case BodyContent:
		if b.Content != nil {
			return b.Content.Size
		}
	case BodyMultipart:
		var n uint64
		for _, f := range b.Form {
			n += f.Content.Size
		}
		return n
	}
	return 0
}

type Request struct {
	Method      Method      `json:"method" cbor:"method"`
	URL         URL         `json:"url" cbor:"url"`
	HTTPVersion HTTPVersion `json:"http_version" cbor:"http_version"`
	Headers     Headers     `json:"headers" cbor:"headers"`
	Body        *Body       `json:"body,omitempty" cbor:"body,omitempty"`
}

// ParseRequest builds a Request from already-split wire pieces. content is nil
// when no body was captured.
func ParseRequest(httpVersion, method, rawURL string, headers Headers, content []byte) (Request, error) {
	v, err := ParseHTTPVersion(httpVersion)
	if err != nil {
		return Request{}, err
	}
	u, err := ParseURL(rawURL)
	if err != nil {
		return Request{}, err
	}
	body, err := parseBody(u, headers.Get("Content-Type"), content)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Method:      ParseMethod(method),
		URL:         u,
		HTTPVersion: v,
		Headers:     headers,
		Body:        body,
	}, nil
}

func parseBody(u URL, declared string, content []byte) (*Body, error) {
	if content == nil {
		return nil, nil
	}
	if mt, params, err := mime.ParseMediaType(declared); err == nil {
		switch mt {
		case "multipart/form-data":
			if boundary := params["boundary"]; boundary != "" {
				if form, err := parseMultipart(u, boundary, content); err == nil {
					return &Body{Kind: BodyMultipart, Form: form}, nil
				}
				// malformed multipart degrades to an opaque content body
			}
		case "application/x-www-form-urlencoded":
			if pairs, ok := parseURLEncoded(content); ok {
				return &Body{Kind: BodyURLEncoded, Params: pairs}, nil
			}
		}
	}
	c := NewContent(u.String(), declared, content)
	return &Body{Kind: BodyContent, Content: &c}, nil
}

func parseMultipart(u URL, boundary string, content []byte) ([]FormField, error) {
	mr := multipart.NewReader(bytes.NewReader(content), boundary)
	var form []FormField
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		form = append(form, FormField{
			Name:     part.FormName(),
			FileName: part.FileName(),
			Content:  NewContent(u.String(), part.Header.Get("Content-Type"), data),
		})
	}
}

// parseURLEncoded splits a www-form-urlencoded body preserving pair order,
// which url.ParseQuery would lose.
func parseURLEncoded(content []byte) ([]Param, bool) {
	var pairs []Param
	for _, kv := range strings.Split(string(content), "&") {
		if kv == "" {
			continue
		}
		name, value, _ := strings.Cut(kv, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return nil, false
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, false
		}
		pairs = append(pairs, Param{Name: n, Value: v})
	}
	return pairs, true
}
