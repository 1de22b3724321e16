package domain

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestNewContentDeterministic(t *testing.T) {
	data := []byte(`{"user":"alice"}`)
	a := NewContent("https://example.com/api", "application/json", data)
	b := NewContent("https://example.com/api", "application/json", data)
	if a.ContentType != b.ContentType || a.Extension != b.Extension {
		t.Fatalf("classification not deterministic: %+v vs %+v", a, b)
	}
	if !bytes.Equal(a.Digest.Sum, b.Digest.Sum) {
		t.Fatalf("digest not deterministic: %s vs %s", a.Digest.Hex(), b.Digest.Hex())
	}
}

func TestNewContentDigest(t *testing.T) {
	c := NewContent("https://example.com/x", "", []byte("hello"))
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if c.Digest.Algo != AlgoSHA256 {
		t.Fatalf("unexpected algo %q", c.Digest.Algo)
	}
	if got := c.Digest.Hex(); got != want {
		t.Fatalf("sha256(hello) = %s, want %s", got, want)
	}
	if c.Size != 5 {
		t.Fatalf("size = %d, want 5", c.Size)
	}
}

func TestNewContentDeclaredType(t *testing.T) {
	c := NewContent("https://example.com/api", "application/json; charset=utf-8", []byte(`{}`))
	if c.ContentType != "application/json" {
		t.Fatalf("content type = %q", c.ContentType)
	}
	if c.Extension != "json" {
		t.Fatalf("extension = %q", c.Extension)
	}
}

func TestNewContentSniffsBytes(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	c := NewContent("https://example.com/img", "", png)
	if c.ContentType != "image/png" {
		t.Fatalf("content type = %q, want image/png", c.ContentType)
	}
	if c.Extension != "png" {
		t.Fatalf("extension = %q, want png", c.Extension)
	}
}

func TestNewContentURLFallback(t *testing.T) {
	c := NewContent("https://example.com/styles/site.css", "", nil)
	if c.ContentType != "text/css" {
		t.Fatalf("content type = %q, want text/css", c.ContentType)
	}
	if c.Extension != "css" {
		t.Fatalf("extension = %q, want css", c.Extension)
	}
}

func TestNewContentOctetStreamFallback(t *testing.T) {
	c := NewContent("https://example.com/blob", "", []byte{0x00, 0x01, 0x02})
	if c.ContentType != "application/octet-stream" {
		t.Fatalf("content type = %q", c.ContentType)
	}
	if c.Extension != "" {
		t.Fatalf("extension = %q, want empty", c.Extension)
	}
	if c.Size != 3 {
		t.Fatalf("size = %d", c.Size)
	}
}

func TestDigestHex(t *testing.T) {
	d := NewDigest([]byte("x"))
	sum, err := hex.DecodeString(d.Hex())
	if err != nil || len(sum) != SHA256Size {
		t.Fatalf("bad hex digest %q: %v", d.Hex(), err)
	}
}
