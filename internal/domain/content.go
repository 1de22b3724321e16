package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// AlgoSHA256 is the only digest algorithm currently produced.
const AlgoSHA256 = "SHA256"

// SHA256Size is the digest length in bytes.
const SHA256Size = 32

// Digest content-addresses a payload. The human-readable form carries the hash
// as hex, the binary form as a raw byte string.
type Digest struct {
	Algo string
	Sum  []byte
}

func NewDigest(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest{Algo: AlgoSHA256, Sum: sum[:]}
}

func (d Digest) Hex() string { return hex.EncodeToString(d.Sum) }

type digestJSON struct {
	Algo string `json:"algo"`
	Hash string `json:"hash"`
}

type digestWire struct {
	Algo string `cbor:"algo"`
	Hash []byte `cbor:"hash"`
}

func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(digestJSON{Algo: d.Algo, Hash: d.Hex()})
}

func (d *Digest) UnmarshalJSON(data []byte) error {
	var w digestJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	sum, err := hex.DecodeString(w.Hash)
	if err != nil {
		return fmt.Errorf("decode digest hash: %w", err)
	}
	if w.Algo == AlgoSHA256 && len(sum) != SHA256Size {
		return fmt.Errorf("sha256 digest must be %d bytes, got %d", SHA256Size, len(sum))
	}
	d.Algo, d.Sum = w.Algo, sum
	return nil
}

func (d Digest) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(digestWire{Algo: d.Algo, Hash: d.Sum})
}

func (d *Digest) UnmarshalCBOR(data []byte) error {
	var w digestWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Algo == AlgoSHA256 && len(w.Hash) != SHA256Size {
		return fmt.Errorf("sha256 digest must be %d bytes, got %d", SHA256Size, len(w.Hash))
	}
	d.Algo, d.Sum = w.Algo, w.Hash
	return nil
}

// Content is one captured payload. Size always reflects the true payload
// length even when Data is elided; the digest is computed once over the exact
// bytes stored. The human-readable form never carries Data, the binary form
// always does.
type Content struct {
	ContentType string `json:"content_type" cbor:"content_type"`
	Digest      Digest `json:"digest" cbor:"digest"`
	Extension   string `json:"extension,omitempty" cbor:"extension,omitempty"`
	Size        uint64 `json:"size" cbor:"size"`
	Data        []byte `json:"-" cbor:"data"`
}

// NewContent classifies data and wraps it. It is pure and never fails: an
// unclassifiable payload degrades to application/octet-stream.
func NewContent(rawURL, declared string, data []byte) Content {
	ct, ext := sniffContentType(rawURL, declared, data)
	return Content{
		ContentType: ct,
		Digest:      NewDigest(data),
		Extension:   ext,
		Size:        uint64(len(data)),
		Data:        data,
	}
}

// sniffContentType picks a media type from the declared content-type header
// first, then the byte prefix, falling back to the URL path extension.
func sniffContentType(rawURL, declared string, data []byte) (mediaType, ext string) {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != octetStream {
			return mt, extensionFor(mt)
		}
	}
	if len(data) > 0 {
		det := mimetype.Detect(data)
		if !det.Is(octetStream) {
			if mt, _, err := mime.ParseMediaType(det.String()); err == nil {
				return mt, strings.TrimPrefix(det.Extension(), ".")
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			if t := mime.TypeByExtension(e); t != "" {
				if mt, _, err := mime.ParseMediaType(t); err == nil {
					return mt, strings.TrimPrefix(e, ".")
				}
			}
		}
	}
	return octetStream, ""
}

func extensionFor(mediaType string) string {
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}
