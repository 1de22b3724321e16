package archive

import (
	"archive/tar"
	"encoding/json"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"

	"github.com/reixn/http-recorder/internal/domain"
	obs "github.com/reixn/http-recorder/internal/infrastructure/observability"
)

func testEntry(t *testing.T, index uint32, rawURL string, respBody []byte) *domain.Entry {
	t.Helper()
	req, err := domain.ParseRequest("HTTP/1.1", "GET", rawURL, nil, nil)
	require.NoError(t, err)
	resp, err := domain.ParseResponse("HTTP/1.1", 200, rawURL, nil, respBody)
	require.NoError(t, err)
	base := int64(1700000000_000000)
	return &domain.Entry{
		Version:    domain.CurrentVersion,
		Index:      index,
		ClientAddr: netip.MustParseAddrPort("127.0.0.1:50222"),
		Timings: domain.Timings{
			StartTime:  time.UnixMicro(base + int64(index)*1000).UTC(),
			FinishTime: time.UnixMicro(base + int64(index)*1000 + 500).UTC(),
		},
		Request:  req,
		Response: resp,
	}
}

func newTestBuilder(t *testing.T, opts Options) *Builder {
	t.Helper()
	if opts.Dest == "" {
		opts.Dest = t.TempDir()
	}
	if opts.ArchiveSizeBytes == 0 {
		opts.ArchiveSizeBytes = 1 << 30
	}
	if opts.Logger == nil {
		opts.Logger = obs.NewLoggerTo(os.Stderr, "error")
	}
	b, err := New(opts)
	require.NoError(t, err)
	return b
}

// readArchive lists the tar.xz contents as name -> data; directories map to
// nil.
func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := xz.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(r)
	files := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return files
		}
		require.NoError(t, err)
		if hdr.Typeflag == tar.TypeDir {
			files[strings.TrimSuffix(hdr.Name, "/")] = nil
			continue
		}
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = data
	}
}

func readManifest(t *testing.T, dir string) *domain.Entries[[]domain.Summary] {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "info.json"))
	require.NoError(t, err)
	var m domain.Entries[[]domain.Summary]
	require.NoError(t, json.Unmarshal(data, &m))
	return &m
}

func TestSingleEntrySession(t *testing.T) {
	dest := t.TempDir()
	b := newTestBuilder(t, Options{Dest: dest})
	// GET with no body and a bodyless response
	require.NoError(t, b.AddEntry(testEntry(t, 0, "https://example.com/", nil)))
	require.NoError(t, b.Finish())

	files := readArchive(t, filepath.Join(dest, "example.com", "0.tar.xz"))
	require.Contains(t, files, "0/entry.json")
	require.NotContains(t, files, "0/response-body")

	var e domain.Entry
	require.NoError(t, json.Unmarshal(files["0/entry.json"], &e))
	assert.EqualValues(t, 0, e.Index)
	assert.Equal(t, domain.MethodGet, e.Request.Method)

	m := readManifest(t, filepath.Join(dest, "example.com"))
	assert.EqualValues(t, 1, m.Count)
	assert.EqualValues(t, 0, m.BeginIndex)
	assert.EqualValues(t, 0, m.EndIndex)
	require.Len(t, m.Data, 1)
	assert.EqualValues(t, 1, m.Data[0].Count)
}

func TestDualFormatEntryBin(t *testing.T) {
	dest := t.TempDir()
	b := newTestBuilder(t, Options{Dest: dest, DualFormat: true})
	require.NoError(t, b.AddEntry(testEntry(t, 0, "https://example.com/", []byte("hello"))))
	require.NoError(t, b.Finish())

	files := readArchive(t, filepath.Join(dest, "example.com", "0.tar.xz"))
	require.Contains(t, files, "0/entry.bin")
	var e domain.Entry
	require.NoError(t, domain.DecodeBinary(files["0/entry.bin"], &e))
	assert.Equal(t, []byte("hello"), e.Response.Content.Data)

	// text payload sniffs to a txt extension
	require.Contains(t, files, "0/response-body.txt")
	assert.Equal(t, []byte("hello"), files["0/response-body.txt"])
}

func TestHostGrouping(t *testing.T) {
	dest := t.TempDir()
	b := newTestBuilder(t, Options{Dest: dest})
	require.NoError(t, b.AddEntry(testEntry(t, 0, "https://example.com/a", nil)))
	require.NoError(t, b.AddEntry(testEntry(t, 1, "https://other.net/b", nil)))
	require.NoError(t, b.AddEntry(testEntry(t, 2, "https://example.com/c", nil)))
	require.NoError(t, b.AddEntry(testEntry(t, 3, "/no/host", nil)))
	require.NoError(t, b.Finish())

	files := readArchive(t, filepath.Join(dest, "example.com", "0.tar.xz"))
	require.Contains(t, files, "0/entry.json")
	require.Contains(t, files, "2/entry.json")

	files = readArchive(t, filepath.Join(dest, "other.net", "0.tar.xz"))
	require.Contains(t, files, "1/entry.json")

	files = readArchive(t, filepath.Join(dest, "unknown", "0.tar.xz"))
	require.Contains(t, files, "3/entry.json")

	m := readManifest(t, filepath.Join(dest, "example.com"))
	assert.EqualValues(t, 2, m.Count)
	assert.EqualValues(t, 0, m.BeginIndex)
	assert.EqualValues(t, 2, m.EndIndex)
}

func TestRotation(t *testing.T) {
	// 10-byte threshold with 8-byte bodies: rotation after every second
	// entry, five entries make three archives.
	dest := t.TempDir()
	b := newTestBuilder(t, Options{Dest: dest, ArchiveSizeBytes: 10})
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, b.AddEntry(testEntry(t, i, "https://example.com/", []byte("12345678"))))
	}
	require.NoError(t, b.Finish())

	hostDir := filepath.Join(dest, "example.com")
	archives, err := filepath.Glob(filepath.Join(hostDir, "*.tar.xz"))
	require.NoError(t, err)
	assert.Len(t, archives, 3)

	m := readManifest(t, hostDir)
	assert.EqualValues(t, 5, m.Count)
	assert.EqualValues(t, 0, m.BeginIndex)
	assert.EqualValues(t, 4, m.EndIndex)
	assert.EqualValues(t, 40, m.BodySize.Response)
	require.Len(t, m.Data, 3)

	var total uint32
	for _, s := range m.Data {
		total += s.Count
	}
	assert.EqualValues(t, 5, total, "every entry lands in exactly one archive")

	// second rotation carries entries 2 and 3
	assert.EqualValues(t, 2, m.Data[1].BeginIndex)
	assert.EqualValues(t, 3, m.Data[1].EndIndex)
}

func TestPathLayout(t *testing.T) {
	dest := t.TempDir()
	b := newTestBuilder(t, Options{Dest: dest, Layout: LayoutPath})
	require.NoError(t, b.AddEntry(testEntry(t, 0, "https://example.com/api/v1/users", nil)))
	require.NoError(t, b.Finish())

	files := readArchive(t, filepath.Join(dest, "example.com", "0.tar.xz"))
	require.Contains(t, files, "api/v1/users/0/entry.json")
	require.Contains(t, files, "api")
	require.Contains(t, files, "api/v1")
}

func TestYAMLManifestMatchesJSON(t *testing.T) {
	dest := t.TempDir()
	b := newTestBuilder(t, Options{Dest: dest})
	require.NoError(t, b.AddEntry(testEntry(t, 0, "https://example.com/", []byte("abc"))))
	require.NoError(t, b.Finish())

	hostDir := filepath.Join(dest, "example.com")
	data, err := os.ReadFile(filepath.Join(hostDir, "info.yaml"))
	require.NoError(t, err)
	var fromYAML domain.Entries[[]domain.Summary]
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))

	fromJSON := readManifest(t, hostDir)
	assert.Equal(t, fromJSON.Count, fromYAML.Count)
	assert.Equal(t, fromJSON.BodySize, fromYAML.BodySize)
}

func TestMultipartBodies(t *testing.T) {
	dest := t.TempDir()
	b := newTestBuilder(t, Options{Dest: dest})

	boundary := "testboundary42"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"note\"\r\n\r\n" +
		"first field\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"doc\"; filename=\"d.json\"\r\n" +
		"Content-Type: application/json\r\n\r\n" +
		`{"k":1}` + "\r\n" +
		"--" + boundary + "--\r\n"
	headers := domain.Headers{{Name: "Content-Type", Value: "multipart/form-data; boundary=" + boundary}}
	req, err := domain.ParseRequest("HTTP/1.1", "POST", "https://example.com/upload", headers, []byte(body))
	require.NoError(t, err)
	resp, err := domain.ParseResponse("HTTP/1.1", 204, "https://example.com/upload", nil, nil)
	require.NoError(t, err)
	e := &domain.Entry{
		Version:    domain.CurrentVersion,
		ClientAddr: netip.MustParseAddrPort("127.0.0.1:50333"),
		Timings: domain.Timings{
			StartTime:  time.UnixMicro(1700000000_000000).UTC(),
			FinishTime: time.UnixMicro(1700000000_500000).UTC(),
		},
		Request:  req,
		Response: resp,
	}
	require.NoError(t, b.AddEntry(e))
	require.NoError(t, b.Finish())

	files := readArchive(t, filepath.Join(dest, "example.com", "0.tar.xz"))
	require.Contains(t, files, "0/request-body")
	require.Contains(t, files, "0/request-body/0.txt")
	require.Contains(t, files, "0/request-body/1.json")
	assert.Equal(t, []byte("first field"), files["0/request-body/0.txt"])
	assert.Equal(t, []byte(`{"k":1}`), files["0/request-body/1.json"])
}
