package archive

import (
	"archive/tar"
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/ulikunitz/xz"

	"github.com/reixn/http-recorder/internal/domain"
)

// tarFile is one open <seq>.tar.xz in a host directory. It tracks which
// directories it has already emitted so each appears once.
type tarFile struct {
	info *domain.Summary
	f    *os.File
	bw   *bufio.Writer
	xzw  *xz.Writer
	tw   *tar.Writer
	dirs map[string]struct{}
}

func newTarFile(dir string, seq uint32, e *domain.Entry) (*tarFile, error) {
	p := filepath.Join(dir, fmt.Sprintf("%d.tar.xz", seq))
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}
	bw := bufio.NewWriter(f)
	xzw, err := xz.NewWriter(bw)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("start compressor: %w", err)
	}
	return &tarFile{
		info: domain.NewEntries[struct{}](e.Index, e.Timings),
		f:    f,
		bw:   bw,
		xzw:  xzw,
		tw:   tar.NewWriter(xzw),
		dirs: make(map[string]struct{}),
	}, nil
}

func (t *tarFile) writeDir(name string, e *domain.Entry) error {
	if _, ok := t.dirs[name]; ok {
		return nil
	}
	hdr := &tar.Header{
		Name:     name + "/",
		Mode:     0o755,
		Typeflag: tar.TypeDir,
		ModTime:  e.Timings.FinishTime,
	}
	if err := t.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("create dir %s: %w", name, err)
	}
	t.dirs[name] = struct{}{}
	return nil
}

func (t *tarFile) writeFile(name string, data []byte, e *domain.Entry) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o444,
		Size:     int64(len(data)),
		Typeflag: tar.TypeReg,
		ModTime:  e.Timings.FinishTime,
	}
	if err := t.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := t.tw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// entryDir emits the entry's parent directories and returns the directory the
// entry's files go into. With the path layout the URL path hierarchy comes
// first; the index directory is always the leaf.
func (t *tarFile) entryDir(e *domain.Entry, layout Layout) (string, error) {
	dir := ""
	if layout == LayoutPath {
		for _, seg := range e.Request.URL.PathSegments() {
			dir = path.Join(dir, seg)
			if err := t.writeDir(dir, e); err != nil {
				return "", err
			}
		}
	}
	dir = path.Join(dir, strconv.FormatUint(uint64(e.Index), 10))
	if err := t.writeDir(dir, e); err != nil {
		return "", err
	}
	return dir, nil
}

func (t *tarFile) addEntry(e *domain.Entry, layout Layout, dualFormat bool) error {
	dir, err := t.entryDir(e, layout)
	if err != nil {
		return err
	}
	if err := t.writeRequestBody(dir, e); err != nil {
		return err
	}
	if c := e.Response.Content; c != nil && c.Data != nil {
		name := "response-body"
		if c.Extension != "" {
			name += "." + c.Extension
		}
		if err := t.writeFile(path.Join(dir, name), c.Data, e); err != nil {
			return err
		}
	}
	if dualFormat {
		data, err := domain.EncodeBinary(e)
		if err != nil {
			return fmt.Errorf("encode entry %d: %w", e.Index, err)
		}
		if err := t.writeFile(path.Join(dir, "entry.bin"), data, e); err != nil {
			return err
		}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry %d: %w", e.Index, err)
	}
	if err := t.writeFile(path.Join(dir, "entry.json"), data, e); err != nil {
		return err
	}
	t.info.Update(e)
	return nil
}

func (t *tarFile) writeRequestBody(dir string, e *domain.Entry) error {
	b := e.Request.Body
	if b == nil {
		return nil
	}
	switch b.Kind {
	case domain.BodyContent:
		if b.Content != nil && b.Content.Data != nil {
			return t.writeFile(path.Join(dir, "request-body"), b.Content.Data, e)
		}
	case domain.BodyMultipart:
		if len(b.Form) == 0 {
			return nil
		}
		bodyDir := path.Join(dir, "request-body")
		if err := t.writeDir(bodyDir, e); err != nil {
			return err
		}
		for i, f := range b.Form {
			if f.Content.Data == nil {
				continue
			}
			name := strconv.Itoa(i)
			if f.Content.Extension != "" {
				name += "." + f.Content.Extension
			}
			if err := t.writeFile(path.Join(bodyDir, name), f.Content.Data, e); err != nil {
				return fmt.Errorf("multipart field %d: %w", i, err)
			}
		}
	}
	return nil
}

// finish flushes the whole writer chain and syncs the file, then returns the
// frozen summary.
func (t *tarFile) finish() (domain.Summary, error) {
	if err := t.tw.Close(); err != nil {
		t.f.Close()
		return domain.Summary{}, fmt.Errorf("finish tar: %w", err)
	}
	if err := t.xzw.Close(); err != nil {
		t.f.Close()
		return domain.Summary{}, fmt.Errorf("finish compression: %w", err)
	}
	if err := t.bw.Flush(); err != nil {
		t.f.Close()
		return domain.Summary{}, fmt.Errorf("flush archive: %w", err)
	}
	if err := t.f.Sync(); err != nil {
		t.f.Close()
		return domain.Summary{}, fmt.Errorf("sync archive: %w", err)
	}
	if err := t.f.Close(); err != nil {
		return domain.Summary{}, fmt.Errorf("close archive: %w", err)
	}
	return *t.info, nil
}
