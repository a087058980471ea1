package mcpservice

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"
)

// FSResources declares one resource per regular file in fsys. Keys are the
// slash-separated paths relative to the root and URIs are baseURI followed by
// the escaped path (e.g. "fs://docs/guide/intro.md"). The MIME type is taken
// from the file extension, falling back to application/octet-stream.
//
// Symlinks and paths that fs.ValidPath rejects are skipped. Files are read on
// every request, valid UTF-8 content is returned as text and everything else
// as a blob.
func FSResources(fsys fs.FS, baseURI string) (map[string]Resource, error) {
	base := strings.TrimRight(baseURI, "/")
	out := make(map[string]Resource)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || isSymlink(d) || !validFSPath(p) {
			return nil
		}
		mt := mime.TypeByExtension(strings.ToLower(path.Ext(p)))
		if mt == "" {
			mt = "application/octet-stream"
		}
		rel := p
		out[rel] = NewResource(path.Base(rel)).
			URI(relToURI(base, rel)).
			MimeType(mt).
			Handle(func(ctx context.Context, _ *ResourceRequest) (any, error) {
				data, err := fs.ReadFile(fsys, rel)
				if err != nil {
					return nil, fmt.Errorf("read %s: %w", rel, err)
				}
				if utf8.Valid(data) {
					return string(data), nil
				}
				return data, nil
			})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isSymlink(d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink != 0 {
		return true
	}
	// Some FS don't set Type; fall back to Info
	if info, err := d.Info(); err == nil {
		return info.Mode()&fs.ModeSymlink != 0
	}
	return false
}

func validFSPath(p string) bool {
	// fs.ValidPath requires clean, no leading slash, and no ".." segments.
	return fs.ValidPath(p) && !strings.Contains(p, ":")
}

func relToURI(base, rel string) string {
	segs := strings.Split(rel, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(segs, "/")
}
