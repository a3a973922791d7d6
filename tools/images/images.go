package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// Store manages one on-disk image directory: downloads from the image
// search tool land here and the layout pass later picks up what a run
// produced via snapshot/diff.
type Store struct {
	Dir string
}

func (s Store) ensure() error { return os.MkdirAll(s.Dir, 0o755) }

// List returns the image filenames currently in the directory.
func (s Store) List() ([]string, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Snapshot records the current set of filenames.
func (s Store) Snapshot() (map[string]struct{}, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

// NewSince returns full paths of images that appeared after the snapshot.
func (s Store) NewSince(before map[string]struct{}) ([]string, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if _, existed := before[n]; !existed {
			out = append(out, filepath.Join(s.Dir, n))
		}
	}
	return out, nil
}

func (s Store) Path(name string) string { return filepath.Join(s.Dir, filepath.Base(name)) }

func (s Store) Remove(name string) error { return os.Remove(s.Path(name)) }

// ListAll walks the directory tree and returns image paths relative to the
// store root, covering per-run subdirectories.
func (s Store) ListAll() ([]string, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	var out []string
	err := filepath.WalkDir(s.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(s.Dir, path)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Resolve maps a store-relative path to an absolute one, rejecting anything
// that escapes the store root.
func (s Store) Resolve(rel string) (string, error) {
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid image path %q", rel)
	}
	return filepath.Join(s.Dir, clean), nil
}

// Download fetches one image URL into the store as {base}_{idx}{ext}. The
// extension is taken from the URL when recognizable, .jpg otherwise.
func (s Store) Download(ctx context.Context, rawURL, base string, idx int) (string, error) {
	if err := s.ensure(); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	ext := strings.ToLower(filepath.Ext(strings.SplitN(rawURL, "?", 2)[0]))
	if !imageExtensions[ext] {
		ext = ".jpg"
	}
	name := fmt.Sprintf("%s_%d%s", sanitizeBase(base), idx, ext)
	path := filepath.Join(s.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, io.LimitReader(resp.Body, 10<<20)); err != nil {
		os.Remove(path)
		return "", err
	}
	return name, nil
}

// sanitizeBase keeps file names shell- and URL-friendly.
func sanitizeBase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "image"
	}
	const maxBase = 40
	out := b.String()
	if len(out) > maxBase {
		out = out[:maxBase]
	}
	return out
}
