// Package songs is the song asset surface: it lists available ABC tunes
// and serves their raw text by id. A handful of tunes ship embedded in the
// binary; an optional directory adds more at runtime.
package songs

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thorbengrosser/eventheartbeat/internal/tune"
)

//go:embed assets/*.abc
var embedded embed.FS

// Song is one listable tune.
type Song struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

// Library serves the embedded tunes plus any .abc files found in dir
// (dir may be empty).
type Library struct {
	dir string
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// List returns all available songs sorted by id. Display names come from
// the T: header, falling back to the filename without extension.
func (l *Library) List() ([]Song, error) {
	byID := make(map[string]Song)

	entries, err := embedded.ReadDir("assets")
	if err != nil {
		return nil, fmt.Errorf("songs: read embedded assets: %w", err)
	}
	for _, entry := range entries {
		data, err := embedded.ReadFile("assets/" + entry.Name())
		if err != nil {
			continue
		}
		byID[entry.Name()] = describe(entry.Name(), string(data))
	}

	if l.dir != "" {
		files, err := os.ReadDir(l.dir)
		if err == nil {
			for _, f := range files {
				if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".abc") {
					continue
				}
				data, err := os.ReadFile(filepath.Join(l.dir, f.Name()))
				if err != nil {
					continue
				}
				// On-disk tunes shadow embedded ones with the same name.
				byID[f.Name()] = describe(f.Name(), string(data))
			}
		}
	}

	list := make([]Song, 0, len(byID))
	for _, s := range byID {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Fetch returns the raw ABC text for a song id. The id must be a bare
// .abc filename; anything path-shaped is rejected.
func (l *Library) Fetch(id string) (string, error) {
	if !strings.EqualFold(filepath.Ext(id), ".abc") {
		return "", fmt.Errorf("songs: invalid file type %q", id)
	}
	if filepath.Base(id) != id || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("songs: invalid song id %q", id)
	}

	if l.dir != "" {
		if data, err := os.ReadFile(filepath.Join(l.dir, id)); err == nil {
			return string(data), nil
		}
	}

	data, err := embedded.ReadFile("assets/" + id)
	if err != nil {
		return "", fmt.Errorf("songs: %q: %w", id, fs.ErrNotExist)
	}
	return string(data), nil
}

func describe(filename, text string) Song {
	name := tune.Title(text)
	if name == "" {
		name = strings.ReplaceAll(strings.TrimSuffix(filename, filepath.Ext(filename)), "_", " ")
	}
	return Song{ID: filename, Name: name, Filename: filename}
}
