package romfile

import (
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// Cache loads files through an LRU cache. Concurrent loads of the same
// name share a single read. The returned Data is shared and must not be
// modified.
type Cache struct {
	fs    afero.Fs
	files *lru.Cache[string, *File]
	group singleflight.Group
}

// NewCache returns a Cache holding at most size files read from fs.
func NewCache(fs afero.Fs, size int) (*Cache, error) {
	files, err := lru.New[string, *File](size)
	if err != nil {
		return nil, fmt.Errorf("romfile: error creating cache: %w", err)
	}

	return &Cache{
		fs:    fs,
		files: files,
	}, nil
}

// Load returns the contents of name, reading it from the filesystem only
// if it is not already cached.
func (c *Cache) Load(name string) (*File, error) {
	name = filepath.Clean(name)

	if f, ok := c.files.Get(name); ok {
		return f, nil
	}

	v, err, _ := c.group.Do(name, func() (interface{}, error) {
		if f, ok := c.files.Get(name); ok {
			return f, nil
		}

		f, err := Load(c.fs, name)
		if err != nil {
			return nil, err
		}

		c.files.Add(name, f)

		return f, nil
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	f, _ := v.(*File)

	return f, nil
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.files.Len()
}
