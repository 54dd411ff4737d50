// Package romfile loads and saves the files a patch is applied to.
package romfile

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"path/filepath"

	"github.com/bodgit/plumbing"
	"github.com/spf13/afero"
)

// ErrTooLarge is returned when a file does not fit in memory on this
// platform.
var ErrTooLarge = errors.New("romfile: file too large")

// File is the complete contents of a file along with its CRC32.
type File struct {
	Name  string
	Data  []byte
	CRC32 uint32
}

// Load reads the whole of name from fs. The CRC32 is computed as the file
// is read.
func Load(fs afero.Fs, name string) (file *File, err error) {
	name = filepath.Clean(name)

	f, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("romfile: error opening: %w", err)
	}

	defer func() {
		if err = errors.Join(err, f.Close()); err != nil {
			file = nil
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("romfile: error retrieving file info: %w", err)
	}

	size := info.Size()
	if size < 0 || int64(int(size)) != size {
		return nil, ErrTooLarge
	}

	h := crc32.NewIEEE()
	data := make([]byte, size)

	if _, err = io.ReadFull(io.NewSectionReader(plumbing.TeeReaderAt(f, h), 0, size), data); err != nil {
		return nil, fmt.Errorf("romfile: error reading: %w", err)
	}

	return &File{
		Name:  name,
		Data:  data,
		CRC32: h.Sum32(),
	}, nil
}

// Save writes data to name on fs. The data is written to a temporary file
// in the same directory which is then renamed over name, so name is
// either left untouched or completely replaced.
func Save(fs afero.Fs, name string, data []byte) error {
	name = filepath.Clean(name)
	dir := filepath.Dir(name)

	if err := fs.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("romfile: error creating directory: %w", err)
	}

	f, err := afero.TempFile(fs, dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return fmt.Errorf("romfile: error creating: %w", err)
	}

	_, err = f.Write(data)
	err = errors.Join(err, f.Close(), fs.Chmod(f.Name(), 0o644)) //nolint:mnd

	if err != nil {
		return fmt.Errorf("romfile: error writing: %w", errors.Join(err, fs.Remove(f.Name())))
	}

	if err = fs.Rename(f.Name(), name); err != nil {
		return fmt.Errorf("romfile: error renaming: %w", errors.Join(err, fs.Remove(f.Name())))
	}

	return nil
}
