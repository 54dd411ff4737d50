//nolint:wrapcheck
package romfile

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
)

var errAssertion = errors.New("type assertion failed")

type mockFile struct {
	mock.Mock
}

func (m *mockFile) Name() string {
	return m.Called().String(0)
}

func (m *mockFile) Readdir(count int) ([]os.FileInfo, error) {
	args := m.Called(count)

	infos, ok := args.Get(0).([]os.FileInfo)
	if infos != nil && !ok {
		panic(errAssertion)
	}

	return infos, args.Error(1)
}

func (m *mockFile) Readdirnames(n int) ([]string, error) {
	args := m.Called(n)

	names, ok := args.Get(0).([]string)
	if names != nil && !ok {
		panic(errAssertion)
	}

	return names, args.Error(1)
}

func (m *mockFile) Stat() (os.FileInfo, error) {
	args := m.Called()

	info, ok := args.Get(0).(os.FileInfo)
	if info != nil && !ok {
		panic(errAssertion)
	}

	return info, args.Error(1)
}

func (m *mockFile) Sync() error {
	return m.Called().Error(0)
}

func (m *mockFile) Truncate(size int64) error {
	return m.Called(size).Error(0)
}

func (m *mockFile) WriteString(s string) (int, error) {
	args := m.Called(s)

	return args.Int(0), args.Error(1)
}

func (m *mockFile) Close() error {
	return m.Called().Error(0)
}

func (m *mockFile) Read(p []byte) (int, error) {
	args := m.Called(p)

	return args.Int(0), args.Error(1)
}

func (m *mockFile) ReadAt(p []byte, off int64) (int, error) {
	args := m.Called(p, off)

	return args.Int(0), args.Error(1)
}

func (m *mockFile) Seek(offset int64, whence int) (int64, error) {
	args := m.Called(offset, whence)

	n, ok := args.Get(0).(int64)
	if !ok {
		panic(errAssertion)
	}

	return n, args.Error(1)
}

func (m *mockFile) Write(p []byte) (int, error) {
	args := m.Called(p)

	return args.Int(0), args.Error(1)
}

func (m *mockFile) WriteAt(p []byte, off int64) (int, error) {
	args := m.Called(p, off)

	return args.Int(0), args.Error(1)
}

func newMockFile(tb testing.TB) *mockFile {
	tb.Helper()

	mock := new(mockFile)
	mock.Test(tb)

	tb.Cleanup(func() { mock.AssertExpectations(tb) })

	return mock
}

type mockFs struct {
	mock.Mock
}

func (m *mockFs) file(args mock.Arguments) (afero.File, error) {
	file, ok := args.Get(0).(afero.File)
	if args.Get(0) != nil && !ok {
		panic(errAssertion)
	}

	return file, args.Error(1)
}

func (m *mockFs) Create(name string) (afero.File, error) {
	return m.file(m.Called(name))
}

func (m *mockFs) Mkdir(name string, perm os.FileMode) error {
	return m.Called(name, perm).Error(0)
}

func (m *mockFs) MkdirAll(path string, perm os.FileMode) error {
	return m.Called(path, perm).Error(0)
}

func (m *mockFs) Open(name string) (afero.File, error) {
	return m.file(m.Called(name))
}

func (m *mockFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	return m.file(m.Called(name, flag, perm))
}

func (m *mockFs) Remove(name string) error {
	return m.Called(name).Error(0)
}

func (m *mockFs) RemoveAll(path string) error {
	return m.Called(path).Error(0)
}

func (m *mockFs) Rename(oldname, newname string) error {
	return m.Called(oldname, newname).Error(0)
}

func (m *mockFs) Stat(name string) (os.FileInfo, error) {
	args := m.Called(name)

	info, ok := args.Get(0).(os.FileInfo)
	if info != nil && !ok {
		panic(errAssertion)
	}

	return info, args.Error(1)
}

func (m *mockFs) Name() string {
	return m.Called().String(0)
}

func (m *mockFs) Chmod(name string, mode os.FileMode) error {
	return m.Called(name, mode).Error(0)
}

func (m *mockFs) Chown(name string, uid, gid int) error {
	return m.Called(name, uid, gid).Error(0)
}

func (m *mockFs) Chtimes(name string, atime, mtime time.Time) error {
	return m.Called(name, atime, mtime).Error(0)
}

func newMockFs(tb testing.TB) *mockFs {
	tb.Helper()

	mock := new(mockFs)
	mock.Test(tb)

	tb.Cleanup(func() { mock.AssertExpectations(tb) })

	return mock
}

var (
	_ afero.File = new(mockFile)
	_ afero.Fs   = new(mockFs)
)
