package processor

import (
	"io"
	"os"
	"path/filepath"

	"github.com/jhump/autoserv/registry"
)

// DirFiler is a registry.Filer for resources under a root directory.
type DirFiler struct {
	root   string
	create OutputFactory
}

var _ registry.Filer = (*DirFiler)(nil)

// NewDirFiler returns a filer rooted at the given directory. Resources are
// created with DefaultOutputFactory, so missing directories are created too.
func NewDirFiler(root string) *DirFiler {
	return &DirFiler{root: root, create: DefaultOutputFactory(root)}
}

// Root returns the filer's root directory.
func (f *DirFiler) Root() string {
	return f.root
}

// GetResource opens the resource at the given slash-separated path. If it
// does not exist, the error satisfies errors.Is(err, fs.ErrNotExist).
func (f *DirFiler) GetResource(path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(f.root, filepath.FromSlash(path)))
}

// CreateResource creates (or truncates) the resource at the given
// slash-separated path.
func (f *DirFiler) CreateResource(path string) (io.WriteCloser, error) {
	return f.create(path)
}
