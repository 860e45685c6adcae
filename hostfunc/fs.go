package hostfunc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MountMode defines the permission level for a mount point.
type MountMode int

const (
	// MountReadOnly allows only read operations.
	MountReadOnly MountMode = iota
	// MountReadWrite allows read and write operations to existing files.
	MountReadWrite
	// MountReadWriteCreate also allows creating files.
	MountReadWriteCreate
)

// ParseMountMode accepts "ro", "rw" and "rwc".
func ParseMountMode(s string) (MountMode, error) {
	switch s {
	case "ro", "":
		return MountReadOnly, nil
	case "rw":
		return MountReadWrite, nil
	case "rwc":
		return MountReadWriteCreate, nil
	}
	return MountReadOnly, fmt.Errorf("invalid mount mode %q (expected ro, rw, or rwc)", s)
}

// Mount maps a virtual path to a host path.
type Mount struct {
	VirtualPath string    // Path as seen by callers (e.g., "/data")
	HostPath    string    // Actual path on host filesystem
	Mode        MountMode // Permission level
}

const (
	DefaultMaxFileSize   = 10 << 20
	DefaultMaxWriteSize  = 10 << 20
	DefaultMaxPathLength = 4096
)

// FSOption configures an FS.
type FSOption func(*FS)

func WithMaxFileSize(n int64) FSOption  { return func(f *FS) { f.maxFileSize = n } }
func WithMaxWriteSize(n int64) FSOption { return func(f *FS) { f.maxWriteSize = n } }
func WithMaxPathLength(n int) FSOption  { return func(f *FS) { f.maxPathLength = n } }

// FS provides file access through explicit mount points. Mounts are fixed
// at construction.
type FS struct {
	mounts        []Mount
	maxFileSize   int64
	maxWriteSize  int64
	maxPathLength int
}

// NewFS creates a filesystem handler with the given mount points.
func NewFS(mounts []Mount, opts ...FSOption) *FS {
	f := &FS{
		maxFileSize:   DefaultMaxFileSize,
		maxWriteSize:  DefaultMaxWriteSize,
		maxPathLength: DefaultMaxPathLength,
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, m := range mounts {
		hp, err := filepath.Abs(m.HostPath)
		if err != nil {
			continue
		}
		f.mounts = append(f.mounts, Mount{
			VirtualPath: "/" + strings.Trim(m.VirtualPath, "/"),
			HostPath:    hp,
			Mode:        m.Mode,
		})
	}
	return f
}

// resolve maps a virtual path to a host path and its mount.
func (f *FS) resolve(virtualPath string, needWrite bool) (string, *Mount, error) {
	if len(virtualPath) > f.maxPathLength {
		return "", nil, errors.New("path exceeds max length")
	}
	vp := filepath.Clean("/" + strings.TrimPrefix(virtualPath, "/"))

	for i := range f.mounts {
		m := &f.mounts[i]
		if vp != m.VirtualPath && m.VirtualPath != "/" && !strings.HasPrefix(vp, m.VirtualPath+"/") {
			continue
		}
		if needWrite && m.Mode == MountReadOnly {
			return "", nil, errors.New("permission denied: read-only mount")
		}
		hostPath := filepath.Join(m.HostPath, strings.TrimPrefix(vp, m.VirtualPath))
		if hostPath != m.HostPath && !strings.HasPrefix(hostPath, m.HostPath+string(filepath.Separator)) {
			return "", nil, errors.New("permission denied: path escape attempt")
		}
		return hostPath, m, nil
	}
	return "", nil, errors.New("permission denied: path not in any mount")
}

// Read returns the contents of a file.
func (f *FS) Read(path string) (string, error) {
	hostPath, _, err := f.resolve(path, false)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(hostPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New("file not found: " + path)
		}
		return "", fmt.Errorf("read error: %w", err)
	}
	if info.Size() > f.maxFileSize {
		return "", fmt.Errorf("file exceeds max size of %d bytes", f.maxFileSize)
	}
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}
	return string(data), nil
}

// Write replaces the contents of a file. New files require a
// MountReadWriteCreate mount.
func (f *FS) Write(path, content string) (bool, error) {
	if int64(len(content)) > f.maxWriteSize {
		return false, fmt.Errorf("content exceeds max size of %d bytes", f.maxWriteSize)
	}
	hostPath, m, err := f.resolve(path, true)
	if err != nil {
		return false, err
	}
	if _, statErr := os.Stat(hostPath); os.IsNotExist(statErr) && m.Mode != MountReadWriteCreate {
		return false, errors.New("permission denied: cannot create new files")
	}
	if err := os.WriteFile(hostPath, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("write error: %w", err)
	}
	return true, nil
}

// Exists reports whether path exists. Paths outside every mount do not.
func (f *FS) Exists(path string) bool {
	hostPath, _, err := f.resolve(path, false)
	if err != nil {
		return false
	}
	_, err = os.Stat(hostPath)
	return err == nil
}

// Size returns the size of a file in bytes.
func (f *FS) Size(path string) (int64, error) {
	hostPath, _, err := f.resolve(path, false)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(hostPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.New("file not found: " + path)
		}
		return 0, fmt.Errorf("stat error: %w", err)
	}
	return info.Size(), nil
}

// Register adds fs_read, fs_write, fs_exists and fs_size to r.
func (f *FS) Register(r *Registry) error {
	return registerMethods(r, f, map[string]any{
		"fs_read":   (*FS).Read,
		"fs_write":  (*FS).Write,
		"fs_exists": (*FS).Exists,
		"fs_size":   (*FS).Size,
	})
}
