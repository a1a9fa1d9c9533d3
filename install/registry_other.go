//go:build !windows

package install

// NewRegistry fails off Windows; tests use MemoryRegistry.
func NewRegistry() (Registry, error) { return nil, ErrUnsupported }

type nopCursors struct{}

func NewSystemCursors() SystemCursors { return nopCursors{} }

func (nopCursors) SetFromFile(uint32, string) error { return ErrUnsupported }
func (nopCursors) SetDefault(uint32) error          { return ErrUnsupported }
