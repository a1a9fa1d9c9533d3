//go:build windows

package install

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

type winRegistry struct{}

// NewRegistry returns the host registry.
func NewRegistry() (Registry, error) { return winRegistry{}, nil }

func mapErr(err error) error {
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		return fmt.Errorf("%w: %v", ErrRegistryAccessDenied, err)
	}
	return err
}

func (winRegistry) Create(hive Hive, path string) (Key, error) {
	root := registry.CURRENT_USER
	if hive == LocalMachine {
		root = registry.LOCAL_MACHINE
	}
	k, _, err := registry.CreateKey(root, path, registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return nil, fmt.Errorf(`%v\%s: %w`, hive, path, mapErr(err))
	}
	return winKey{k}, nil
}

type winKey struct{ k registry.Key }

func (w winKey) SetString(name, value string) error {
	return mapErr(w.k.SetStringValue(name, value))
}

func (w winKey) SetExpandString(name, value string) error {
	return mapErr(w.k.SetExpandStringValue(name, value))
}

func (w winKey) SetDWord(name string, value uint32) error {
	return mapErr(w.k.SetDWordValue(name, value))
}

func (w winKey) ValueNames() ([]string, error) { return w.k.ReadValueNames(-1) }

func (w winKey) DeleteValue(name string) error { return mapErr(w.k.DeleteValue(name)) }

func (w winKey) Close() error { return w.k.Close() }

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procLoadCursorFromFile = user32.NewProc("LoadCursorFromFileW")
	procLoadCursor         = user32.NewProc("LoadCursorW")
	procCopyIcon           = user32.NewProc("CopyIcon")
	procSetSystemCursor    = user32.NewProc("SetSystemCursor")
)

type winCursors struct{}

// NewSystemCursors returns the user32-backed cursor refresher.
func NewSystemCursors() SystemCursors { return winCursors{} }

func (winCursors) set(h uintptr, ocr uint32) error {
	if h == 0 {
		return fmt.Errorf("no cursor handle for %d", ocr)
	}
	if r, _, err := procSetSystemCursor.Call(h, uintptr(ocr)); r == 0 {
		return fmt.Errorf("SetSystemCursor %d: %w", ocr, err)
	}
	return nil
}

func (c winCursors) SetFromFile(ocr uint32, path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	h, _, callErr := procLoadCursorFromFile.Call(uintptr(unsafe.Pointer(p)))
	if h == 0 {
		return fmt.Errorf("LoadCursorFromFile %s: %w", path, callErr)
	}
	return c.set(h, ocr)
}

// SetDefault relies on every IDC_* id equalling its OCR_* counterpart.
func (c winCursors) SetDefault(ocr uint32) error {
	h, _, callErr := procLoadCursor.Call(0, uintptr(ocr))
	if h == 0 {
		return fmt.Errorf("LoadCursor %d: %w", ocr, callErr)
	}
	cp, _, callErr := procCopyIcon.Call(h)
	if cp == 0 {
		return fmt.Errorf("CopyIcon %d: %w", ocr, callErr)
	}
	return c.set(cp, ocr)
}
