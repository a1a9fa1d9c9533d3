package install

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrRegistryAccessDenied = errors.New("registry access denied")
	ErrUnsupported          = errors.New("cursor installation is only supported on Windows")
)

type Hive uint

const (
	CurrentUser Hive = iota
	LocalMachine
)

func (h Hive) String() string {
	switch h {
	case CurrentUser:
		return "HKCU"
	case LocalMachine:
		return "HKLM"
	default:
		return fmt.Sprintf("Hive(%d)", uint(h))
	}
}

// Key is an open registry key.
type Key interface {
	SetString(name, value string) error
	SetExpandString(name, value string) error
	SetDWord(name string, value uint32) error
	ValueNames() ([]string, error)
	DeleteValue(name string) error
	Close() error
}

// Registry creates or opens keys for writing.
type Registry interface {
	Create(hive Hive, path string) (Key, error)
}

type ValueType uint

const (
	String ValueType = iota
	ExpandString
	DWord
)

type Value struct {
	Type ValueType
	Str  string
	Num  uint32
}

// MemoryRegistry is an in-process Registry. Hives listed in Denied refuse
// every write with ErrRegistryAccessDenied.
type MemoryRegistry struct {
	Denied map[Hive]bool

	mu   sync.Mutex
	keys map[string]map[string]Value
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{Denied: map[Hive]bool{}, keys: map[string]map[string]Value{}}
}

func keyID(hive Hive, path string) string {
	return hive.String() + `\` + strings.ToLower(path)
}

func (m *MemoryRegistry) Create(hive Hive, path string) (Key, error) {
	if m.Denied[hive] {
		return nil, fmt.Errorf(`%v\%s: %w`, hive, path, ErrRegistryAccessDenied)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := keyID(hive, path)
	if m.keys[id] == nil {
		m.keys[id] = map[string]Value{}
	}
	return &memoryKey{reg: m, id: id}, nil
}

// Values returns a copy of the values under a key.
func (m *MemoryRegistry) Values(hive Hive, path string) map[string]Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]Value{}
	for k, v := range m.keys[keyID(hive, path)] {
		out[k] = v
	}
	return out
}

type memoryKey struct {
	reg *MemoryRegistry
	id  string
}

func (k *memoryKey) set(name string, v Value) error {
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	k.reg.keys[k.id][name] = v
	return nil
}

func (k *memoryKey) SetString(name, value string) error {
	return k.set(name, Value{Type: String, Str: value})
}

func (k *memoryKey) SetExpandString(name, value string) error {
	return k.set(name, Value{Type: ExpandString, Str: value})
}

func (k *memoryKey) SetDWord(name string, value uint32) error {
	return k.set(name, Value{Type: DWord, Num: value})
}

func (k *memoryKey) ValueNames() ([]string, error) {
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	var names []string
	for n := range k.reg.keys[k.id] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (k *memoryKey) DeleteValue(name string) error {
	k.reg.mu.Lock()
	defer k.reg.mu.Unlock()
	if _, ok := k.reg.keys[k.id][name]; !ok {
		return fmt.Errorf("value %q not found", name)
	}
	delete(k.reg.keys[k.id], name)
	return nil
}

func (k *memoryKey) Close() error { return nil }

// SystemCursors refreshes the live cursors of the current session.
type SystemCursors interface {
	// SetFromFile loads path and installs it as the system cursor ocr.
	SetFromFile(ocr uint32, path string) error
	// SetDefault reinstalls a copy of the stock cursor for ocr.
	SetDefault(ocr uint32) error
}
