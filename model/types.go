package model

import (
	"fmt"
	"strings"
)

// CursorKind is the role a Project plays inside a Windows cursor scheme.
type CursorKind uint8

const (
	KindArrow CursorKind = iota
	KindHelp
	KindAppStarting
	KindWait
	KindCrossHair
	KindText
	KindPen
	KindNo
	KindSizeSN
	KindSizeWE
	KindSizeNWSE
	KindSizeNESW
	KindSizeAll
	KindUpArrow
	KindLink
	KindPin
	KindPerson
)

// Kinds lists every cursor kind in canonical scheme order.
var Kinds = []CursorKind{
	KindArrow, KindHelp, KindAppStarting, KindWait, KindCrossHair,
	KindText, KindPen, KindNo, KindSizeSN, KindSizeWE, KindSizeNWSE,
	KindSizeNESW, KindSizeAll, KindUpArrow, KindLink, KindPin, KindPerson,
}

type kindInfo struct {
	name     string
	regName  string
	ocr      uint32
	aeroFile string
}

var kindTable = [...]kindInfo{
	KindArrow:       {"arrow", "Arrow", 32512, "aero_arrow.cur"},
	KindHelp:        {"help", "Help", 32651, "aero_helpsel.cur"},
	KindAppStarting: {"app_starting", "AppStarting", 32650, "aero_working.ani"},
	KindWait:        {"wait", "Wait", 32514, "aero_busy.ani"},
	KindCrossHair:   {"cross_hair", "Crosshair", 32515, ""},
	KindText:        {"text", "IBeam", 32513, ""},
	KindPen:         {"pen", "NWPen", 0, "aero_pen.cur"},
	KindNo:          {"no", "No", 32648, "aero_unavail.cur"},
	KindSizeSN:      {"size_sn", "SizeNS", 32645, "aero_ns.cur"},
	KindSizeWE:      {"size_we", "SizeWE", 32644, "aero_ew.cur"},
	KindSizeNWSE:    {"size_nw_se", "SizeNWSE", 32642, "aero_nwse.cur"},
	KindSizeNESW:    {"size_ne_sw", "SizeNESW", 32643, "aero_nesw.cur"},
	KindSizeAll:     {"size_all", "SizeAll", 32646, "aero_move.cur"},
	KindUpArrow:     {"up_arrow", "UpArrow", 32516, "aero_up.cur"},
	KindLink:        {"link", "Hand", 32649, "aero_link.cur"},
	KindPin:         {"pin", "Pin", 32671, "aero_pin.cur"},
	KindPerson:      {"person", "Person", 32672, "aero_person.cur"},
}

func (k CursorKind) valid() bool { return int(k) < len(kindTable) }

func (k CursorKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("CursorKind(%d)", uint8(k))
	}
	return kindTable[k].name
}

// RegistryName is the value name Windows uses for this kind under
// Control Panel\Cursors.
func (k CursorKind) RegistryName() string {
	if !k.valid() {
		return ""
	}
	return kindTable[k].regName
}

// OCR is the identifier passed to SetSystemCursor. Zero means the kind
// has no live system cursor (the pen).
func (k CursorKind) OCR() uint32 {
	if !k.valid() {
		return 0
	}
	return kindTable[k].ocr
}

// AeroFile is the file name of the stock Aero cursor for this kind under
// %SystemRoot%\cursors, or "" when Windows ships none.
func (k CursorKind) AeroFile() string {
	if !k.valid() {
		return ""
	}
	return kindTable[k].aeroFile
}

func ParseCursorKind(s string) (CursorKind, error) {
	for i, info := range kindTable {
		if strings.EqualFold(info.name, s) {
			return CursorKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown cursor kind %q", s)
}

func (k CursorKind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("invalid cursor kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *CursorKind) UnmarshalText(b []byte) (err error) {
	*k, err = ParseCursorKind(string(b))
	return
}

// ThemeType separates user themes from shipped and template themes.
type ThemeType uint8

const (
	ThemeNormal ThemeType = iota
	ThemePreDefine
	ThemeTemplate
)

var themeTypeNames = [...]string{"normal", "pre_define", "template"}

func (t ThemeType) String() string {
	if int(t) < len(themeTypeNames) {
		return themeTypeNames[t]
	}
	return fmt.Sprintf("ThemeType(%d)", uint8(t))
}

func ParseThemeType(s string) (ThemeType, error) {
	for i, n := range themeTypeNames {
		if strings.EqualFold(n, s) {
			return ThemeType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown theme type %q", s)
}

func (t ThemeType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ThemeType) UnmarshalText(b []byte) (err error) {
	*t, err = ParseThemeType(string(b))
	return
}

// Resample selects the interpolation used when an image is resized or rotated.
type Resample uint8

const (
	ResampleNearest Resample = iota
	ResampleBox
	ResampleBilinear
	ResampleHamming
	ResampleBicubic
	ResampleLanczos
)

var resampleNames = [...]string{"nearest", "box", "bilinear", "hamming", "bicubic", "lanczos"}

func (r Resample) String() string {
	if int(r) < len(resampleNames) {
		return resampleNames[r]
	}
	return fmt.Sprintf("Resample(%d)", uint8(r))
}

// ForRotation narrows r to the filters rotation supports; anything else
// becomes nearest.
func (r Resample) ForRotation() Resample {
	switch r {
	case ResampleNearest, ResampleBilinear, ResampleBicubic:
		return r
	}
	return ResampleNearest
}

func ParseResample(s string) (Resample, error) {
	for i, n := range resampleNames {
		if strings.EqualFold(n, s) {
			return Resample(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resample %q", s)
}

func (r Resample) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Resample) UnmarshalText(b []byte) (err error) {
	*r, err = ParseResample(string(b))
	return
}

// ProcessStep is one stage of the per-element transform pipeline.
type ProcessStep uint8

const (
	StepTranspose ProcessStep = iota
	StepCrop
	StepScale
	StepRotate
)

var stepNames = [...]string{"transpose", "crop", "scale", "rotate"}

// DefaultProcSteps is the order new elements start with.
var DefaultProcSteps = []ProcessStep{StepTranspose, StepCrop, StepScale, StepRotate}

func (s ProcessStep) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("ProcessStep(%d)", uint8(s))
}

func (s ProcessStep) MarshalText() ([]byte, error) {
	if int(s) >= len(stepNames) {
		return nil, fmt.Errorf("invalid process step %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *ProcessStep) UnmarshalText(b []byte) error {
	for i, n := range stepNames {
		if strings.EqualFold(n, string(b)) {
			*s = ProcessStep(i)
			return nil
		}
	}
	return fmt.Errorf("unknown process step %q", b)
}

// ValidateProcSteps checks that steps is a permutation of the four steps.
func ValidateProcSteps(steps []ProcessStep) error {
	if len(steps) != len(stepNames) {
		return fmt.Errorf("proc_step must hold %d steps, got %d", len(stepNames), len(steps))
	}
	var seen [len(stepNames)]bool
	for _, s := range steps {
		if int(s) >= len(stepNames) {
			return fmt.Errorf("invalid process step %d", uint8(s))
		}
		if seen[s] {
			return fmt.Errorf("process step %v repeated", s)
		}
		seen[s] = true
	}
	return nil
}

// ReverseWay orders the flips when both axes are reversed.
type ReverseWay uint8

const (
	ReverseXFirst ReverseWay = iota
	ReverseYFirst
	ReverseBoth
)

var reverseWayNames = [...]string{"x_first", "y_first", "both"}

func (w ReverseWay) String() string {
	if int(w) < len(reverseWayNames) {
		return reverseWayNames[w]
	}
	return fmt.Sprintf("ReverseWay(%d)", uint8(w))
}

func (w ReverseWay) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

func (w *ReverseWay) UnmarshalText(b []byte) error {
	for i, n := range reverseWayNames {
		if strings.EqualFold(n, string(b)) {
			*w = ReverseWay(i)
			return nil
		}
	}
	return fmt.Errorf("unknown reverse way %q", b)
}
