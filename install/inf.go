package install

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/32bitkid/minecursor/model"
)

// INFName is the right-click install script written beside the cursors.
const INFName = "~右键安装.inf"

// BuildINF renders the setup information script that installs the theme
// into %SystemRoot%\Cursors\<dir> and registers its scheme for the user.
func BuildINF(scheme, dir string, paths map[model.CursorKind]string) string {
	var sb strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&sb, format, args...)
		sb.WriteString("\r\n")
	}

	line("[Version]")
	line(`signature="$CHICAGO$"`)
	line("")
	line("[DefaultInstall]")
	line("CopyFiles = Scheme.Cur")
	line("AddReg    = Scheme.Reg")
	line("")
	line("[DestinationDirs]")
	line(`Scheme.Cur = 10,"%%CUR_DIR%%"`)
	line("")

	entries := make([]string, len(model.Kinds))
	for i, k := range model.Kinds {
		if _, ok := paths[k]; ok {
			entries[i] = `%10%\%CUR_DIR%\%` + k.String() + `%`
		}
	}
	line("[Scheme.Reg]")
	line(`HKCU,"Control Panel\Cursors\Schemes","%%SCHEME_NAME%%",0x00020000,"%s"`, strings.Join(entries, ","))
	line("")

	line("[Scheme.Cur]")
	for _, k := range model.Kinds {
		if p, ok := paths[k]; ok {
			line(`"%s"`, filepath.Base(p))
		}
	}
	line("")

	line("[Strings]")
	line(`CUR_DIR = "Cursors\%s"`, dir)
	line(`SCHEME_NAME = "%s"`, scheme)
	for _, k := range model.Kinds {
		if p, ok := paths[k]; ok {
			line(`%s = "%s"`, k.String(), filepath.Base(p))
		}
	}
	return sb.String()
}

// EncodeINF converts the script to UTF-16LE with a byte order mark, the
// encoding Windows expects for non-ASCII names.
func EncodeINF(s string) ([]byte, error) {
	return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
}
