package fault

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// evalCode matches a virtual location produced by evaluated code, such as
// "/srv/app/views/home.tpl(12) : eval()'d code". The real file and line sit
// on the left side.
var evalCode = regexp.MustCompile(`^(.*)\((\d+)\) : eval\(\)'d code$`)

// ExtractFileLineFromEvalCode resolves a virtual evaluated-code location back
// to the real file and line. Locations that do not match, or whose real file
// does not exist, are returned unchanged.
func ExtractFileLineFromEvalCode(file string, line int) (string, int) {
	m := evalCode.FindStringSubmatch(file)
	if m == nil {
		return file, line
	}
	info, err := os.Stat(m[1])
	if err != nil || info.IsDir() {
		return file, line
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return file, line
	}
	return m[1], n
}

type pathAlias struct {
	prefix string
	alias  string
}

var (
	aliasesOnce sync.Once
	aliases     []pathAlias
)

func loadAliases() {
	add := func(dir, alias string) {
		if dir == "" {
			return
		}
		dir = filepath.Clean(dir)
		aliases = append(aliases, pathAlias{prefix: dir + string(filepath.Separator), alias: alias})
	}

	if wd, err := os.Getwd(); err == nil {
		add(wd, "APPROOT")
	}
	if modCache := os.Getenv("GOMODCACHE"); modCache != "" {
		add(modCache, "MODCACHE")
	} else if gopath := os.Getenv("GOPATH"); gopath != "" {
		add(filepath.Join(gopath, "pkg", "mod"), "MODCACHE")
	} else if home, err := os.UserHomeDir(); err == nil {
		add(filepath.Join(home, "go", "pkg", "mod"), "MODCACHE")
	}
	add(os.Getenv("GOROOT"), "GOROOT")
}

// CleanPath replaces well-known directory prefixes with short aliases so log
// lines and payloads do not leak absolute paths.
func CleanPath(file string) string {
	aliasesOnce.Do(loadAliases)
	for _, a := range aliases {
		if strings.HasPrefix(file, a.prefix) {
			return a.alias + "/" + filepath.ToSlash(strings.TrimPrefix(file, a.prefix))
		}
	}
	return file
}
