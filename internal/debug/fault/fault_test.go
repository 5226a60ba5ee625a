package fault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v2"
)

func TestSeverity_Fatal(t *testing.T) {
	fatal := []Severity{SeverityError, SeverityParse, SeverityCoreError, SeverityCompileError}
	for _, s := range fatal {
		if !s.IsFatal() {
			t.Errorf("%s should be fatal", s)
		}
	}

	notFatal := []Severity{SeverityWarning, SeverityNotice, SeverityUserError, SeverityDeprecated, SeverityRecoverableError}
	for _, s := range notFatal {
		if s.IsFatal() {
			t.Errorf("%s should not be fatal", s)
		}
	}
}

func TestSeverity_Deprecation(t *testing.T) {
	if !SeverityDeprecated.IsDeprecation() || !SeverityUserDeprecated.IsDeprecation() {
		t.Fatal("deprecations not detected")
	}
	if SeverityNotice.IsDeprecation() {
		t.Fatal("notice is not a deprecation")
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"warning":           SeverityWarning,
		" User_Notice ":     SeverityUserNotice,
		"8192":              SeverityDeprecated,
		"all":               SeverityAll,
		"recoverable_error": SeverityRecoverableError,
	}
	for in, want := range cases {
		got, err := ParseSeverity(in)
		if err != nil {
			t.Fatalf("ParseSeverity(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", in, got, want)
		}
	}

	for _, bad := range []string{"loud", "0", "-1", "65536"} {
		if _, err := ParseSeverity(bad); err == nil {
			t.Errorf("ParseSeverity(%q) should fail", bad)
		}
	}
}

func TestSeverity_YAML(t *testing.T) {
	var out struct {
		Ignore []Severity `yaml:"ignore"`
	}
	if err := yaml.Unmarshal([]byte("ignore: [deprecated, notice]\n"), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Ignore) != 2 || out.Ignore[0] != SeverityDeprecated || out.Ignore[1] != SeverityNotice {
		t.Fatalf("got %v", out.Ignore)
	}
}

type widget struct{}

func (widget) Value() (string, int, []TraceEntry) { return Callers(0) }

func (*widget) Pointer() (string, int, []TraceEntry) { return Callers(0) }

func TestSplitFunction(t *testing.T) {
	cases := []struct {
		in                   string
		class, typ, function string
	}{
		{"github.com/x/pkg.(*Server).Serve", "(*pkg.Server)", CallInstance, "Serve"},
		{"github.com/x/pkg.Server.String", "pkg.Server", CallInstance, "String"},
		{"github.com/x/pkg.Run", "", "", "pkg.Run"},
		{"github.com/x/pkg.Run.func1", "", "", "pkg.Run.func1"},
		{"github.com/x/pkg.Run.func1.2", "", "", "pkg.Run.func1.2"},
		{"main.main", "", "", "main.main"},
		{"", "", "", "[unknown]"},
	}
	for _, c := range cases {
		class, typ, function := SplitFunction(c.in)
		if class != c.class || typ != c.typ || function != c.function {
			t.Errorf("SplitFunction(%q) = (%q, %q, %q), want (%q, %q, %q)",
				c.in, class, typ, function, c.class, c.typ, c.function)
		}
	}
}

func TestCallers_CallSiteShape(t *testing.T) {
	file, line, trace := widget{}.Value()
	if !strings.HasSuffix(file, "fault_test.go") {
		t.Fatalf("file = %s", file)
	}
	if line == 0 {
		t.Fatal("line should be known")
	}
	if len(trace) < 2 {
		t.Fatalf("trace too short: %d", len(trace))
	}

	// The first entry names the capturing method and points at the line in
	// this test that called it.
	if trace[0].Function != "Value" || trace[0].Class != "fault.widget" {
		t.Errorf("entry 0 = %+v", trace[0])
	}
	if !strings.HasSuffix(trace[0].File, "fault_test.go") {
		t.Errorf("entry 0 call site = %s", trace[0].File)
	}
	if trace[1].Function != "fault.TestCallers_CallSiteShape" {
		t.Errorf("entry 1 = %+v", trace[1])
	}

	_, _, ptrTrace := (&widget{}).Pointer()
	if ptrTrace[0].Class != "(*fault.widget)" || ptrTrace[0].Type != CallInstance {
		t.Errorf("pointer receiver entry = %+v", ptrTrace[0])
	}
}

type node struct{ v int }

var nilNode *node

func explode() {
	fmt.Println(nilNode.v)
}

func recoverPanic(fn func()) (p *Panic) {
	defer func() {
		if r := recover(); r != nil {
			p = NewPanic(r)
		}
	}()
	fn()
	return nil
}

func TestNewPanic_DropsRecoveryFrames(t *testing.T) {
	p := recoverPanic(explode)
	if p == nil {
		t.Fatal("expected a panic")
	}
	if len(p.Trace()) == 0 || p.Trace()[0].Function != "fault.explode" {
		t.Fatalf("first entry should be the panicking function, got %+v", p.Trace())
	}
	if SeverityOf(p) != SeverityRecoverableError {
		t.Errorf("runtime error panic severity = %v", SeverityOf(p))
	}
	if !strings.HasPrefix(p.Kind(), "panic(") {
		t.Errorf("kind = %s", p.Kind())
	}
	if p.Unwrap() == nil {
		t.Error("runtime error should be unwrapped")
	}
}

func TestSeverityOf(t *testing.T) {
	cases := []struct {
		err  error
		want Severity
	}{
		{errors.New("plain"), SeverityError},
		{NewTriggeredError(SeverityNotice, "n", "", 0), SeverityNotice},
		{fmt.Errorf("wrapped: %w", NewTriggeredError(SeverityDeprecated, "d", "", 0)), SeverityDeprecated},
		{&ParseError{Msg: "bad"}, SeverityParse},
		{&Panic{Value: "text"}, SeverityError},
	}
	for _, c := range cases {
		if got := SeverityOf(c.err); got != c.want {
			t.Errorf("SeverityOf(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestNewTriggeredError_DefaultsToCaller(t *testing.T) {
	err := NewTriggeredError(SeverityWarning, "careful", "", 0)
	file, line := err.Location()
	if !strings.HasSuffix(file, "fault_test.go") || line == 0 {
		t.Fatalf("location = %s:%d", file, line)
	}

	explicit := NewTriggeredError(SeverityWarning, "careful", "/tmp/x.go", 7)
	if f, l := explicit.Location(); f != "/tmp/x.go" || l != 7 {
		t.Fatalf("explicit location = %s:%d", f, l)
	}
}

func TestWithStatusAndExitCode(t *testing.T) {
	base := errors.New("missing")
	err := fmt.Errorf("lookup: %w", WithExitCode(WithStatus(base, 404), 9))

	if code, ok := StatusOf(err); !ok || code != 404 {
		t.Errorf("StatusOf = %d, %v", code, ok)
	}
	if code, ok := ExitCodeOf(err); !ok || code != 9 {
		t.Errorf("ExitCodeOf = %d, %v", code, ok)
	}
	if !errors.Is(err, base) {
		t.Error("wrappers must keep the chain")
	}
	if WithStatus(nil, 500) != nil || WithExitCode(nil, 2) != nil {
		t.Error("nil in, nil out")
	}
	if KindOf(WithStatus(base, 404)) != "*errors.errorString" {
		t.Errorf("kind = %s", KindOf(WithStatus(base, 404)))
	}
}

func TestExtractFileLineFromEvalCode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "view.tpl")
	if err := os.WriteFile(src, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	file, line := ExtractFileLineFromEvalCode(src+"(12) : eval()'d code", 3)
	if file != src || line != 12 {
		t.Errorf("got %s:%d", file, line)
	}

	missing := filepath.Join(dir, "gone.tpl") + "(4) : eval()'d code"
	if file, line := ExtractFileLineFromEvalCode(missing, 3); file != missing || line != 3 {
		t.Errorf("missing file should stay virtual, got %s:%d", file, line)
	}

	if file, line := ExtractFileLineFromEvalCode("/srv/app.go", 9); file != "/srv/app.go" || line != 9 {
		t.Errorf("plain location changed: %s:%d", file, line)
	}
}

func TestCleanPath(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	got := CleanPath(filepath.Join(wd, "handlers", "log.go"))
	if got != "APPROOT/handlers/log.go" {
		t.Errorf("CleanPath = %s", got)
	}
	if CleanPath("/elsewhere/x.go") != "/elsewhere/x.go" {
		t.Error("unknown prefixes are kept")
	}
}
