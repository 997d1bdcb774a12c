package inspect

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"rcss/common"
	"rcss/config"
	"rcss/state"
	"rcss/stylesheet"
)

// setupTestEnv creates a test environment with proper context, logger and
// specification
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	env.Cfg = cfg
	if _, err := Prepare(ctx, &cli.Command{}); err != nil {
		t.Fatalf("prepare specification: %v", err)
	}
	return ctx, env
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(name, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return name
}

func writeZip(t *testing.T, name string, files [][2]string) string {
	t.Helper()
	f, err := os.Create(name)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for _, file := range files {
		fw, err := w.Create(file[0])
		if err != nil {
			t.Fatalf("zip entry: %v", err)
		}
		if _, err := fw.Write([]byte(file[1])); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return name
}

func sourceNames(t *testing.T, ctx context.Context, arg string) []string {
	t.Helper()
	var names []string
	err := collect(ctx, arg, zap.NewNop(), func(src source) error {
		names = append(names, filepath.Base(src.name))
		return nil
	})
	if err != nil {
		t.Fatalf("collect(%s) error = %v", arg, err)
	}
	return names
}

func TestPrepare(t *testing.T) {
	ctx, env := setupTestEnv(t)
	if env.Spec == nil || !env.Spec.Sealed() {
		t.Fatal("specification must be built and sealed")
	}
	s := env.Spec

	// second call keeps what was built
	if _, err := Prepare(ctx, &cli.Command{}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if env.Spec != s {
		t.Error("Prepare() rebuilt specification")
	}
}

func TestPrepare_ConfigurationApplied(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, filepath.Join(dir, "extra.yaml"), `properties:
  - {name: quotes, default: none, inherited: true, parsers: [{type: string}, {type: keyword, keywords: [none]}]}
shorthands: []
`)

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Specification.Definitions = []string{defs}
	cfg.Specification.SplitCommas = []string{"quotes"}
	cfg.Output.Charset = "windows-1251"

	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Cfg = cfg
	if _, err := Prepare(ctx, &cli.Command{}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	def := env.Spec.GetPropertyByName("quotes")
	if def == nil || !def.IsCommaList() {
		t.Fatalf("quotes = %+v, want registered comma list", def)
	}
	if env.CodePage != charmap.Windows1251 {
		t.Errorf("CodePage = %v, want windows-1251", env.CodePage)
	}
}

func TestPrepare_Errors(t *testing.T) {
	ctx := state.ContextWithEnv(context.Background())
	if _, err := Prepare(ctx, &cli.Command{}); err == nil {
		t.Error("expected error without configuration")
	}

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Specification.SplitCommas = []string{"no-such-property"}
	state.EnvFromContext(ctx).Cfg = cfg
	if _, err := Prepare(ctx, &cli.Command{}); err == nil {
		t.Error("expected error for unknown comma list property")
	}
}

func TestBuildOptions(t *testing.T) {
	cfg := &config.Config{Specification: config.SpecificationConfig{
		ReserveProperties: 10,
		ReserveShorthands: 5,
		Definitions:       []string{"a.yaml"},
		SplitCommas:       []string{"quotes"},
	}}
	opts := buildOptions(cfg, []string{"b.yaml"})
	if !reflect.DeepEqual(opts.Definitions, []string{"a.yaml", "b.yaml"}) {
		t.Errorf("Definitions = %v", opts.Definitions)
	}
	if !reflect.DeepEqual(opts.CommaLists, []string{"quotes"}) || opts.ReserveProperties != 10 || opts.ReserveShorthands != 5 {
		t.Errorf("options = %+v", opts)
	}
	// configuration is not modified by command line
	if len(cfg.Specification.Definitions) != 1 {
		t.Errorf("configuration changed: %v", cfg.Specification.Definitions)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		data string
		want sourceKind
	}{
		{"a.css", "<html>", kindCSS},
		{"a.HTML", "", kindHTML},
		{"a.xhtml", "", kindHTML},
		{"a.svg", "", kindXML},
		{"book.fb2", "", kindXML},
		{"noext", "\xEF\xBB\xBF  <!DOCTYPE html><html></html>", kindHTML},
		{"noext", `<?xml version="1.0"?><html xmlns="http://www.w3.org/1999/xhtml"/>`, kindHTML},
		{"noext", `<?xml version="1.0"?><FictionBook/>`, kindXML},
		{"noext", `<svg xmlns="http://www.w3.org/2000/svg"/>`, kindXML},
		{"noext", "p { color: red }", kindCSS},
		{"noext", "", kindCSS},
	}
	for _, tt := range tests {
		if got := detectKind(tt.name, []byte(tt.data)); got != tt.want {
			t.Errorf("detectKind(%q, %q) = %v, want %v", tt.name, tt.data, got, tt.want)
		}
	}
}

func TestCollect(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	css := writeFile(t, filepath.Join(dir, "styles", "main.css"), "p { color: red }")
	writeFile(t, filepath.Join(dir, "styles", "page.html"), "<p style=\"color: red\">x</p>")
	writeFile(t, filepath.Join(dir, "styles", "notes.txt"), "not a style")
	epub := writeZip(t, filepath.Join(dir, "styles", "book.epub"), [][2]string{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", "<container/>"},
		{"OEBPS/css/book.css", "h1 { margin: 0 }"},
		{"OEBPS/text/ch1.xhtml", "<html><body><p style=\"color: blue\">x</p></body></html>"},
	})

	t.Run("file", func(t *testing.T) {
		if got := sourceNames(t, ctx, css); !reflect.DeepEqual(got, []string{"main.css"}) {
			t.Errorf("sources = %v", got)
		}
	})
	t.Run("directory", func(t *testing.T) {
		got := sourceNames(t, ctx, filepath.Join(dir, "styles"))
		want := []string{"book.css", "ch1.xhtml", "main.css", "page.html"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("sources = %v, want %v", got, want)
		}
	})
	t.Run("archive", func(t *testing.T) {
		got := sourceNames(t, ctx, epub)
		if !reflect.DeepEqual(got, []string{"book.css", "ch1.xhtml"}) {
			t.Errorf("sources = %v", got)
		}
	})
	t.Run("path inside archive", func(t *testing.T) {
		got := sourceNames(t, ctx, filepath.Join(epub, "OEBPS", "css"))
		if !reflect.DeepEqual(got, []string{"book.css"}) {
			t.Errorf("sources = %v", got)
		}
	})

	errorCases := []string{
		filepath.Join(dir, "missing.css"),
		filepath.Join(css, "inside"),
		filepath.Join(dir, "styles", "missing", "a.css"),
	}
	for _, arg := range errorCases {
		err := collect(ctx, arg, zap.NewNop(), func(source) error { return nil })
		if err == nil {
			t.Errorf("collect(%s) expected error", arg)
		}
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := collect(cctx, css, zap.NewNop(), func(source) error { return nil }); err == nil {
		t.Error("collect() must stop on cancelled context")
	}
}

func TestLoad(t *testing.T) {
	_, env := setupTestEnv(t)
	p := stylesheet.NewParser(env.Spec, env.Log)

	tests := []struct {
		name     string
		src      source
		selector string
		color    string
	}{
		{"css", source{name: "a.css", data: []byte("p { color: red }")}, "p", "red"},
		{"html", source{name: "a.html", data: []byte(`<html><head><meta charset="windows-1251"></head><body><p style="color: green">x</p></body></html>`)}, "p[style]", "green"},
		{"xml", source{name: "a.svg", data: []byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect style="color: blue"/></svg>`)}, "rect[style]", "blue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := load(p, tt.src, nil)
			if err != nil {
				t.Fatalf("load() error = %v", err)
			}
			rules := sheet.RulesBySelector(tt.selector)
			if len(rules) != 1 {
				t.Fatalf("rules for %s = %d", tt.selector, len(rules))
			}
			v, ok := rules[0].Properties.Get(env.Spec.PropertyID("color"))
			if !ok || v.Value.String() != tt.color {
				t.Errorf("color = %v, want %s", v.Value, tt.color)
			}
		})
	}

	t.Run("fallback code page", func(t *testing.T) {
		src := source{name: "ru.css", data: []byte("p { font-family: \"\xc0\xf0\xe8\xe0\xeb\" }")}
		sheet, err := load(p, src, charmap.Windows1251)
		if err != nil {
			t.Fatalf("load() error = %v", err)
		}
		v, _ := sheet.RulesBySelector("p")[0].Properties.Get(env.Spec.PropertyID("font-family"))
		if got := v.Value.String(); got != `"Ариал"` {
			t.Errorf("font-family = %s", got)
		}
	})
}

func TestCheckDeclaration(t *testing.T) {
	_, env := setupTestEnv(t)

	doc, err := checkDeclaration(env.Spec, "margin", "1px 2px", false)
	if err != nil {
		t.Fatalf("checkDeclaration() error = %v", err)
	}
	if !doc.Accepted || len(doc.Properties) != 4 {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Properties[1].Name != "margin-right" || doc.Properties[1].Value != "2px" || doc.Properties[1].Source != commandLineSource {
		t.Errorf("margin-right = %+v", doc.Properties[1])
	}
	if got := checkCSS(doc); !strings.Contains(got, "margin-left: 2px;") {
		t.Errorf("checkCSS() = %q", got)
	}

	doc, err = checkDeclaration(env.Spec, "margin", "1px 2px 3px", false)
	if err == nil || doc.Accepted || len(doc.Properties) != 0 {
		t.Errorf("three values for box shorthand must be rejected, doc = %+v", doc)
	}
	if got := checkText(doc); !strings.Contains(got, "rejected:") {
		t.Errorf("checkText() = %q", got)
	}

	doc, err = checkDeclaration(env.Spec, "color", "red", true)
	if err != nil {
		t.Fatalf("checkDeclaration() error = %v", err)
	}
	if len(doc.Properties) != len(env.Spec.GetRegisteredProperties()) {
		t.Errorf("with defaults properties = %d, want %d", len(doc.Properties), len(env.Spec.GetRegisteredProperties()))
	}
}

func TestListDefinitions(t *testing.T) {
	_, env := setupTestEnv(t)

	all := listDefinitions(env.Spec, listFilter{})
	if len(all.Properties) != len(env.Spec.GetRegisteredProperties()) || len(all.Shorthands) != len(env.Spec.Shorthands()) {
		t.Fatalf("list = %d/%d", len(all.Properties), len(all.Shorthands))
	}
	for i := 1; i < len(all.Properties); i++ {
		if all.Properties[i-1].ID >= all.Properties[i].ID {
			t.Fatalf("properties are not in id order at %d", i)
		}
	}

	borders := listDefinitions(env.Spec, listFilter{pattern: "border-top*", sorted: true})
	var names []string
	for _, p := range borders.Properties {
		names = append(names, p.Name)
	}
	if !reflect.DeepEqual(names, []string{"border-top-color", "border-top-style", "border-top-width"}) {
		t.Errorf("properties = %v", names)
	}
	if len(borders.Shorthands) != 1 || borders.Shorthands[0].Type != "fall-through" {
		t.Errorf("shorthands = %+v", borders.Shorthands)
	}

	inherited := listDefinitions(env.Spec, listFilter{inherited: true})
	if len(inherited.Shorthands) != 0 || len(inherited.Properties) != len(env.Spec.GetRegisteredInheritedProperties()) {
		t.Errorf("inherited list = %d/%d", len(inherited.Properties), len(inherited.Shorthands))
	}
	for _, p := range inherited.Properties {
		if !p.Inherited {
			t.Errorf("%s is not inherited", p.Name)
		}
	}

	if got := listCSS(borders); !strings.HasPrefix(got, "* {\n  border-top-color: black;") {
		t.Errorf("listCSS() = %q", got)
	}
	if got := listText(borders); !strings.Contains(got, "border-top-width") || !strings.Contains(got, "fall-through") {
		t.Errorf("listText() = %q", got)
	}
}

func TestSortSheets(t *testing.T) {
	_, env := setupTestEnv(t)
	p := stylesheet.NewParser(env.Spec, env.Log)

	b := p.Parse([]byte("@media print { h10 { color: red } h2 { color: red } }\nh10 { color: red }\n@import url(x.css);\nh2 { color: red }"), "b10.css")
	a := p.Parse([]byte("p { color: red }"), "b2.css")
	sheets := []*stylesheet.Stylesheet{b, a}

	sortSheets(sheets)
	if sheets[0] != a {
		t.Errorf("sheets are not in natural order: %s, %s", sheets[0].Source, sheets[1].Source)
	}
	items := sheets[1].Items
	if items[0].Import == nil || firstSelector(items[1].Rule) != "h2" || firstSelector(items[2].Rule) != "h10" || items[3].Media == nil {
		t.Fatalf("items are not sorted: %+v", items)
	}
	if firstSelector(&items[3].Media.Rules[0]) != "h2" {
		t.Errorf("media rules are not sorted")
	}
}

func TestFormatSheets(t *testing.T) {
	_, env := setupTestEnv(t)
	p := stylesheet.NewParser(env.Spec, env.Log)
	sheet := p.Parse([]byte("h1 { margin: 1px; colr: red }\n@media print { p { color: blue } }"), "a.css")

	tests := []struct {
		format common.OutputFmt
		want   []string
	}{
		{common.OutputFmtText, []string{"Stylesheet: a.css", "h1 (line 1)", "margin-top: 1px (length)", "p @media print (line 2)", "warning: a.css:1:"}},
		{common.OutputFmtYaml, []string{"source: a.css", "- h1", "name: margin-top", "media: print", "warnings:"}},
		{common.OutputFmtCss, []string{"/* a.css */", "margin-top: 1px;", "@media print {"}},
		{common.OutputFmtIon, []string{"source:\"a.css\"", "name:\"margin-top\"", "media:\"print\""}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			data, err := formatSheets([]*stylesheet.Stylesheet{sheet}, tt.format)
			if err != nil {
				t.Fatalf("formatSheets() error = %v", err)
			}
			out := string(data)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	_, env := setupTestEnv(t)
	p := stylesheet.NewParser(env.Spec, env.Log)
	sheet := p.Parse([]byte("h1 { color: red }\n@media print { p { margin: 0 } }"), "a.css")

	applyDefaults(env.Spec, sheet)

	total := len(env.Spec.GetRegisteredProperties())
	for _, rule := range sheet.Rules() {
		if rule.Properties.Len() != total {
			t.Errorf("%v has %d properties, want %d", rule.Selectors, rule.Properties.Len(), total)
		}
	}
	v, _ := sheet.RulesBySelector("h1")[0].Properties.Get(env.Spec.PropertyID("color"))
	if v.Value.String() != "red" {
		t.Errorf("declared value replaced by default: %s", v.Value)
	}
}

func runCommand(t *testing.T, ctx context.Context, cmd *cli.Command, args ...string) error {
	t.Helper()
	// keep urfave/cli from calling os.Exit on returned errors, as main.go does
	cmd.ExitErrHandler = func(context.Context, *cli.Command, error) {}
	return cmd.Run(ctx, append([]string{cmd.Name}, args...))
}

func commandFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "format"},
		&cli.StringFlag{Name: "output"},
		&cli.BoolFlag{Name: "defaults"},
		&cli.BoolFlag{Name: "sort"},
		&cli.BoolFlag{Name: "inherited"},
	}
}

func TestCommands(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "a.css"), "h1 { border: 1px solid red }\nh2 { float: sideways }")

	t.Run("parse", func(t *testing.T) {
		out := filepath.Join(dir, "parse.yaml")
		cmd := &cli.Command{Name: "parse", Flags: commandFlags(), Action: Parse}
		if err := runCommand(t, ctx, cmd, "--format", "yaml", "--output", out, src); err != nil {
			t.Fatalf("parse error = %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "border-left-style") || !strings.Contains(string(data), "warnings:") {
			t.Errorf("parse output:\n%s", data)
		}
	})

	t.Run("parse missing source", func(t *testing.T) {
		cmd := &cli.Command{Name: "parse", Flags: commandFlags(), Action: Parse}
		if err := runCommand(t, ctx, cmd, "--output", filepath.Join(dir, "none.txt"), filepath.Join(dir, "missing.css")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("list", func(t *testing.T) {
		out := filepath.Join(dir, "list.txt")
		cmd := &cli.Command{Name: "list", Flags: commandFlags(), Action: List}
		if err := runCommand(t, ctx, cmd, "--output", out, "font*"); err != nil {
			t.Fatalf("list error = %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "font-family") || strings.Contains(string(data), "margin") {
			t.Errorf("list output:\n%s", data)
		}
	})

	t.Run("list bad pattern", func(t *testing.T) {
		cmd := &cli.Command{Name: "list", Flags: commandFlags(), Action: List}
		if err := runCommand(t, ctx, cmd, "--output", filepath.Join(dir, "bad.txt"), "[a-"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("export", func(t *testing.T) {
		db := filepath.Join(dir, "out.sqlite")
		cmd := &cli.Command{Name: "export", Flags: commandFlags(), Action: Export}
		if err := runCommand(t, ctx, cmd, db, src); err != nil {
			t.Fatalf("export error = %v", err)
		}
		if fi, err := os.Stat(db); err != nil || fi.Size() == 0 {
			t.Errorf("database was not written: %v", err)
		}
	})

	t.Run("export without database", func(t *testing.T) {
		cmd := &cli.Command{Name: "export", Flags: commandFlags(), Action: Export}
		if err := runCommand(t, ctx, cmd); err == nil {
			t.Error("expected error")
		}
	})
}
