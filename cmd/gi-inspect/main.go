// Command gi-inspect browses typelib metadata and calls into the Demo
// library through the bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/gi-bridge/bridge"
	"github.com/wippyai/gi-bridge/internal/demolib"
	"github.com/wippyai/gi-bridge/typelib"
	"github.com/wippyai/gi-bridge/variant"
)

func main() {
	var (
		typelibFile = flag.String("typelib", "", "Path to a YAML typelib (default: built-in Demo namespace)")
		show        = flag.String("show", "", "Show the members of a named entry")
		callName    = flag.String("call", "", "Function to call in the Demo library")
		callArgs    = flag.String("args", "", "Call arguments as a YAML flow sequence, e.g. '[1, \"x\"]'")
		variantType = flag.String("variant", "", "Check a variant type string")
		witType     = flag.String("wit", "", "Map a WIT type expression to a typelib type")
		list        = flag.Bool("list", false, "List namespace entries and exit")
		verbose     = flag.Bool("v", false, "Log bridge activity to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if !*list && *show == "" && *callName == "" && *variantType == "" && *witType == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: gi-inspect [-typelib file.yaml] -list")
		fmt.Fprintln(os.Stderr, "       gi-inspect [-typelib file.yaml] -show Demo.Widget")
		fmt.Fprintln(os.Stderr, "       gi-inspect -call Demo.add -args '[1, 2]'")
		fmt.Fprintln(os.Stderr, "       gi-inspect -variant 'a{sv}'")
		fmt.Fprintln(os.Stderr, "       gi-inspect -wit 'list<u32>'")
		fmt.Fprintln(os.Stderr, "       gi-inspect -i  (interactive mode)")
		os.Exit(1)
	}

	color := term.IsTerminal(int(os.Stdout.Fd()))

	if *interactive {
		if !color {
			fail(fmt.Errorf("interactive mode needs a terminal"))
		}
		if *typelibFile != "" {
			fail(fmt.Errorf("interactive mode calls the built-in Demo library; drop -typelib"))
		}
		if err := runInteractive(); err != nil {
			fail(err)
		}
		return
	}

	p := printer{color: color}
	var err error
	switch {
	case *variantType != "":
		err = checkVariant(p, *variantType)
	case *witType != "":
		err = mapWIT(p, *witType)
	case *callName != "":
		err = call(p, *callName, *callArgs, *verbose)
	default:
		err = browse(p, *typelibFile, *show, *list)
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// printer applies TUI styles only when stdout is a terminal.
type printer struct {
	color bool
}

func (p printer) fn(s string) string {
	if p.color {
		return funcStyle.Render(s)
	}
	return s
}

func (p printer) typ(s string) string {
	if p.color {
		return typeStyle.Render(s)
	}
	return s
}

func loadRepository(path string) (*typelib.Repository, error) {
	if path == "" {
		return demolib.LoadTypelib()
	}
	repo := typelib.NewRepository()
	if err := repo.LoadFile(path); err != nil {
		return nil, err
	}
	return repo, nil
}

func browse(p printer, path, name string, list bool) error {
	repo, err := loadRepository(path)
	if err != nil {
		return err
	}

	if list {
		for _, ns := range repo.Namespaces() {
			entries := repo.Entries(ns)
			fmt.Printf("Namespace %s (%d entries)\n", ns, len(entries))
			for _, info := range entries {
				fmt.Printf("  %-10s %s\n", info.Kind, p.fn(info.QualifiedName()))
			}
		}
	}

	if name == "" {
		return nil
	}
	info, err := repo.Lookup(name)
	if err != nil {
		return err
	}
	fmt.Print(describeInfo(p, repo, info))
	return nil
}

func describeInfo(p printer, repo *typelib.Repository, info *typelib.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", info.Kind, p.fn(info.QualifiedName()))
	if info.Parent != "" {
		fmt.Fprintf(&b, " : %s", p.typ(info.Parent))
	}
	if len(info.Interfaces) > 0 {
		fmt.Fprintf(&b, " implements %s", strings.Join(info.Interfaces, ", "))
	}
	b.WriteString("\n")
	if info.Signature != nil {
		fmt.Fprintf(&b, "  %s\n", formatCallable(p, info.Signature))
	}
	for _, m := range repo.Members(info) {
		switch m.Kind {
		case typelib.MemberField:
			ro := ""
			if m.Field.Readonly {
				ro = " (readonly)"
			}
			fmt.Fprintf(&b, "  field    %s: %s%s\n", m.Name, p.typ(m.Field.Type.String()), ro)
		case typelib.MemberProperty:
			fmt.Fprintf(&b, "  property %s: %s [%s]\n", m.Name, p.typ(m.Property.Type.String()), m.Property.Access)
		case typelib.MemberSignal:
			params := make([]string, len(m.Signal.Params))
			for i, sp := range m.Signal.Params {
				params[i] = sp.Name + ": " + p.typ(sp.Type.String())
			}
			ret := ""
			if m.Signal.Return != nil {
				ret = " -> " + p.typ(m.Signal.Return.String())
			}
			fmt.Fprintf(&b, "  signal   %s(%s)%s\n", m.Name, strings.Join(params, ", "), ret)
		case typelib.MemberMethod:
			fmt.Fprintf(&b, "  method   %s\n", formatCallable(p, m.Method))
		case typelib.MemberValue:
			fmt.Fprintf(&b, "  value    %s = %d\n", m.Name, m.Value.Value)
		}
	}
	return b.String()
}

func formatCallable(p printer, c *typelib.CallableInfo) string {
	params := make([]string, 0, len(c.Params))
	for _, cp := range c.Params {
		s := cp.Name + ": " + p.typ(cp.Type.String())
		if cp.Direction != "" && cp.Direction != "in" {
			s = cp.Direction + " " + s
		}
		params = append(params, s)
	}
	s := p.fn(c.Name) + "(" + strings.Join(params, ", ") + ")"
	if c.Return != nil {
		s += " -> " + p.typ(c.Return.String())
	}
	if c.Throws {
		s += " throws"
	}
	return s
}

func openDemo(ctx context.Context, verbose bool) (*bridge.Bridge, error) {
	repo, err := demolib.LoadTypelib()
	if err != nil {
		return nil, err
	}
	lib, _, err := demolib.New(repo)
	if err != nil {
		return nil, err
	}
	cfg := &bridge.Config{LibraryName: "demo"}
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		cfg.Logger = logger
	}
	return bridge.New(ctx, cfg, repo, lib)
}

// parseArgs decodes a YAML flow sequence into host values.
func parseArgs(s string) ([]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var args []any
	if err := yaml.Unmarshal([]byte(s), &args); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return args, nil
}

// parseArg decodes one YAML scalar or collection. Empty input is nil.
func parseArg(s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}

func call(p printer, name, rawArgs string, verbose bool) error {
	ctx := context.Background()
	args, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}
	b, err := openDemo(ctx, verbose)
	if err != nil {
		return err
	}
	defer b.Close(ctx)

	res, err := b.Call(ctx, name, args...)
	if err != nil {
		return err
	}
	fmt.Printf("%s => %v\n", p.fn(name), res)
	st := b.Stats()
	fmt.Printf("heap: %d blocks, %d bytes; trampolines: %d\n", st.HeapBlocks, st.HeapBytes, st.Trampolines)
	return nil
}

func checkVariant(p printer, typeString string) error {
	fmt.Printf("type %s\n", p.typ(typeString))
	return writeVariant(os.Stdout, typeString)
}

// writeVariant reports the serialization layout of a variant type.
func writeVariant(w io.Writer, typeString string) error {
	t, err := variant.Parse(typeString)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  alignment: %d\n", t.Alignment())
	if n := t.FixedSize(); n > 0 {
		fmt.Fprintf(w, "  fixed size: %d\n", n)
	} else {
		fmt.Fprintln(w, "  fixed size: variable")
	}
	fmt.Fprintf(w, "  basic: %v, container: %v\n", t.IsBasic(), t.IsContainer())
	return nil
}

func mapWIT(p printer, expr string) error {
	t, err := typelib.ParseWIT(expr)
	if err != nil {
		return err
	}
	fmt.Printf("%s => %s\n", expr, p.typ(t.String()))
	return nil
}
