package globalname

import (
	"context"
	"fmt"
	"go/types"
	"os"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// Report lists the package-scope names one function refers to.
type Report struct {
	Func  string
	File  string
	Line  int
	Names []string
}

// Scanner finds the names a function body resolves outside of itself: package-level
// identifiers of its own package and members of imported packages. Locals are
// collected over the whole function without block scoping, so a local that shadows
// a global hides every use of that global in the function.
type Scanner struct {
	allow    map[string]bool
	builtins bool
}

type Option func(*Scanner)

// WithAllow exempts names. An import name ("strings") exempts every member of that
// package; a qualified name ("strings.ToUpper") exempts one member.
func WithAllow(names ...string) Option {
	return func(s *Scanner) {
		for _, n := range names {
			s.allow[n] = true
		}
	}
}

// WithBuiltins controls whether predeclared identifiers (len, nil, int, ...) are
// exempt. They are by default.
func WithBuiltins(allowed bool) Option {
	return func(s *Scanner) { s.builtins = allowed }
}

func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{allow: map[string]bool{}, builtins: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var closureName = regexp.MustCompile(`\.func\d+(\.\d+)*$`)

// Scan locates the source of fn through its symbol table entry and scans it.
func (s *Scanner) Scan(ctx context.Context, fn any) (Report, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return Report{}, fmt.Errorf("%w: %T is not a function", ErrSourceUnavailable, fn)
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return Report{}, fmt.Errorf("%w: no symbol for %T", ErrSourceUnavailable, fn)
	}
	file, line := f.FileLine(f.Entry())
	src, err := os.ReadFile(file)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, f.Name(), err)
	}
	names, err := s.ScanSource(ctx, src, line, f.Name())
	if err != nil {
		return Report{}, err
	}
	return Report{Func: f.Name(), File: file, Line: line, Names: names}, nil
}

// ScanSource scans the function spanning line (1-based) of a Go source file.
// symbol is the runtime name of the function; it tells closures from declarations
// and names the function so that recursive calls are not reported.
func (s *Scanner) ScanSource(ctx context.Context, src []byte, line int, symbol string) ([]string, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	closure := closureName.MatchString(symbol)
	fnNode := findFunction(root, uint32(line-1), closure)
	if fnNode == nil {
		return nil, fmt.Errorf("%w: no function at line %d for %s", ErrSourceUnavailable, line, symbol)
	}

	own := ""
	if !closure {
		own = ownName(symbol)
	}
	return s.scanFunction(fnNode, importNames(root, src), src, own), nil
}

// ScanFile scans every function and method declared at the top level of a Go
// source file. Reports come back in source order with File set to path.
func (s *Scanner) ScanFile(ctx context.Context, path string, src []byte) ([]Report, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	imports := importNames(root, src)
	var reports []Report
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() != "function_declaration" && n.Type() != "method_declaration" {
			continue
		}
		name := n.ChildByFieldName("name").Content(src)
		reports = append(reports, Report{
			Func:  name,
			File:  path,
			Line:  int(n.StartPoint().Row) + 1,
			Names: s.scanFunction(n, imports, src, name),
		})
	}
	return reports, nil
}

func (s *Scanner) scanFunction(fnNode *sitter.Node, imports map[string]bool, src []byte, own string) []string {
	locals := declaredNames(fnNode, src)
	if own != "" {
		locals[own] = true
	}

	found := map[string]bool{}
	walk(fnNode, func(n *sitter.Node) bool {
		switch n.Type() {
		case "qualified_type":
			pkg := n.ChildByFieldName("package").Content(src)
			name := n.ChildByFieldName("name").Content(src)
			s.report(found, pkg, pkg+"."+name)
			return false
		case "selector_expression":
			operand := n.ChildByFieldName("operand")
			if operand != nil && operand.Type() == "identifier" {
				id := operand.Content(src)
				if imports[id] && !locals[id] {
					s.report(found, id, id+"."+n.ChildByFieldName("field").Content(src))
					return false
				}
			}
		case "identifier", "type_identifier":
			id := n.Content(src)
			if id == "_" || locals[id] || isKey(n) {
				return true
			}
			if s.builtins && types.Universe.Lookup(id) != nil {
				return true
			}
			s.report(found, id, id)
		}
		return true
	})

	names := make([]string, 0, len(found))
	for n := range found {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (s *Scanner) report(found map[string]bool, root, name string) {
	if s.allow[root] || s.allow[name] {
		return
	}
	found[name] = true
}

// walk visits n and its descendants depth first, skipping the children of nodes
// for which visit returns false.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			walk(child, visit)
		}
	}
}

var functionTypes = map[string]bool{
	"function_declaration": true,
	"method_declaration":   true,
	"func_literal":         true,
}

// findFunction returns the innermost function node whose rows contain row. The
// runtime reports a function's first body line when its prologue is elided, so the
// row need not be the one the function starts on. Closures only match func
// literals and named functions only match declarations.
func findFunction(root *sitter.Node, row uint32, closure bool) *sitter.Node {
	var match *sitter.Node
	walk(root, func(n *sitter.Node) bool {
		if n.StartPoint().Row > row || n.EndPoint().Row < row {
			return false
		}
		if functionTypes[n.Type()] && (n.Type() == "func_literal") == closure {
			match = n
		}
		return true
	})
	return match
}

// importNames maps the name each import is referred to by in the file.
func importNames(root *sitter.Node, src []byte) map[string]bool {
	names := map[string]bool{}
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "import_spec" {
			return n.Type() == "source_file" || n.Type() == "import_declaration" || n.Type() == "import_spec_list"
		}
		if alias := n.ChildByFieldName("name"); alias != nil {
			names[alias.Content(src)] = true
			return false
		}
		path := strings.Trim(n.ChildByFieldName("path").Content(src), "\"`")
		names[defaultImportName(path)] = true
		return false
	})
	return names
}

var majorVersion = regexp.MustCompile(`^v\d+$`)

func defaultImportName(path string) string {
	elems := strings.Split(path, "/")
	name := elems[len(elems)-1]
	if majorVersion.MatchString(name) && len(elems) > 1 {
		name = elems[len(elems)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, "-", "_")
}

// declaredNames collects every name the function declares: parameters, results,
// receivers, type parameters, and the variables, constants and types of its body.
func declaredNames(fn *sitter.Node, src []byte) map[string]bool {
	names := map[string]bool{}
	walk(fn, func(n *sitter.Node) bool {
		switch n.Type() {
		case "parameter_declaration", "variadic_parameter_declaration", "type_parameter_declaration",
			"var_spec", "const_spec":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if c := n.NamedChild(i); c.Type() == "identifier" {
					names[c.Content(src)] = true
				}
			}
		case "short_var_declaration", "range_clause", "receive_statement":
			if left := n.ChildByFieldName("left"); left != nil {
				collectIdentifiers(left, src, names)
			}
		case "type_switch_statement":
			if alias := n.ChildByFieldName("alias"); alias != nil {
				collectIdentifiers(alias, src, names)
			}
		case "type_spec", "type_alias":
			if name := n.ChildByFieldName("name"); name != nil {
				names[name.Content(src)] = true
			}
		}
		return true
	})
	return names
}

func collectIdentifiers(n *sitter.Node, src []byte, into map[string]bool) {
	walk(n, func(c *sitter.Node) bool {
		if c.Type() == "identifier" {
			into[c.Content(src)] = true
		}
		return true
	})
}

// isKey reports whether id is the field name of a keyed element in a composite literal.
func isKey(id *sitter.Node) bool {
	p := id.Parent()
	if p != nil && p.Type() == "literal_element" {
		id, p = p, p.Parent()
	}
	return p != nil && p.Type() == "keyed_element" && sameNode(p.NamedChild(0), id)
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func ownName(symbol string) string {
	symbol = strings.TrimSuffix(symbol, "[...]")
	if i := strings.LastIndexAny(symbol, "./"); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}
