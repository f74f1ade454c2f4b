// Package interp is a tree-walking evaluator for the host language. It runs
// source files into module namespaces and rebuilds functions and classes
// from captured definitions.
package interp

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"capsule/internal/ast"
	"capsule/internal/diag"
	"capsule/internal/freevars"
	"capsule/internal/parser"
	"capsule/internal/source"
	"capsule/internal/value"
)

// InlineRemote is the reserved intrinsic escape: __inline_remote("name", args...).
const InlineRemote = "__inline_remote"

const defaultMaxDepth = 200

type Options struct {
	// Files caches source text. A fresh FileSet is created when nil.
	Files  *source.FileSet
	Stdout io.Writer
	// MaxDepth bounds the call depth; zero means 200.
	MaxDepth int
	// Intrinsics are added to the defaults reachable through __inline_remote.
	Intrinsics map[string]value.BuiltinFunc
	// Modules maps importable module names to source text.
	Modules map[string][]byte
	Logger  zerolog.Logger
}

// Interp owns the state of one program run. It is not safe for concurrent use.
type Interp struct {
	opts       Options
	files      *source.FileSet
	builtins   *value.Module
	stdlib     map[string]*value.Module
	modules    map[string]*value.Module
	intrinsics map[string]value.BuiltinFunc
	scopes     map[ast.Node]*freevars.ScopeInfo
	parsed     map[source.FileID]*ast.Module
	depth      int
	log        zerolog.Logger
}

func New(opts Options) *Interp {
	if opts.Files == nil {
		opts.Files = source.NewFileSet()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	in := &Interp{
		opts:       opts,
		files:      opts.Files,
		modules:    make(map[string]*value.Module),
		intrinsics: defaultIntrinsics(),
		scopes:     make(map[ast.Node]*freevars.ScopeInfo),
		parsed:     make(map[source.FileID]*ast.Module),
		log:        opts.Logger,
	}
	for name, fn := range opts.Intrinsics {
		in.intrinsics[name] = fn
	}
	in.builtins = in.newBuiltins()
	in.stdlib = map[string]*value.Module{"math": mathModule()}
	return in
}

// Files returns the source cache shared by parsing and capture.
func (in *Interp) Files() *source.FileSet { return in.files }

// Builtins returns the builtin namespace.
func (in *Interp) Builtins() *value.Module { return in.builtins }

// RegisterIntrinsic makes fn callable as __inline_remote(name, ...).
func (in *Interp) RegisterIntrinsic(name string, fn value.BuiltinFunc) {
	in.intrinsics[name] = fn
}

// RunFile loads path and executes it as the module named after the file.
func (in *Interp) RunFile(path string) (*value.Module, error) {
	f, err := in.files.Ensure(path)
	if err != nil {
		return nil, diag.Wrap(diag.IOLoadFileError, err, "load %s", path)
	}
	return in.runModule(f, moduleName(path))
}

// RunSource executes src as a module. name doubles as the file path.
func (in *Interp) RunSource(name string, src []byte) (*value.Module, error) {
	f := in.files.Get(in.files.AddVirtual(name, src))
	return in.runModule(f, moduleName(name))
}

func moduleName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (in *Interp) parse(f *source.File) (*ast.Module, error) {
	if mod, ok := in.parsed[f.ID]; ok {
		return mod, nil
	}
	mod, err := parser.ParseFile(f, parser.Options{})
	if err != nil {
		return nil, err
	}
	in.parsed[f.ID] = mod
	return mod, nil
}

func (in *Interp) runModule(f *source.File, name string) (*value.Module, error) {
	tree, err := in.parse(f)
	if err != nil {
		return nil, err
	}
	mod := value.NewModule(name, f.Path)
	mod.Attrs.Set("__name__", value.Str(name))
	in.modules[name] = mod
	fr := &frame{kind: moduleFrame, name: name, path: f.Path, globals: mod}
	in.log.Debug().Str("module", name).Str("path", f.Path).Msg("run module")
	if _, _, err := in.execBlock(fr, tree.Body); err != nil {
		delete(in.modules, name)
		return nil, err
	}
	return mod, nil
}

// importModule finds name among loaded modules, the standard modules,
// registered sources and files next to the importing file.
func (in *Interp) importModule(name, fromPath string) (*value.Module, error) {
	if mod, ok := in.modules[name]; ok {
		return mod, nil
	}
	if mod, ok := in.stdlib[name]; ok {
		return mod, nil
	}
	if src, ok := in.opts.Modules[name]; ok {
		return in.RunSource(name+".py", src)
	}
	candidate := filepath.Join(filepath.Dir(fromPath), name+".py")
	if _, err := os.Stat(candidate); err != nil {
		return nil, throw(ImportError, "no module named '%s'", name)
	}
	return in.RunFile(candidate)
}

// Singleton resolves a builtin by its qualified name, such as "len",
// "ValueError" or "math.sqrt".
func (in *Interp) Singleton(name string) (value.Value, bool) {
	switch name {
	case "None":
		return value.None, true
	case "True":
		return value.True, true
	case "False":
		return value.False, true
	}
	if v, ok := in.builtins.Attrs.Get(name); ok {
		return v, true
	}
	mod, attr, ok := strings.Cut(name, ".")
	if !ok {
		return nil, false
	}
	if m, ok := in.stdlib[mod]; ok {
		return m.Attrs.Get(attr)
	}
	return nil, false
}

// Module returns the standard or loaded module called name.
func (in *Interp) Module(name string) (*value.Module, bool) {
	if m, ok := in.stdlib[name]; ok {
		return m, true
	}
	m, ok := in.modules[name]
	return m, ok
}

func (in *Interp) scopeOf(n ast.Node) *freevars.ScopeInfo {
	if info, ok := in.scopes[n]; ok {
		return info
	}
	info := freevars.Analyze(n)
	in.scopes[n] = info
	return info
}
