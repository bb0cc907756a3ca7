package callback

import (
	restpf "github.com/guxiaodai/restpf"
)

// Path is a registration point under a Registry. Resolution is deferred to
// the terminal On call, which reports unknown paths as *restpf.SchemaError.
//
//	reg.Field("a").Field("b").GET(handler, callback.RunAfter("foo"))
type Path struct {
	reg   *Registry
	names []string
}

// Field descends into a child.
func (p *Path) Field(name string) *Path {
	names := make([]string, 0, len(p.names)+1)
	names = append(names, p.names...)
	return &Path{reg: p.reg, names: append(names, name)}
}

func (p *Path) Names() []string { return append([]string(nil), p.names...) }

// Node resolves the path against the registry schema.
func (p *Path) Node() (*restpf.Node, bool) { return p.reg.root.Lookup(p.names) }

// On registers h for method m at this path.
func (p *Path) On(m restpf.Method, h Handler, opts ...Option) error {
	return p.reg.Register(p.names, m, h, opts...)
}

func (p *Path) GET(h Handler, opts ...Option) error     { return p.On(restpf.GET, h, opts...) }
func (p *Path) POST(h Handler, opts ...Option) error    { return p.On(restpf.POST, h, opts...) }
func (p *Path) PUT(h Handler, opts ...Option) error     { return p.On(restpf.PUT, h, opts...) }
func (p *Path) PATCH(h Handler, opts ...Option) error   { return p.On(restpf.PATCH, h, opts...) }
func (p *Path) DELETE(h Handler, opts ...Option) error  { return p.On(restpf.DELETE, h, opts...) }
func (p *Path) OPTIONS(h Handler, opts ...Option) error { return p.On(restpf.OPTIONS, h, opts...) }
