package formulagraph

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
)

// namedExpressionSheet is the sheet id named expressions are evaluated
// under. No sheet is ever given it, so a relative reference could never
// resolve; definitions must use absolute, sheet qualified references.
const namedExpressionSheet = math.MaxInt32

var (
	namedExpressionAddress = Addr(namedExpressionSheet, 0, 0)
	namePattern            = regexp.MustCompile(`^[A-Za-z_\\][A-Za-z0-9_.]*$`)
)

// namedExpressionKey validates name and returns the upper-cased key formulas
// refer to it by.
func namedExpressionKey(name string) (string, error) {
	key := strings.ToUpper(name)
	if !namePattern.MatchString(name) || key == "TRUE" || key == "FALSE" {
		return "", fmt.Errorf("%w: %q", ErrNamedExpressionName, name)
	}
	if tok, ok := splitCellReference(name); ok && tok.hasCol && tok.hasRow {
		return "", fmt.Errorf("%w: %q is a cell reference", ErrNamedExpressionName, name)
	}
	return key, nil
}

// checkNamedReferences rejects references a named expression could not
// resolve.
func checkNamedReferences(n *Ast) error {
	bad := false
	switch n.Type {
	case AstCellReference:
		bad = n.Ref.Sheet < 0 || !n.Ref.ColAbsolute || !n.Ref.RowAbsolute
	case AstCellRange:
		bad = n.Ref.Sheet < 0 || !n.Ref.ColAbsolute || !n.Ref.RowAbsolute || !n.End.ColAbsolute || !n.End.RowAbsolute
	case AstColumnRange:
		bad = n.Ref.Sheet < 0 || !n.Ref.ColAbsolute || !n.End.ColAbsolute
	case AstRowRange:
		bad = n.Ref.Sheet < 0 || !n.Ref.RowAbsolute || !n.End.RowAbsolute
	}
	if bad {
		return ErrRelativeNamedReference
	}
	for _, arg := range n.Args {
		if err := checkNamedReferences(arg); err != nil {
			return err
		}
	}
	for _, row := range n.Rows {
		for _, cell := range row {
			if err := checkNamedReferences(cell); err != nil {
				return err
			}
		}
	}
	return nil
}

// valueAst turns a literal into a constant expression.
func valueAst(v Value) *Ast {
	switch v.Type {
	case ValueNumber:
		return &Ast{Type: AstNumber, Number: v.Number}
	case ValueBoolean:
		return &Ast{Type: AstBoolean, Boolean: v.Boolean}
	case ValueError:
		return errorAst(v.Error, v.Message)
	}
	return &Ast{Type: AstString, String: v.String}
}

// nameVertex returns the vertex of a named expression, creating an empty
// one for a name which is read before it is defined.
func (d *DependencyGraph) nameVertex(name string) VertexID {
	if id, ok := d.names[name]; ok {
		return id
	}
	id := d.g.add(&vertex{kind: kindEmpty})
	d.names[name] = id
	d.nameOf[id] = name
	return id
}

// namedFormula returns the synced definition of name, or nil when the name
// is not defined.
func (d *DependencyGraph) namedFormula(name string) *formulaCell {
	id, ok := d.names[name]
	if !ok {
		return nil
	}
	return d.formula(id)
}

// definedNames returns the defined names in order.
func (d *DependencyGraph) definedNames() []string {
	var out []string
	for name, id := range d.names {
		if d.g.get(id).isFormula() {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// setNamedExpression defines or redefines name. The vertex is overwritten
// in place so formulas reading the name keep their edges.
func (d *DependencyGraph) setNamedExpression(name string, ast *Ast, raw string) {
	id := d.nameVertex(name)
	v := d.g.get(id)
	if v.isFormula() {
		d.detach(id)
		delete(d.g.volatile, id)
		delete(d.g.structural, id)
	}
	f := &formulaCell{ast: ast, raw: raw, address: namedExpressionAddress, version: d.lazy.Version(), name: name}
	*v = vertex{kind: kindFormula, seq: v.seq, formula: f}
	d.processCellDependencies(collectDependencies(ast, f.address, d.registry), id)
	f.volatile = containsFunction(ast, d.registry.isVolatile)
	f.structural = containsFunction(ast, d.registry.isStructural)
	if f.volatile {
		d.g.volatile[id] = struct{}{}
	}
	if f.structural {
		d.g.structural[id] = struct{}{}
	}
	d.markDirty(id)
}

// removeNamedExpression undefines name. Readers are left on an empty vertex
// and evaluate to #NAME?.
func (d *DependencyGraph) removeNamedExpression(name string) {
	id := d.names[name]
	d.detach(id)
	delete(d.g.volatile, id)
	delete(d.g.structural, id)
	if d.g.out[id].len() == 0 {
		delete(d.names, name)
		delete(d.nameOf, id)
		d.g.remove(id)
		return
	}
	v := d.g.get(id)
	*v = vertex{kind: kindEmpty, seq: v.seq}
	d.markDirty(id)
}

// parseNamedExpression turns raw input into the expression of a name.
func (e *Engine) parseNamedExpression(expression any) (*Ast, string, error) {
	c, err := parseCellContent(expression)
	if err != nil {
		return nil, "", err
	}
	switch c.kind {
	case contentEmpty:
		return nil, "", fmt.Errorf("%w: empty named expression", ErrUnsupportedContent)
	case contentValue:
		return valueAst(c.value), c.raw, nil
	}
	ast, err := e.parser.Parse(c.raw, namedExpressionAddress)
	if err != nil {
		return nil, "", err
	}
	if err := checkNamedReferences(ast); err != nil {
		return nil, "", err
	}
	return ast, c.raw, nil
}

// AddNamedExpression defines a workbook level name which formulas can use
// in place of a reference or a constant. expression is raw cell input; any
// reference in it must be absolute and carry a sheet, e.g.
// "=Sheet1!$A$1:$A$10". Names are case-insensitive.
func (e *Engine) AddNamedExpression(name string, expression any) ([]ExportedChange, error) {
	var key string
	changes, err := e.mutate(func() error {
		var err error
		if key, err = namedExpressionKey(name); err != nil {
			return err
		}
		if e.graph.namedFormula(key) != nil {
			return ErrNamedExpressionExists{Name: name}
		}
		ast, raw, err := e.parseNamedExpression(expression)
		if err != nil {
			return err
		}
		e.graph.setNamedExpression(key, ast, raw)
		return nil
	})
	if err == nil {
		e.events.emit(Event{Type: NamedExpressionAdded, Name: key})
	}
	return changes, err
}

// ChangeNamedExpression replaces the expression of a defined name. Formulas
// reading it are recomputed.
func (e *Engine) ChangeNamedExpression(name string, expression any) ([]ExportedChange, error) {
	return e.mutate(func() error {
		key := strings.ToUpper(name)
		if e.graph.namedFormula(key) == nil {
			return ErrNoSuchNamedExpression{Name: name}
		}
		ast, raw, err := e.parseNamedExpression(expression)
		if err != nil {
			return err
		}
		e.graph.setNamedExpression(key, ast, raw)
		return nil
	})
}

// RemoveNamedExpression undefines a name. Formulas reading it evaluate to
// #NAME? until it is defined again.
func (e *Engine) RemoveNamedExpression(name string) ([]ExportedChange, error) {
	key := strings.ToUpper(name)
	changes, err := e.mutate(func() error {
		if e.graph.namedFormula(key) == nil {
			return ErrNoSuchNamedExpression{Name: name}
		}
		e.graph.removeNamedExpression(key)
		return nil
	})
	if err == nil {
		e.events.emit(Event{Type: NamedExpressionRemoved, Name: key})
	}
	return changes, err
}

// NamedExpressions returns the defined names, upper-cased and sorted.
func (e *Engine) NamedExpressions() []string {
	return e.graph.definedNames()
}

// NamedExpressionFormula returns the expression of a name rewritten to the
// current layout of the sheets it references.
func (e *Engine) NamedExpressionFormula(name string) (string, error) {
	f := e.graph.namedFormula(strings.ToUpper(name))
	if f == nil {
		return "", ErrNoSuchNamedExpression{Name: name}
	}
	return Unparse(f.ast, f.address, e.sheetName), nil
}

// NamedExpressionValue returns the computed value of a name. A name
// standing for a range evaluates like a formula holding the range alone.
func (e *Engine) NamedExpressionValue(name string) (Value, error) {
	f := e.graph.namedFormula(strings.ToUpper(name))
	if f == nil {
		return Value{}, ErrNoSuchNamedExpression{Name: name}
	}
	return f.value, nil
}
