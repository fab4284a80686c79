package milp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedFormat indicates an export path whose extension is not one
// of .lp or .json, optionally followed by .gz or .zst.
var ErrUnsupportedFormat = errors.New("milp: unsupported model format")

// Format is the serialized layout of an exported model.
type Format string

const (
	FormatLP   Format = "lp"
	FormatJSON Format = "json"
)

// Compression wraps the serialized model.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gz"
	CompressionZstd Compression = "zst"
)

// FormatOf derives the format and compression from a file name such as
// model.lp, model.json.zst or model.lp.gz.
func FormatOf(path string) (Format, Compression, error) {
	name := strings.ToLower(filepath.Base(path))
	comp := CompressionNone
	switch {
	case strings.HasSuffix(name, ".gz"):
		comp = CompressionGzip
		name = strings.TrimSuffix(name, ".gz")
	case strings.HasSuffix(name, ".zst"):
		comp = CompressionZstd
		name = strings.TrimSuffix(name, ".zst")
	}
	switch filepath.Ext(name) {
	case ".lp":
		return FormatLP, comp, nil
	case ".json":
		return FormatJSON, comp, nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Export writes the model to path. The file appears only once it is complete:
// the content goes to a temporary sibling which is renamed into place.
func (m *Model) Export(path string) error {
	format, comp, err := FormatOf(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return fmt.Errorf("creating model file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if err := m.encode(tmp, format, comp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("saving model to %s: %w", path, err)
	}
	return nil
}

func (m *Model) encode(w io.Writer, format Format, comp Compression) error {
	var closer io.Closer
	switch comp {
	case CompressionGzip:
		gz := gzip.NewWriter(w)
		w, closer = gz, gz
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		w, closer = zw, zw
	}

	var err error
	if format == FormatJSON {
		err = m.WriteJSON(w)
	} else {
		err = m.WriteLP(w)
	}
	if err != nil {
		return err
	}
	if closer != nil {
		return closer.Close()
	}
	return nil
}

// WriteLP writes the model in CPLEX LP text format, indicator constraints
// included.
func (m *Model) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ Model %s\n", m.name)

	obj := m.objective
	if obj == nil {
		obj = &Objective{}
	}
	if obj.Sense == Maximize {
		bw.WriteString("Maximize\n")
	} else {
		bw.WriteString("Minimize\n")
	}
	fmt.Fprintf(bw, " obj: %s\n", lpTerms(obj.Expr))

	bw.WriteString("Subject To\n")
	for i, c := range m.constraints {
		fmt.Fprintf(bw, " %s: %s %s %s\n", rowName(c.Name, "c", i), lpTerms(c.Expr), lpSense(c.Sense), formatFloat(c.RHS))
	}
	for i, ind := range m.indicators {
		c := ind.Constraint
		fmt.Fprintf(bw, " %s: %s = 1 -> %s %s %s\n", rowName(ind.Name, "ind", i), ind.Binary.name,
			lpTerms(c.Expr), lpSense(c.Sense), formatFloat(c.RHS))
	}

	bw.WriteString("Bounds\n")
	for _, v := range m.vars {
		if v.typ == Binary {
			continue
		}
		fmt.Fprintf(bw, " %s <= %s <= %s\n", lpBound(v.lb), v.name, lpBound(v.ub))
	}

	if names := m.namesOf(Integer); len(names) > 0 {
		bw.WriteString("Generals\n")
		for _, n := range names {
			fmt.Fprintf(bw, " %s\n", n)
		}
	}
	if names := m.namesOf(Binary); len(names) > 0 {
		bw.WriteString("Binaries\n")
		for _, n := range names {
			fmt.Fprintf(bw, " %s\n", n)
		}
	}
	bw.WriteString("End\n")
	return bw.Flush()
}

func (m *Model) namesOf(typ VarType) []string {
	var names []string
	for _, v := range m.vars {
		if v.typ == typ {
			names = append(names, v.name)
		}
	}
	return names
}

func rowName(name, prefix string, i int) string {
	if name == "" || strings.ContainsAny(name, " \t:") {
		return fmt.Sprintf("%s%d", prefix, i)
	}
	return name
}

func lpTerms(e LinExpr) string {
	if len(e.Terms) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range e.Terms {
		if i > 0 || t.Coef < 0 {
			if t.Coef < 0 {
				b.WriteString("- ")
			} else {
				b.WriteString("+ ")
			}
		}
		fmt.Fprintf(&b, "%s %s ", formatFloat(math.Abs(t.Coef)), t.Var.name)
	}
	return strings.TrimSpace(b.String())
}

func lpSense(s Sense) string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "="
	}
}

func lpBound(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return formatFloat(f)
}

// document is the JSON layout of a model.
type document struct {
	Name        string        `json:"name"`
	Variables   []docVar      `json:"variables"`
	Constraints []docRow      `json:"constraints"`
	Indicators  []docRow      `json:"indicators"`
	Objective   *docObjective `json:"objective,omitempty"`
}

type docVar struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	LB   *float64 `json:"lb,omitempty"`
	UB   *float64 `json:"ub,omitempty"`
}

type docTerm struct {
	Var  string  `json:"var"`
	Coef float64 `json:"coef"`
}

type docRow struct {
	Name   string    `json:"name"`
	Binary string    `json:"binary,omitempty"`
	Terms  []docTerm `json:"terms"`
	Sense  string    `json:"sense"`
	RHS    float64   `json:"rhs"`
}

type docObjective struct {
	Sense    string    `json:"sense"`
	Terms    []docTerm `json:"terms"`
	Constant float64   `json:"constant,omitempty"`
}

// WriteJSON writes the model as an indented JSON document.
func (m *Model) WriteJSON(w io.Writer) error {
	doc := document{
		Name:        m.name,
		Variables:   make([]docVar, 0, len(m.vars)),
		Constraints: make([]docRow, 0, len(m.constraints)),
		Indicators:  make([]docRow, 0, len(m.indicators)),
	}
	for _, v := range m.vars {
		doc.Variables = append(doc.Variables, docVar{Name: v.name, Type: v.typ.String(), LB: finite(v.lb), UB: finite(v.ub)})
	}
	for _, c := range m.constraints {
		doc.Constraints = append(doc.Constraints, toRow(c, ""))
	}
	for _, ind := range m.indicators {
		doc.Indicators = append(doc.Indicators, toRow(ind.Constraint, ind.Binary.name))
	}
	if m.objective != nil {
		doc.Objective = &docObjective{
			Sense:    m.objective.Sense.String(),
			Terms:    toTerms(m.objective.Expr),
			Constant: m.objective.Expr.Constant,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func finite(f float64) *float64 {
	if math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func toTerms(e LinExpr) []docTerm {
	terms := make([]docTerm, 0, len(e.Terms))
	for _, t := range e.Terms {
		terms = append(terms, docTerm{Var: t.Var.name, Coef: t.Coef})
	}
	return terms
}

func toRow(c Constraint, binary string) docRow {
	return docRow{Name: c.Name, Binary: binary, Terms: toTerms(c.Expr), Sense: c.Sense.String(), RHS: c.RHS}
}

// ReadJSON loads a model written by WriteJSON.
func ReadJSON(r io.Reader) (*Model, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}
	m := New(doc.Name)
	for _, dv := range doc.Variables {
		typ, err := parseVarType(dv.Type)
		if err != nil {
			return nil, err
		}
		lb, ub := math.Inf(-1), math.Inf(1)
		if dv.LB != nil {
			lb = *dv.LB
		}
		if dv.UB != nil {
			ub = *dv.UB
		}
		if _, err := m.AddVar(dv.Name, typ, lb, ub); err != nil {
			return nil, err
		}
	}
	for _, row := range doc.Constraints {
		lhs, sense, err := m.fromRow(row)
		if err != nil {
			return nil, err
		}
		m.AddConstraint(row.Name, lhs, sense, Const(row.RHS))
	}
	for _, row := range doc.Indicators {
		lhs, sense, err := m.fromRow(row)
		if err != nil {
			return nil, err
		}
		bin, err := m.Var(row.Binary)
		if err != nil {
			return nil, err
		}
		if _, err := m.AddIndicator(row.Name, bin, lhs, sense, Const(row.RHS)); err != nil {
			return nil, err
		}
	}
	if doc.Objective != nil {
		expr, err := m.fromTerms(doc.Objective.Terms)
		if err != nil {
			return nil, err
		}
		sense := Minimize
		if doc.Objective.Sense == Maximize.String() {
			sense = Maximize
		}
		m.SetObjective(sense, expr.Add(Const(doc.Objective.Constant)))
	}
	return m, nil
}

// ReadFile loads a JSON model, decompressing by file extension.
func ReadFile(path string) (*Model, error) {
	format, comp, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format != FormatJSON {
		return nil, fmt.Errorf("%w: only JSON models can be read back, got %s", ErrUnsupportedFormat, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	switch comp {
	case CompressionGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close() //nolint:errcheck
		r = gz
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return ReadJSON(r)
}

func (m *Model) fromTerms(terms []docTerm) (LinExpr, error) {
	var e LinExpr
	for _, t := range terms {
		v, err := m.Var(t.Var)
		if err != nil {
			return LinExpr{}, err
		}
		e = e.AddTerm(v, t.Coef)
	}
	return e, nil
}

func (m *Model) fromRow(row docRow) (LinExpr, Sense, error) {
	e, err := m.fromTerms(row.Terms)
	if err != nil {
		return LinExpr{}, 0, err
	}
	sense, err := ParseSense(row.Sense)
	if err != nil {
		return LinExpr{}, 0, err
	}
	return e, sense, nil
}

// ParseSense maps "<=", ">=" and "==" (or "=") to a Sense.
func ParseSense(s string) (Sense, error) {
	switch s {
	case "<=":
		return LessEqual, nil
	case ">=":
		return GreaterEqual, nil
	case "==", "=":
		return Equal, nil
	}
	return 0, fmt.Errorf("milp: unknown sense %q", s)
}

func parseVarType(s string) (VarType, error) {
	for _, t := range []VarType{Continuous, Integer, Binary} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("milp: unknown variable type %q", s)
}
