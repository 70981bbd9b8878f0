// ABOUTME: Typed predicate tree rendered to SQL in a single step.
// ABOUTME: Every user literal passes through the Escape primitive exactly here, nowhere else.
package filter

import (
	"strconv"
	"strings"
)

// Escape neutralizes characters with special meaning in a SQL string literal.
// The storage engine supplies the real implementation; defaultEscape covers
// tests and tools that run without a store.
type Escape func(string) string

// defaultEscape doubles single quotes and strips NUL, the PostgreSQL rules
// for standard_conforming_strings literals.
func defaultEscape(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ReplaceAll(s, "'", "''")
}

// escapeLike additionally neutralizes ILIKE metacharacters so user text
// matches literally inside a pattern.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// pred is one node of the predicate tree. Expr fields are trusted registry
// expressions; every other string holding user text is escaped during render.
type pred interface {
	render(esc Escape) string
}

// boolPred is the vacuous conjunct/disjunct emitted for inapplicable bare
// terms: it neither matches nor breaks the surrounding boolean structure.
type boolPred bool

func (p boolPred) render(Escape) string {
	if p {
		return "(1 = 1)"
	}
	return "(1 = 0)"
}

// eqPred is a text equality comparison. An empty literal also accepts NULL.
type eqPred struct {
	expr string
	lit  string
}

func (p eqPred) render(esc Escape) string {
	lit := esc(p.lit)
	if lit == "" {
		return p.expr + " = '' OR " + p.expr + " IS NULL"
	}
	return p.expr + " = '" + lit + "'"
}

// nullOrNePred renders the negated equality used by bare exact terms.
type nullOrNePred struct {
	expr string
	lit  string
}

func (p nullOrNePred) render(esc Escape) string {
	return p.expr + " IS NULL OR " + p.expr + " != '" + esc(p.lit) + "'"
}

// cmpPred is a text ordering comparison (above/below).
type cmpPred struct {
	expr string
	op   string
	lit  string
}

func (p cmpPred) render(esc Escape) string {
	return "CAST(" + p.expr + " AS TEXT) " + p.op + " '" + esc(p.lit) + "'"
}

// likePred is a case-insensitive substring match.
type likePred struct {
	expr   string
	lit    string
	negate bool
}

func (p likePred) render(esc Escape) string {
	pat := "'%" + esc(escapeLike(p.lit)) + "%'"
	if p.negate {
		return p.expr + " IS NULL OR CAST(" + p.expr + " AS TEXT) NOT ILIKE " + pat
	}
	return "CAST(" + p.expr + " AS TEXT) ILIKE " + pat
}

// regexPred is a case-insensitive regular-expression match.
type regexPred struct {
	expr   string
	lit    string
	negate bool
}

func (p regexPred) render(esc Escape) string {
	pat := "'" + esc(p.lit) + "'"
	if p.negate {
		return p.expr + " IS NULL OR NOT (CAST(" + p.expr + " AS TEXT) ~* " + pat + ")"
	}
	return "CAST(" + p.expr + " AS TEXT) ~* " + pat
}

// numPred is a numeric comparison; both sides are cast to the same type.
// lit is already formatted from the parsed numeric value, but it still goes
// through the escape primitive to keep the invariant structural.
type numPred struct {
	expr string
	op   string
	lit  string
	real bool
}

func (p numPred) render(esc Escape) string {
	typ := "INTEGER"
	if p.real {
		typ = "REAL"
	}
	return "CAST(" + p.expr + " AS " + typ + ") " + p.op + " CAST(" + esc(p.lit) + " AS " + typ + ")"
}

// refPred is the soft foreign-key match for _id targets: an unset reference
// always matches.
type refPred struct {
	table  string // validated resource table, trusted
	column string // validated resource name, trusted
	uuid   string // user-supplied id literal
}

func (p refPred) render(esc Escape) string {
	return "(SELECT id FROM " + p.table + " WHERE uuid = '" + esc(p.uuid) + "') = " + p.column +
		" OR " + p.column + " IS NULL OR " + p.column + " = 0"
}

// tagPred is the EXISTS sub-predicate for tag= and tag_id= terms.
type tagPred struct {
	byUUID   bool   // match tags.uuid instead of tags.name
	name     string // tag name or uuid, user-supplied
	value    string // optional tag value, user-supplied
	hasValue bool
	relation Relation
	resType  string // current resource type name, trusted
	resTable string // correlated FROM table (trash-aware), trusted
	acl      string // trusted readable-tags fragment, may be empty
}

func (p tagPred) render(esc Escape) string {
	key := "tags.name"
	if p.byUUID {
		key = "tags.uuid"
	}

	match := func(expr, lit string) string {
		switch p.relation {
		case RelApprox:
			return "CAST(" + expr + " AS TEXT) ILIKE '%" + esc(escapeLike(lit)) + "%'"
		case RelRegex:
			return "CAST(" + expr + " AS TEXT) ~* '" + esc(lit) + "'"
		default:
			return expr + " = '" + esc(lit) + "'"
		}
	}

	var b strings.Builder
	b.WriteString("EXISTS (SELECT 1 FROM tags WHERE ")
	b.WriteString(match(key, p.name))
	b.WriteString(" AND tags.active != 0")
	if p.acl != "" {
		b.WriteString(" AND " + p.acl)
	}
	b.WriteString(" AND EXISTS (SELECT 1 FROM tag_resources WHERE tag_resources.tag = tags.id")
	b.WriteString(" AND tag_resources.resource_type = '" + p.resType + "'")
	b.WriteString(" AND tag_resources.resource = " + p.resTable + ".id)")
	if p.hasValue {
		b.WriteString(" AND " + match("tags.value", p.value))
	}
	b.WriteString(")")
	return b.String()
}

// groupPred combines child predicates, each parenthesized, with one joiner.
// Bare free-text terms expand to one groupPred across all eligible columns.
type groupPred struct {
	joiner string // " OR " or " AND "
	kids   []pred
}

func (p groupPred) render(esc Escape) string {
	parts := make([]string, len(p.kids))
	for i, k := range p.kids {
		parts[i] = "(" + k.render(esc) + ")"
	}
	return strings.Join(parts, p.joiner)
}

// formatNumber renders a parsed numeric term for interpolation. Real-typed
// comparisons always carry a decimal point so the cast target is unambiguous.
func formatNumber(t Term, real bool) string {
	if !real {
		return strconv.FormatInt(t.ParseInt(), 10)
	}
	v := t.Real
	if t.Kind == KindInteger {
		v = float64(t.Int)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
