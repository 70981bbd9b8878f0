// ABOUTME: Clause compiler: turns a term sequence plus column registry into a Compiled filter.
// ABOUTME: Single left-to-right pass; malformed or disallowed tokens degrade the search, never fail it.
package filter

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Compiled is the output of Compile. Where and Order are spliced verbatim
// into a generated query by the caller; Offset and Limit are applied as a
// separate pagination step. Limit -1 means unlimited.
type Compiled struct {
	Where       string
	Order       string
	Offset      int64
	Limit       int64
	Permissions []string
	Owner       string
}

// Options carries the trash/row-cap switches plus the external collaborators
// the compiler must not own: the escaping primitive, the persisted default
// page size, and the readable-tags ACL fragment.
type Options struct {
	Trash         bool
	IgnoreMaxRows bool

	// Table is the table the generated clauses correlate against. The store
	// sets it when listing a trashcan table; empty means the resource's live
	// table.
	Table string

	// Escape is the storage engine's literal-escaping primitive. When nil a
	// conservative built-in is used so the package stays testable standalone.
	Escape Escape
	// DefaultRows resolves the rows=-2 sentinel. When nil the sentinel
	// collapses to unlimited.
	DefaultRows func() int64
	// MaxRows caps user-requested page sizes; <= 0 disables the cap.
	MaxRows int64
	// TagACL is a trusted SQL fragment restricting tag sub-queries to tags
	// the requesting user may read. Empty means no restriction.
	TagACL string
}

// compiler holds the per-call pass state. Compile allocates one per call;
// nothing survives between calls.
type compiler struct {
	res   Resource
	reg   *Registry
	opts  Options
	esc   Escape
	table string // effective FROM table, trash-aware

	out        Compiled
	where      strings.Builder
	order      strings.Builder
	first      bool // no predicate emitted yet
	firstOrder bool // no ORDER BY emitted yet
	lastAnd    bool
	lastNot    bool
	lastRegex  bool
}

// Compile turns a token sequence into a Compiled filter for the given resource
// type. reg may be nil, in which case the registered registry for res (and
// the trash flag) is used. The function is pure and safe for concurrent use.
func Compile(res Resource, terms []Term, reg *Registry, opts Options) Compiled {
	if reg == nil {
		reg = RegistryFor(res, opts.Trash)
	}
	esc := opts.Escape
	if esc == nil {
		esc = defaultEscape
	}
	table := opts.Table
	if table == "" {
		table = res.Table()
	}
	c := &compiler{
		res:        res,
		reg:        reg,
		opts:       opts,
		esc:        esc,
		table:      table,
		first:      true,
		firstOrder: true,
		out:        Compiled{Limit: -1},
	}

	for _, t := range terms {
		if t.Column == "" && t.Text == "" {
			continue
		}
		if t.Connective() {
			switch strings.ToLower(t.Text) {
			case "and":
				c.lastAnd = true
			case "not":
				c.lastNot = true
			case "re", "regexp":
				c.lastRegex = true
			}
			continue
		}
		if t.Column == "" {
			c.bareTerm(t)
			continue
		}
		c.keyword(t)
	}

	c.out.Where = c.where.String()
	c.out.Order = c.order.String()
	if !c.opts.IgnoreMaxRows {
		c.out.Limit = capRows(c.out.Limit, c.opts.MaxRows)
	}
	return c.out
}

// capRows clamps a requested page size to the system maximum. Unlimited (-1)
// also collapses to the maximum so omitting rows cannot bypass the cap.
func capRows(limit, max int64) int64 {
	if max <= 0 {
		return limit
	}
	if limit < 0 || limit > max {
		return max
	}
	return limit
}

// resolveRows applies the rows value rules: -2 means the persisted default
// page size, any other value below 1 means unlimited.
func resolveRows(n int64, defaultRows func() int64) int64 {
	if n == -2 {
		if defaultRows != nil {
			return defaultRows()
		}
		return -1
	}
	if n < 1 {
		return -1
	}
	return n
}

// keyword handles one column-qualified term.
func (c *compiler) keyword(t Term) {
	switch t.Column {
	case "sort", "sort-reverse":
		c.addSort(t, t.Column == "sort-reverse")
		return
	case "first":
		c.out.Offset = t.ParseInt() - 1
		if c.out.Offset < 0 {
			c.out.Offset = 0
		}
		return
	case "rows":
		c.out.Limit = resolveRows(t.ParseInt(), c.opts.DefaultRows)
		return
	case "permission":
		if t.Text != "" {
			c.out.Permissions = append(c.out.Permissions, t.Text)
		}
		return
	case "tag", "tag_id":
		c.tagTerm(t, t.Column == "tag_id")
		return
	case "owner":
		if t.Relation == RelEqual {
			if c.out.Owner == "" {
				c.out.Owner = t.Text
			}
			return
		}
		// Other relations fall through to ordinary column logic.
	}

	if strings.HasSuffix(t.Column, "_id") && !idExceptions[t.Column] {
		c.idTerm(t)
		return
	}

	c.columnTerm(t)
}

// idTerm compiles a soft foreign-key match for an _id target. An unset
// reference column always counts as a match.
func (c *compiler) idTerm(t Term) {
	if t.Relation != RelEqual {
		slog.Debug("filter: dropping _id term with unsupported relation",
			"column", t.Column, "relation", t.Relation.Symbol())
		c.dropPredicate()
		return
	}
	typ := strings.TrimSuffix(t.Column, "_id")
	ref, ok := ResourceByName(typ)
	if !ok {
		// Allow-listed clients never send these; log loudly enough to spot
		// registry/type drift.
		slog.Warn("filter: _id term references unknown resource type",
			"column", t.Column, "type", typ)
		c.dropPredicate()
		return
	}
	c.emit(refPred{table: ref.Table(), column: typ, uuid: t.Text})
}

// tagTerm compiles the EXISTS sub-predicate for tag= and tag_id= terms.
// The text splits on the first = into a name and an optional value.
func (c *compiler) tagTerm(t Term, byUUID bool) {
	name, value, hasValue := strings.Cut(t.Text, "=")
	c.emit(tagPred{
		byUUID:   byUUID,
		name:     name,
		value:    value,
		hasValue: hasValue,
		relation: t.Relation,
		resType:  c.res.String(),
		resTable: c.table,
		acl:      c.opts.TagACL,
	})
}

// columnTerm compiles an ordinary column-qualified comparison.
func (c *compiler) columnTerm(t Term) {
	if !c.reg.CanFilter(t.Column) {
		slog.Debug("filter: dropping term for disallowed column", "column", t.Column)
		c.dropPredicate()
		return
	}
	col, ok := c.reg.Lookup(t.Column)
	if !ok {
		// Allow-list passed but no registry entry: the name itself is a
		// registry-controlled string, so compare it as a plain text column.
		col = Column{Expr: t.Column, Kind: KindText}
	}

	termNumeric := t.Kind == KindInteger || t.Kind == KindReal
	colNumeric := col.Kind == KindInteger || col.Kind == KindReal
	if termNumeric && colNumeric && (t.Relation == RelEqual || t.Relation == RelAbove || t.Relation == RelBelow) {
		real := t.Kind == KindReal || col.Kind == KindReal
		op := map[Relation]string{RelEqual: "=", RelAbove: ">", RelBelow: "<"}[t.Relation]
		c.emit(numPred{expr: col.Expr, op: op, lit: formatNumber(t, real), real: real})
		return
	}

	switch t.Relation {
	case RelEqual:
		c.emit(eqPred{expr: col.Expr, lit: t.Text})
	case RelApprox:
		c.emit(likePred{expr: col.Expr, lit: t.Text})
	case RelAbove:
		c.emit(cmpPred{expr: col.Expr, op: ">", lit: t.Text})
	case RelBelow:
		c.emit(cmpPred{expr: col.Expr, op: "<", lit: t.Text})
	case RelRegex:
		c.emit(regexPred{expr: col.Expr, lit: t.Text})
	default:
		c.dropPredicate()
	}
}

// Fixed vocabularies for enum-like columns. A bare term only applies to these
// columns when its text could plausibly denote one of the values; otherwise
// the column contributes a vacuous conjunct/disjunct.
var (
	threatVocab = []string{
		"Critical", "High", "Medium", "Low", "Log",
		"Alarm", "Debug", "Error", "False Positive", "None",
	}
	trendVocab  = []string{"more", "less", "up", "down", "same"}
	statusVocab = []string{
		"Container", "Delete Requested", "Done", "Interrupted", "New",
		"Processing", "Queued", "Requested", "Running",
		"Stop Requested", "Stopped", "Uploading",
	}
)

// vocabApplies reports whether a bare-term literal can match the fixed
// vocabulary of an enum-like column. Columns without a vocabulary always apply.
func vocabApplies(column, text string) bool {
	var vocab []string
	switch column {
	case "threat":
		vocab = threatVocab
	case "trend":
		vocab = trendVocab
	case "status":
		vocab = statusVocab
	default:
		return true
	}
	lower := strings.ToLower(text)
	for _, v := range vocab {
		if strings.Contains(strings.ToLower(v), lower) {
			return true
		}
	}
	return false
}

// bareTerm compiles a free-text term into one multi-column group predicate.
// Negation is folded into the per-column operators, so the group joins with
// the plain and/or connective.
func (c *compiler) bareTerm(t Term) {
	negate := c.lastNot
	var kids []pred
	for _, name := range c.reg.Filterable {
		col, ok := c.reg.Lookup(name)
		if !ok || col.Kind == KindInteger || col.Kind == KindReal {
			continue
		}
		if !vocabApplies(name, t.Text) {
			kids = append(kids, boolPred(negate))
			continue
		}
		switch {
		case t.ExactBare && negate:
			kids = append(kids, nullOrNePred{expr: col.Expr, lit: t.Text})
		case t.ExactBare:
			kids = append(kids, eqPred{expr: col.Expr, lit: t.Text})
		case c.lastRegex:
			kids = append(kids, regexPred{expr: col.Expr, lit: t.Text, negate: negate})
		default:
			kids = append(kids, likePred{expr: col.Expr, lit: t.Text, negate: negate})
		}
	}
	if len(kids) == 0 {
		c.dropPredicate()
		return
	}
	joiner := " OR "
	if negate {
		joiner = " AND "
	}
	c.emitGroup(groupPred{joiner: joiner, kids: kids})
}

// emit appends one compiled predicate with the connective derived from the
// (first, and, not) state, then resets the join flags.
func (c *compiler) emit(p pred) {
	c.where.WriteString(joinWord(c.first, c.lastAnd, c.lastNot))
	c.where.WriteString("(" + p.render(c.esc) + ")")
	c.clearJoinState()
}

// emitGroup is emit without the NOT prefix: bare-term groups carry their
// negation inside the per-column operators.
func (c *compiler) emitGroup(p pred) {
	c.where.WriteString(joinWord(c.first, c.lastAnd, false))
	c.where.WriteString("(" + p.render(c.esc) + ")")
	c.clearJoinState()
}

func (c *compiler) clearJoinState() {
	c.first = false
	c.lastAnd = false
	c.lastNot = false
	c.lastRegex = false
}

// dropPredicate discards the current token, resetting the join flags so the
// dropped token is a true no-op for the surrounding boolean structure.
func (c *compiler) dropPredicate() {
	c.lastAnd = false
	c.lastNot = false
	c.lastRegex = false
}

// joinWord returns the connective prefix for the next predicate. OR is the
// default joiner; the first predicate is unprefixed.
func joinWord(first, and, not bool) string {
	switch {
	case first && not:
		return "NOT "
	case first:
		return ""
	case and && not:
		return " AND NOT "
	case and:
		return " AND "
	case not:
		return " OR NOT "
	default:
		return " OR "
	}
}

// Sort target sets for the semantic ORDER BY cases, checked in order.
var (
	severitySortTargets = map[string]bool{
		"severity": true, "original_severity": true, "cvss": true,
		"cvss_base": true, "max_cvss": true, "fp_per_host": true,
		"log_per_host": true, "low_per_host": true, "medium_per_host": true,
		"high_per_host": true, "critical_per_host": true,
	}
	plainSortTargets = map[string]bool{
		"created": true, "modified": true, "published": true, "qod": true,
		"cves": true, "critical": true, "high": true, "medium": true,
		"low": true, "log": true, "false_positive": true, "hosts": true,
		"result_hosts": true, "results": true, "latest_severity": true,
		"highest_severity": true, "average_severity": true,
	}
	intCastSortTargets = map[string]bool{"ips": true, "total": true, "tcp": true, "udp": true}
	addrSortTargets    = map[string]bool{"ip": true, "host": true}
)

// addSort handles sort= and sort-reverse=. Every target is allow-list
// checked; the first one gets the semantic special cases, later ones are
// appended as plain column ordering.
func (c *compiler) addSort(t Term, reverse bool) {
	name := t.Text
	if !c.reg.CanFilter(name) {
		slog.Debug("filter: dropping sort for disallowed column", "column", name)
		return
	}
	dir := "ASC"
	if reverse {
		dir = "DESC"
	}

	if !c.firstOrder {
		c.order.WriteString(", " + name + " " + dir)
		return
	}

	col, ok := c.reg.Lookup(name)
	if !ok {
		// The allow-list and registry are maintained together by the
		// resource module; divergence is a programming error, not bad input.
		panic(fmt.Sprintf("filter: sort column %q of %s allow-listed but unresolvable", name, c.res))
	}
	c.firstOrder = false
	c.order.WriteString("ORDER BY " + c.sortExpr(name, col) + " " + dir)
}

// sortExpr picks the ORDER BY fragment for the first sort term. The special
// cases are checked in order; first match wins.
func (c *compiler) sortExpr(name string, col Column) string {
	switch {
	case (c.res == ResourceReport || c.res == ResourceTask) && name == "status":
		// Containers have no target; group them under a fixed literal so
		// they sort together, everything else by status name plus a
		// zero-padded completion percentage.
		progress := "progress"
		container := "target IS NULL"
		if c.res == ResourceReport {
			progress = "(SELECT progress FROM tasks WHERE tasks.id = task)"
			container = "(SELECT target FROM tasks WHERE tasks.id = task) IS NULL"
		}
		return "CASE WHEN " + container + " THEN 'Container' ELSE " +
			col.Expr + " || lpad(CAST(" + progress + " AS TEXT), 3, '0') END"

	case c.res == ResourceTask && name == "threat":
		return "severity_class_rank(" + col.Expr + ")"

	case severitySortTargets[name]:
		// Unscored rows sort as negative infinity so they land together.
		return "CASE WHEN " + col.Expr + " IS NULL OR CAST(" + col.Expr + " AS TEXT) = ''" +
			" THEN CAST('-Infinity' AS REAL) ELSE CAST(" + col.Expr + " AS REAL) END"

	case name == "roles":
		return "CASE WHEN " + col.Expr + " ~* '^Admin' THEN '0' || " + col.Expr +
			" ELSE '1' || " + col.Expr + " END"

	case plainSortTargets[name]:
		return col.Expr

	case intCastSortTargets[name]:
		return "CAST(" + col.Expr + " AS INTEGER)"

	case addrSortTargets[name]:
		return "inet_sort_key(" + col.Expr + ")"

	case (c.res == ResourceNote || c.res == ResourceOverride) && (name == "nvt" || name == "name"):
		// Notes and overrides hang off an NVT; order by its display name,
		// then the free text.
		return "(SELECT name FROM nvts WHERE nvts.oid = nvt), lower(text)"

	case col.Kind == KindInteger:
		return "CAST(" + col.Expr + " AS INTEGER)"
	case col.Kind == KindReal:
		return "CAST(" + col.Expr + " AS REAL)"
	default:
		return "lower(" + col.Expr + ")"
	}
}

// ParseRows is a convenience for callers that need the rows-value rules
// without a full compile (the canonicalizer and control extractors).
func ParseRows(text string, opts Options) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	limit := resolveRows(n, opts.DefaultRows)
	if !opts.IgnoreMaxRows {
		limit = capRows(limit, opts.MaxRows)
	}
	return limit
}
