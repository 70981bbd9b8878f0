// ABOUTME: Column registries for every filterable resource type.
// ABOUTME: Maps public filter names to trusted SQL expressions and declared value kinds.
package filter

// Resource identifies a filterable resource type. Each resource supplies one
// column registry, optionally a second one for its trashcan variant.
type Resource int

// Resource types known to the filter subsystem.
const (
	ResourceTask Resource = iota
	ResourceReport
	ResourceResult
	ResourceTarget
	ResourceScanner
	ResourceSchedule
	ResourceNote
	ResourceOverride
	ResourceHost
	ResourceOS
	ResourceTag
	ResourceFilter
	ResourcePermission
	ResourceUser
)

var resourceNames = map[Resource]string{
	ResourceTask:       "task",
	ResourceReport:     "report",
	ResourceResult:     "result",
	ResourceTarget:     "target",
	ResourceScanner:    "scanner",
	ResourceSchedule:   "schedule",
	ResourceNote:       "note",
	ResourceOverride:   "override",
	ResourceHost:       "host",
	ResourceOS:         "os",
	ResourceTag:        "tag",
	ResourceFilter:     "filter",
	ResourcePermission: "permission",
	ResourceUser:       "user",
}

func (r Resource) String() string { return resourceNames[r] }

// Table returns the backing table name for the resource.
func (r Resource) Table() string {
	if r == ResourceOS {
		return "oss"
	}
	return resourceNames[r] + "s"
}

// ResourceByName resolves a resource type name, as used by _id filter targets.
func ResourceByName(name string) (Resource, bool) {
	for r, n := range resourceNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// Column maps a public filter name to a trusted query expression. Expr is
// never user-controlled; Alias is the external name and defaults to Expr.
type Column struct {
	Expr  string
	Alias string
	Kind  Kind
}

// Name returns the public filter name of the column.
func (c Column) Name() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Expr
}

// Registry is the per-resource column catalogue: Select columns appear in
// SELECT and ORDER BY, Where columns in WHERE/ORDER BY only, and Filterable
// is the flat allow-list of public names permitted as filter targets.
type Registry struct {
	Select     []Column
	Where      []Column
	Filterable []string
}

// CanFilter reports whether name is on the allow-list.
func (r *Registry) CanFilter(name string) bool {
	for _, f := range r.Filterable {
		if f == name {
			return true
		}
	}
	return false
}

// Lookup resolves a public name to its column: select columns first, then
// where-only columns, then any column whose expression literally equals the
// name.
func (r *Registry) Lookup(name string) (Column, bool) {
	for _, c := range r.Select {
		if c.Name() == name {
			return c, true
		}
	}
	for _, c := range r.Where {
		if c.Name() == name {
			return c, true
		}
	}
	for _, c := range r.Select {
		if c.Expr == name {
			return c, true
		}
	}
	for _, c := range r.Where {
		if c.Expr == name {
			return c, true
		}
	}
	return Column{}, false
}

// baseColumns are the columns every resource table shares.
func baseColumns() []Column {
	return []Column{
		{Expr: "uuid", Kind: KindText},
		{Expr: "name", Kind: KindText},
		{Expr: "comment", Kind: KindText},
		{Expr: "created", Kind: KindText},
		{Expr: "modified", Kind: KindText},
		{Expr: "(SELECT name FROM users WHERE users.id = owner)", Alias: "owner", Kind: KindText},
	}
}

func baseFilterable() []string {
	return []string{"uuid", "name", "comment", "created", "modified", "owner"}
}

type registryKey struct {
	res   Resource
	trash bool
}

// registries is populated once at init and never mutated afterwards, so
// concurrent reads from request handlers need no locking.
var registries = map[registryKey]*Registry{}

// RegistryFor returns the registry for a resource, falling back to the live
// registry when no trash variant is registered.
func RegistryFor(res Resource, trash bool) *Registry {
	if trash {
		if reg, ok := registries[registryKey{res, true}]; ok {
			return reg
		}
	}
	return registries[registryKey{res, false}]
}

func register(res Resource, trash bool, reg *Registry) {
	registries[registryKey{res, trash}] = reg
}

// extend builds a registry from the shared base plus resource-specific columns.
func extend(extra []Column, where []Column, filterable ...string) *Registry {
	return &Registry{
		Select:     append(baseColumns(), extra...),
		Where:      where,
		Filterable: append(baseFilterable(), filterable...),
	}
}

func init() {
	register(ResourceTask, false, extend(
		[]Column{
			{Expr: "run_status_name(run_status)", Alias: "status", Kind: KindText},
			{Expr: "progress", Kind: KindInteger},
			{Expr: "latest_severity", Alias: "severity", Kind: KindReal},
			{Expr: "severity_to_class(latest_severity)", Alias: "threat", Kind: KindText},
			{Expr: "trend_word(trend)", Alias: "trend", Kind: KindText},
			{Expr: "(SELECT count(*) FROM reports WHERE reports.task = tasks.id)", Alias: "total", Kind: KindInteger},
			{Expr: "(SELECT date FROM reports WHERE reports.task = tasks.id ORDER BY date DESC LIMIT 1)", Alias: "last", Kind: KindText},
		},
		[]Column{
			{Expr: "schedule", Kind: KindInteger},
			{Expr: "target", Kind: KindInteger},
		},
		"status", "progress", "severity", "threat", "trend", "total", "last",
	))
	// Trashed tasks never run, so the live run/trend columns are absent.
	register(ResourceTask, true, extend(
		[]Column{
			{Expr: "latest_severity", Alias: "severity", Kind: KindReal},
		},
		nil,
		"severity",
	))

	register(ResourceReport, false, &Registry{
		Select: []Column{
			{Expr: "uuid", Kind: KindText},
			{Expr: "date", Alias: "created", Kind: KindText},
			{Expr: "date", Alias: "name", Kind: KindText},
			{Expr: "run_status_name(scan_run_status)", Alias: "status", Kind: KindText},
			{Expr: "(SELECT name FROM tasks WHERE tasks.id = task)", Alias: "task", Kind: KindText},
			{Expr: "severity", Kind: KindReal},
			{Expr: "(SELECT count(DISTINCT host) FROM results WHERE results.report = reports.id)", Alias: "hosts", Kind: KindInteger},
			{Expr: "(SELECT count(*) FROM results WHERE results.report = reports.id)", Alias: "results", Kind: KindInteger},
			{Expr: "(SELECT name FROM users WHERE users.id = owner)", Alias: "owner", Kind: KindText},
		},
		Where: []Column{
			{Expr: "(SELECT count(*) FROM results WHERE results.report = reports.id AND severity > 6.9)", Alias: "high", Kind: KindInteger},
			{Expr: "(SELECT count(*) FROM results WHERE results.report = reports.id AND severity > 3.9 AND severity <= 6.9)", Alias: "medium", Kind: KindInteger},
			{Expr: "(SELECT count(*) FROM results WHERE results.report = reports.id AND severity > 0 AND severity <= 3.9)", Alias: "low", Kind: KindInteger},
			{Expr: "(SELECT count(DISTINCT host) FROM results WHERE results.report = reports.id)", Alias: "result_hosts", Kind: KindInteger},
		},
		Filterable: []string{
			"uuid", "created", "name", "status", "task", "severity",
			"hosts", "results", "owner", "high", "medium", "low", "result_hosts",
		},
	})

	register(ResourceResult, false, &Registry{
		Select: []Column{
			{Expr: "uuid", Kind: KindText},
			{Expr: "(SELECT name FROM nvts WHERE nvts.oid = results.nvt)", Alias: "name", Kind: KindText},
			{Expr: "host", Kind: KindText},
			{Expr: "port", Alias: "location", Kind: KindText},
			{Expr: "severity", Kind: KindReal},
			{Expr: "severity_to_class(severity)", Alias: "threat", Kind: KindText},
			{Expr: "qod", Kind: KindInteger},
			{Expr: "description", Kind: KindText},
			{Expr: "created", Kind: KindText},
			{Expr: "modified", Kind: KindText},
			{Expr: "(SELECT name FROM users WHERE users.id = owner)", Alias: "owner", Kind: KindText},
		},
		Where: []Column{
			{Expr: "nvt", Alias: "nvt_oid", Kind: KindText},
			{Expr: "report", Kind: KindInteger},
			{Expr: "task", Kind: KindInteger},
		},
		Filterable: []string{
			"uuid", "name", "host", "location", "severity", "threat",
			"qod", "description", "created", "modified", "owner", "nvt_oid",
		},
	})

	register(ResourceTarget, false, extend(
		[]Column{
			{Expr: "hosts", Kind: KindText},
			{Expr: "ip_count(hosts)", Alias: "ips", Kind: KindInteger},
			{Expr: "(SELECT name FROM port_lists WHERE port_lists.id = port_list)", Alias: "port_list", Kind: KindText},
		},
		nil,
		"hosts", "ips", "port_list",
	))
	register(ResourceTarget, true, extend(
		[]Column{
			{Expr: "hosts", Kind: KindText},
			{Expr: "ip_count(hosts)", Alias: "ips", Kind: KindInteger},
		},
		nil,
		"hosts", "ips",
	))

	register(ResourceScanner, false, extend(
		[]Column{
			{Expr: "host", Kind: KindText},
			{Expr: "port", Kind: KindInteger},
			{Expr: "scanner_type_name(type)", Alias: "type", Kind: KindText},
		},
		nil,
		"host", "port", "type",
	))

	register(ResourceSchedule, false, extend(
		[]Column{
			{Expr: "first_run", Kind: KindInteger},
			{Expr: "period", Kind: KindInteger},
			{Expr: "timezone", Kind: KindText},
		},
		nil,
		"first_run", "period", "timezone",
	))

	register(ResourceNote, false, &Registry{
		Select: []Column{
			{Expr: "uuid", Kind: KindText},
			{Expr: "(SELECT name FROM nvts WHERE nvts.oid = notes.nvt)", Alias: "name", Kind: KindText},
			{Expr: "nvt", Alias: "nvt_oid", Kind: KindText},
			{Expr: "text", Kind: KindText},
			{Expr: "hosts", Kind: KindText},
			{Expr: "port", Kind: KindText},
			{Expr: "severity", Kind: KindReal},
			{Expr: "active", Kind: KindInteger},
			{Expr: "created", Kind: KindText},
			{Expr: "modified", Kind: KindText},
			{Expr: "(SELECT name FROM users WHERE users.id = owner)", Alias: "owner", Kind: KindText},
		},
		Filterable: []string{
			"uuid", "name", "nvt_oid", "text", "hosts", "port",
			"severity", "active", "created", "modified", "owner",
		},
	})

	register(ResourceOverride, false, &Registry{
		Select: []Column{
			{Expr: "uuid", Kind: KindText},
			{Expr: "(SELECT name FROM nvts WHERE nvts.oid = overrides.nvt)", Alias: "name", Kind: KindText},
			{Expr: "nvt", Alias: "nvt_oid", Kind: KindText},
			{Expr: "text", Kind: KindText},
			{Expr: "hosts", Kind: KindText},
			{Expr: "port", Kind: KindText},
			{Expr: "severity", Kind: KindReal},
			{Expr: "new_severity", Kind: KindReal},
			{Expr: "active", Kind: KindInteger},
			{Expr: "created", Kind: KindText},
			{Expr: "modified", Kind: KindText},
			{Expr: "(SELECT name FROM users WHERE users.id = owner)", Alias: "owner", Kind: KindText},
		},
		Filterable: []string{
			"uuid", "name", "nvt_oid", "text", "hosts", "port",
			"severity", "new_severity", "active", "created", "modified", "owner",
		},
	})

	register(ResourceHost, false, extend(
		[]Column{
			{Expr: "ip", Kind: KindText},
			{Expr: "hostname", Kind: KindText},
			{Expr: "(SELECT name FROM oss WHERE oss.id = os)", Alias: "os", Kind: KindText},
			{Expr: "severity", Kind: KindReal},
		},
		nil,
		"ip", "hostname", "os", "severity",
	))

	register(ResourceOS, false, extend(
		[]Column{
			{Expr: "title", Kind: KindText},
			{Expr: "(SELECT count(*) FROM hosts WHERE hosts.os = oss.id)", Alias: "hosts", Kind: KindInteger},
			{Expr: "latest_severity", Kind: KindReal},
			{Expr: "highest_severity", Kind: KindReal},
			{Expr: "average_severity", Kind: KindReal},
		},
		nil,
		"title", "hosts", "latest_severity", "highest_severity", "average_severity",
	))

	register(ResourceTag, false, extend(
		[]Column{
			{Expr: "value", Kind: KindText},
			{Expr: "active", Kind: KindInteger},
			{Expr: "resource_type", Kind: KindText},
		},
		nil,
		"value", "active", "resource_type",
	))

	register(ResourceFilter, false, extend(
		[]Column{
			{Expr: "term", Kind: KindText},
			{Expr: "resource_type", Alias: "type", Kind: KindText},
		},
		nil,
		"term", "type",
	))
	register(ResourceFilter, true, extend(
		[]Column{
			{Expr: "term", Kind: KindText},
		},
		nil,
		"term",
	))

	register(ResourcePermission, false, extend(
		[]Column{
			{Expr: "resource_type", Kind: KindText},
			{Expr: "subject_type", Kind: KindText},
		},
		nil,
		"resource_type", "subject_type",
	))

	register(ResourceUser, false, extend(
		[]Column{
			{Expr: "roles_text(id)", Alias: "roles", Kind: KindText},
			{Expr: "email", Kind: KindText},
		},
		nil,
		"roles", "email",
	))
}

// idExceptions are filter targets ending in _id that are external catalogue
// identifiers, never soft foreign keys into our own tables.
var idExceptions = map[string]bool{
	"cve_id": true,
	"cpe_id": true,
}
