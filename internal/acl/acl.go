// ABOUTME: Access control fragments for listing queries: ownership, named-owner
// ABOUTME: and permission restrictions rendered as trusted SQL with escaped literals.
package acl

import (
	"strconv"
	"strings"

	"github.com/varden/scanmgr/internal/filter"
)

// User identifies the requesting user for access decisions.
type User struct {
	ID    int64
	Name  string
	Admin bool
}

// ResourceClause returns a WHERE fragment restricting a listing of res to rows
// the user may read, combined with the owner and permission restrictions the
// compiled filter carries. table is the table the listing selects from, which
// differs from res.Table() for trashcan listings. The fragment never starts
// with a connective; the caller ANDs it onto the filter clause. esc escapes
// every user literal.
func ResourceClause(u User, res filter.Resource, table string, c filter.Compiled, esc filter.Escape) string {
	var parts []string

	if !u.Admin {
		uid := strconv.FormatInt(u.ID, 10)
		parts = append(parts,
			"("+table+".owner IS NULL OR "+table+".owner = "+uid+
				" OR EXISTS (SELECT 1 FROM permissions"+
				" WHERE permissions.resource_type = '"+res.String()+"'"+
				" AND permissions.resource_uuid = "+table+".uuid"+
				" AND permissions.subject_type = 'user'"+
				" AND permissions.subject_id = "+uid+"))")
	}

	if c.Owner != "" {
		parts = append(parts,
			"("+table+".owner = (SELECT id FROM users WHERE name = '"+esc(c.Owner)+"'))")
	}

	// permission=name terms narrow the listing to rows the user holds the
	// named permission on. "any" is vacuous: readability is already required.
	for _, name := range c.Permissions {
		if strings.EqualFold(name, "any") {
			continue
		}
		parts = append(parts,
			"(EXISTS (SELECT 1 FROM permissions"+
				" WHERE permissions.name = '"+esc(name)+"'"+
				" AND permissions.resource_type = '"+res.String()+"'"+
				" AND permissions.resource_uuid = "+table+".uuid))")
	}

	if len(parts) == 0 {
		return "(1 = 1)"
	}
	return strings.Join(parts, " AND ")
}

// TagClause returns the fragment restricting tag sub-queries to tags the user
// may read. Empty means unrestricted; pass it as the compiler's TagACL option.
func TagClause(u User) string {
	if u.Admin {
		return ""
	}
	uid := strconv.FormatInt(u.ID, 10)
	return "(tags.owner IS NULL OR tags.owner = " + uid + ")"
}
