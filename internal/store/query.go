package store

import (
	"strings"

	"github.com/mzidar/numizmat/internal/model"
)

// Query accumulates WHERE conditions (joined with AND) and an ORDER BY list
// for one statement against a single table. The engine seeds every query
// with the soft-delete predicate before any filtration runs.
type Query struct {
	conds []string
	args  []any
	order []string
}

// Where appends a condition and its arguments.
func (q *Query) Where(cond string, args ...any) *Query {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, args...)
	return q
}

// Order appends an ORDER BY expression.
func (q *Query) Order(expr string) *Query {
	q.order = append(q.order, expr)
	return q
}

// whereClause renders the accumulated conditions, or "1=1" when empty.
func (q *Query) whereClause() string {
	if len(q.conds) == 0 {
		return "1=1"
	}
	return strings.Join(q.conds, " AND ")
}

// orderClause renders the ORDER BY list with a fallback ordering by id.
func (q *Query) orderClause() string {
	if len(q.order) == 0 {
		return "id"
	}
	return strings.Join(q.order, ", ")
}

// Filtration narrows a query. Filtrations are pure: they only append
// conditions and ordering, and the same filtration is safe to apply to
// point lookups, scans and soft-delete statements alike. Multiple
// filtrations compose with AND semantics by sequential application.
type Filtration func(*Query)

// OwnedBy restricts coin rows to those owned by the given account.
func OwnedBy(accountID int64) Filtration {
	return func(q *Query) {
		q.Where("owner_id = ?", accountID)
	}
}

// ActiveVisibleTo restricts transfer rows to active (initial) ones, and,
// unless the principal is an admin, to transfers addressed to them.
func ActiveVisibleTo(p model.Principal) Filtration {
	return func(q *Query) {
		q.Where("status = ?", model.TransferStatusInitial)
		if !p.Admin {
			q.Where("destination_id = ?", p.AccountID)
		}
	}
}

// PartyTo restricts transfer rows to those the principal takes part in,
// unless the principal is an admin. Used for historical reads, where closed
// transfers stay visible to their parties.
func PartyTo(p model.Principal) Filtration {
	return func(q *Query) {
		if !p.Admin {
			q.Where("(source_id = ? OR destination_id = ? OR creator_id = ?)",
				p.AccountID, p.AccountID, p.AccountID)
		}
	}
}

// FieldEquals restricts rows to those where column equals value. The column
// must come from a caller-side allowlist, never from raw client input.
func FieldEquals(column string, value any) Filtration {
	return func(q *Query) {
		q.Where(column+" = ?", value)
	}
}

// OrderBy appends ordering expressions. Columns must be validated by the
// caller; desc reverses the direction.
func OrderBy(column string, desc bool) Filtration {
	return func(q *Query) {
		if desc {
			q.Order(column + " DESC")
		} else {
			q.Order(column)
		}
	}
}
