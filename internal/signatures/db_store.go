package signatures

import (
	"context"
	"sort"

	"github.com/jonathan/nfa-builder/internal/db"
)

// SignatoryLister is the slice of *db.DB the database store needs.
type SignatoryLister interface {
	ListSignatories(ctx context.Context) ([]db.Signatory, error)
}

// DBStore reads signatories from the signatories table. The sort_order column
// doubles as the approved_by order.
type DBStore struct {
	db SignatoryLister
}

// NewDBStore creates a DBStore.
func NewDBStore(database SignatoryLister) *DBStore {
	return &DBStore{db: database}
}

// Load implements Store.
func (s *DBStore) Load(ctx context.Context) (Records, error) {
	rows, err := s.db.ListSignatories(ctx)
	if err != nil {
		return nil, err
	}

	records := Records{}
	for _, row := range rows {
		records[row.Role] = append(records[row.Role], Entry{
			Name:        row.Name,
			Designation: row.Designation,
			Order:       row.SortOrder,
		})
	}
	return records, nil
}

// ToRows flattens records for db.ReplaceSignatories. Roles are emitted in
// name order and entries keep their store order. Entries without an explicit
// order are stored with their 1-based position, the same rank Layout uses.
func ToRows(records Records) []db.Signatory {
	roles := make([]string, 0, len(records))
	for role := range records {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	var rows []db.Signatory
	for _, role := range roles {
		for i, e := range records[role] {
			rows = append(rows, db.Signatory{
				Role:        role,
				Name:        e.Name,
				Designation: e.Designation,
				SortOrder:   e.rank(i),
			})
		}
	}
	return rows
}
