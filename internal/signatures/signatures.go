// Package signatures resolves the 2x2 signatory grid printed under every memo.
package signatures

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/types"
)

// Store roles.
const (
	RolePreparedBy    = "prepared_by"
	RoleApprovedBy    = "approved_by"
	RoleRecommendedBy = "recommended_by"
)

// RequiredRoles must all be present and non-empty for a store to be usable.
var RequiredRoles = []string{RolePreparedBy, RoleApprovedBy, RoleRecommendedBy}

// ErrIncomplete is returned by Layout when a required role is missing.
var ErrIncomplete = errors.New("signature store is incomplete")

// Entry is one signatory record. Order ranks approved_by entries: 1 prints top
// right, 2 bottom right. A zero Order means the entry's 1-based position.
type Entry struct {
	Name        string `json:"name" yaml:"name"`
	Designation string `json:"designation" yaml:"designation"`
	Order       int    `json:"order,omitempty" yaml:"order,omitempty"`
}

// Records maps a role to its signatories in store order.
type Records map[string][]Entry

// Store loads signature records. Implementations are read-only.
type Store interface {
	Load(ctx context.Context) (Records, error)
}

// StaticStore serves fixed records, or Err when set.
type StaticStore struct {
	Records Records
	Err     error
}

// Load implements Store.
func (s StaticStore) Load(context.Context) (Records, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Records, nil
}

// Defaults is the compiled-in signatory grid used whenever the store cannot
// supply one.
func Defaults() types.SignatureLayout {
	return types.SignatureLayout{
		TopLeft:     types.Signatory{Name: "Dean of Student Affairs", Designation: "Dean, Student Affairs"},
		TopRight:    types.Signatory{Name: "Head of Finance", Designation: "Head Finance"},
		BottomLeft:  types.Signatory{Name: "Registrar", Designation: "Registrar"},
		BottomRight: types.Signatory{Name: "Vice Chancellor", Designation: "Vice Chancellor (i/c)"},
	}
}

// Layout maps records onto the grid. A required role that is missing or empty
// yields ErrIncomplete. A present role without the needed entry leaves that
// cell empty.
func Layout(records Records) (types.SignatureLayout, error) {
	for _, role := range RequiredRoles {
		if len(records[role]) == 0 {
			return types.SignatureLayout{}, fmt.Errorf("%w: no %s entries", ErrIncomplete, role)
		}
	}

	return types.SignatureLayout{
		TopLeft:     records[RolePreparedBy][0].signatory(),
		TopRight:    byOrder(records[RoleApprovedBy], 1),
		BottomLeft:  records[RoleRecommendedBy][0].signatory(),
		BottomRight: byOrder(records[RoleApprovedBy], 2),
	}, nil
}

// Resolve loads the store and builds the grid. Any load or mapping failure
// returns defaults whole, never a mix of stored and default cells. The result
// may contain empty cells; the assembler fills those from defaults.
func Resolve(ctx context.Context, store Store, defaults types.SignatureLayout, logger *zap.Logger) types.SignatureLayout {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		logger.Debug("no signature store configured, using defaults")
		return defaults
	}

	records, err := store.Load(ctx)
	if err != nil {
		logger.Warn("signature store unavailable, using defaults", zap.Error(err))
		return defaults
	}

	layout, err := Layout(records)
	if err != nil {
		logger.Warn("signature store malformed, using defaults", zap.Error(err))
		return defaults
	}
	return layout
}

func (e Entry) signatory() types.Signatory {
	return types.Signatory{Name: e.Name, Designation: e.Designation}
}

// rank is the effective order of the entry at index i.
func (e Entry) rank(i int) int {
	if e.Order == 0 {
		return i + 1
	}
	return e.Order
}

func byOrder(entries []Entry, order int) types.Signatory {
	for i, e := range entries {
		if e.rank(i) == order {
			return e.signatory()
		}
	}
	return types.Signatory{}
}
