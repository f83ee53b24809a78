package auth

import (
	"context"
	"strings"
)

// Identity is the staff member behind a request. Every identity acts for
// exactly one library branch.
type Identity struct {
	Subject  string
	BranchID string
	Role     Role
}

// CanAccessBranch reports whether the identity may read resources owned by
// branchID. Admins read every branch.
func (id Identity) CanAccessBranch(branchID string) bool {
	if id.Role == RoleAdmin {
		return true
	}
	return id.BranchID != "" && NormalizeBranchID(branchID) == id.BranchID
}

// ListBranch returns the branch a listing is restricted to. Admins may ask
// for any branch, or for none to list all of them; everyone else sees only
// their own branch.
func (id Identity) ListBranch(requested string) string {
	if id.Role == RoleAdmin {
		return NormalizeBranchID(requested)
	}
	return id.BranchID
}

// NormalizeBranchID canonicalizes a branch code.
func NormalizeBranchID(branchID string) string {
	return strings.ToLower(strings.TrimSpace(branchID))
}

type identityKey struct{}

// WithIdentity attaches id to ctx with its branch code normalized.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	id.BranchID = NormalizeBranchID(id.BranchID)
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
