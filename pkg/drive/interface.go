// Package drive defines the abstraction over the external directory/content
// provider used to enumerate storage items, read their access grants and
// mutate permissions.
package drive

import (
	"context"

	"driveaudit/pkg/domain"
)

// ListOptions controls one page fetch of the provider listing.
type ListOptions struct {
	// PageToken continues a previous listing; empty starts a fresh cursor walk.
	PageToken string
	// PageSize bounds how many items the provider may return per page.
	PageSize int64
	// IDsOnly selects the cheap id-only projection used by the counting phase;
	// when false the full projection with expanded permissions is fetched.
	IDsOnly bool
}

// FilePage is one page of a listing. Items carry only IDs under the id-only
// projection.
type FilePage struct {
	Items         []domain.Item
	NextPageToken string
}

// Client is the abstraction for the directory/content provider of one
// account. Implementations are expected to be safe for concurrent use.
type Client interface {
	// Verify performs a cheap call confirming that the delegated credentials
	// actually grant access to the account. Configuration problems (invalid
	// grant, delegation not authorized, access denied) surface here as
	// serrors.ErrDelegation, before any pipeline work begins.
	Verify(ctx context.Context) error

	// ListFiles fetches one page of the account's items.
	ListFiles(ctx context.Context, opts ListOptions) (FilePage, error)
	// GetFile fetches a single item with the full projection.
	GetFile(ctx context.Context, id string) (*domain.Item, error)
	// FolderName resolves a folder id to its display name.
	FolderName(ctx context.Context, folderID string) (string, error)

	// UpdatePermissionRole changes the role of an existing grant.
	UpdatePermissionRole(ctx context.Context, fileID, permissionID string, role domain.Role) error
	// DeletePermission revokes a grant.
	DeletePermission(ctx context.Context, fileID, permissionID string) error

	// StartPageToken returns the provider change token for the account,
	// reserved as a resumption aid for future incremental scans.
	StartPageToken(ctx context.Context) (string, error)
}

// CredentialProvider yields a Client acting as a specific member account via
// an organization-level credential (domain-wide delegation). It lets the
// system scan per-account storage without interactive per-user login.
type CredentialProvider interface {
	ClientFor(ctx context.Context, subject string) (Client, error)
}
