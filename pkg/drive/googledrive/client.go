// Package googledrive provides a drive.Client implementation backed by the
// Google Drive v3 API, with per-account impersonation through a service
// account that has domain-wide delegation.
package googledrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"driveaudit/pkg/domain"
	"driveaudit/pkg/drive"
	"driveaudit/pkg/serrors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// field projections for the two listing modes. The id-only projection keeps
// the counting phase cheap; the full projection expands permissions so a
// single page fetch carries everything scoring needs.
const (
	idOnlyFields = "nextPageToken, files(id)"
	fullFields   = "nextPageToken, files(id, name, mimeType, size, createdTime, modifiedTime, " +
		"owners(emailAddress), shared, parents, " +
		"permissions(id, type, role, emailAddress, domain, displayName))"

	// listQuery excludes trashed items from every enumeration.
	listQuery = "trashed = false"
)

// Provider creates per-subject Drive clients from one organization-level
// service account key. It implements drive.CredentialProvider.
type Provider struct {
	credentialsJSON []byte
	scopes          []string
}

// NewProvider returns a CredentialProvider using the given service account
// key (JSON). The key must belong to a service account with domain-wide
// delegation for the Drive scope.
func NewProvider(credentialsJSON []byte) *Provider {
	return &Provider{
		credentialsJSON: credentialsJSON,
		scopes:          []string{driveapi.DriveScope},
	}
}

// ClientFor builds a Drive client impersonating the given member account.
// A malformed key is a configuration error and maps to serrors.ErrDelegation;
// grant failures surface on the first API call (see Verify).
func (p *Provider) ClientFor(ctx context.Context, subject string) (drive.Client, error) {
	cfg, err := google.JWTConfigFromJSON(p.credentialsJSON, p.scopes...)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrDelegation, err, "invalid service account credentials")
	}
	cfg.Subject = subject

	svc, err := driveapi.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("could not create drive service: %w", err)
	}

	return &Client{svc: svc, subject: subject}, nil
}

// Client talks to the Google Drive v3 API as one impersonated account and
// fulfills the drive.Client interface. It is safe for concurrent use.
type Client struct {
	svc     *driveapi.Service
	subject string
}

// Verify fetches the impersonated account's own profile. Delegation problems
// (invalid grant, delegation not authorized, access denied) surface here as
// serrors.ErrDelegation so callers can reject a scan before pipeline work
// begins.
func (c *Client) Verify(ctx context.Context) error {
	_, err := c.svc.About.Get().Fields("user(emailAddress)").Context(ctx).Do()
	if err != nil {
		return classifyErr(err, "delegation check failed for "+c.subject)
	}

	return nil
}

// ListFiles fetches one page of the account's items using the projection
// selected by opts.
func (c *Client) ListFiles(ctx context.Context, opts drive.ListOptions) (drive.FilePage, error) {
	fields := fullFields
	if opts.IDsOnly {
		fields = idOnlyFields
	}

	call := c.svc.Files.List().
		Q(listQuery).
		Fields(googleapi.Field(fields)).
		Context(ctx)
	if opts.PageSize > 0 {
		call = call.PageSize(opts.PageSize)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	res, err := call.Do()
	if err != nil {
		return drive.FilePage{}, classifyErr(err, "could not list files")
	}

	page := drive.FilePage{NextPageToken: res.NextPageToken}
	for _, f := range res.Files {
		page.Items = append(page.Items, toDomainItem(f))
	}

	return page, nil
}

// GetFile fetches a single item with the full projection.
func (c *Client) GetFile(ctx context.Context, id string) (*domain.Item, error) {
	f, err := c.svc.Files.Get(id).
		Fields("id, name, mimeType, size, createdTime, modifiedTime, " +
			"owners(emailAddress), shared, parents, " +
			"permissions(id, type, role, emailAddress, domain, displayName)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyErr(err, "could not get file")
	}

	item := toDomainItem(f)

	return &item, nil
}

// FolderName resolves a folder id to its display name.
func (c *Client) FolderName(ctx context.Context, folderID string) (string, error) {
	f, err := c.svc.Files.Get(folderID).Fields("name").Context(ctx).Do()
	if err != nil {
		return "", classifyErr(err, "could not get folder")
	}

	return f.Name, nil
}

// UpdatePermissionRole changes the role of an existing grant.
func (c *Client) UpdatePermissionRole(ctx context.Context, fileID, permissionID string, role domain.Role) error {
	_, err := c.svc.Permissions.Update(fileID, permissionID, &driveapi.Permission{
		Role: string(role),
	}).Context(ctx).Do()
	if err != nil {
		return classifyErr(err, "could not update permission")
	}

	return nil
}

// DeletePermission revokes a grant.
func (c *Client) DeletePermission(ctx context.Context, fileID, permissionID string) error {
	if err := c.svc.Permissions.Delete(fileID, permissionID).Context(ctx).Do(); err != nil {
		return classifyErr(err, "could not delete permission")
	}

	return nil
}

// StartPageToken returns the account's current change token. It is recorded
// as a resumption aid for future incremental scans and not otherwise used.
func (c *Client) StartPageToken(ctx context.Context) (string, error) {
	res, err := c.svc.Changes.GetStartPageToken().Context(ctx).Do()
	if err != nil {
		return "", classifyErr(err, "could not get start page token")
	}

	return res.StartPageToken, nil
}

// toDomainItem converts a provider file into the domain representation.
// Absent optional fields are left as zero values.
func toDomainItem(f *driveapi.File) domain.Item {
	item := domain.Item{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
		Shared:   f.Shared,
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		item.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		item.ModifiedAt = t
	}
	if len(f.Owners) > 0 {
		item.OwnerEmail = f.Owners[0].EmailAddress
	}
	if len(f.Parents) > 0 {
		item.FolderID = f.Parents[0]
	}
	for _, p := range f.Permissions {
		item.ACL = append(item.ACL, domain.ACLEntry{
			ID:          p.Id,
			Type:        domain.PrincipalType(p.Type),
			Role:        domain.Role(p.Role),
			Email:       p.EmailAddress,
			Domain:      p.Domain,
			DisplayName: p.DisplayName,
		})
	}

	return item
}

// classifyErr maps provider errors onto semantic kinds: OAuth grant failures
// and permission denials are configuration-verification errors (DELEGATION),
// quota exhaustion is RATE_LIMITED, missing objects are NOT_FOUND. Everything
// else is wrapped as-is and fails the enclosing scan.
func classifyErr(err error, msg string) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return serrors.Wrap(serrors.ErrDelegation, err, "%s", msg)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return serrors.Wrap(serrors.ErrDelegation, err, "%s", msg)
		case http.StatusForbidden:
			// quota errors also arrive as 403 with a rate-limit reason
			if isRateLimitReason(apiErr) {
				return serrors.Wrap(serrors.ErrRateLimited, err, "%s", msg)
			}

			return serrors.Wrap(serrors.ErrDelegation, err, "%s", msg)
		case http.StatusTooManyRequests:
			return serrors.Wrap(serrors.ErrRateLimited, err, "%s", msg)
		case http.StatusNotFound:
			return serrors.Wrap(serrors.ErrNotFound, err, "%s", msg)
		}
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func isRateLimitReason(apiErr *googleapi.Error) bool {
	for _, e := range apiErr.Errors {
		if strings.Contains(e.Reason, "rateLimit") || e.Reason == "userRateLimitExceeded" {
			return true
		}
	}

	return false
}
