package domain

import (
	"strings"
	"time"
)

// PrincipalType classifies who an access grant applies to.
type PrincipalType string

const (
	// PrincipalUser is a grant for an individual user account.
	PrincipalUser PrincipalType = "user"
	// PrincipalGroup is a grant for a group address.
	PrincipalGroup PrincipalType = "group"
	// PrincipalDomain is a grant for every account in a domain.
	PrincipalDomain PrincipalType = "domain"
	// PrincipalAnyone is a public link grant, no authentication required.
	PrincipalAnyone PrincipalType = "anyone"
)

// Role is the access level of a single grant.
type Role string

const (
	RoleOwner         Role = "owner"
	RoleOrganizer     Role = "organizer"
	RoleFileOrganizer Role = "fileOrganizer"
	RoleWriter        Role = "writer"
	RoleCommenter     Role = "commenter"
	RoleReader        Role = "reader"
)

// CanWrite reports whether the role allows modifying the item or its
// sharing configuration.
func (r Role) CanWrite() bool {
	switch r {
	case RoleWriter, RoleOrganizer, RoleFileOrganizer:
		return true
	default:
		return false
	}
}

// ACLEntry is one access grant on an item. Email is set for user/group
// grants, Domain for domain grants; both are empty for anyone grants.
type ACLEntry struct {
	ID          string        `json:"id"`
	Type        PrincipalType `json:"type"`
	Role        Role          `json:"role"`
	Email       string        `json:"email,omitempty"`
	Domain      string        `json:"domain,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
}

// EmailDomain returns the domain part of the entry's email address, or an
// empty string when no email is present.
func (a ACLEntry) EmailDomain() string {
	at := strings.LastIndex(a.Email, "@")
	if at < 0 {
		return ""
	}

	return a.Email[at+1:]
}

// Item is a file-like object with an owner and an ordered access-control
// list, as returned by the directory provider's full projection.
type Item struct {
	// ID is the provider-assigned identifier of the item.
	ID string `json:"id"`
	// Name is the display name (filename) of the item.
	Name string `json:"name"`
	// MimeType is the provider MIME type of the item.
	MimeType string `json:"mimeType"`
	// Size is the item size in bytes. Zero for native document formats.
	Size int64 `json:"size"`

	// CreatedAt and ModifiedAt are provider timestamps.
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`

	// OwnerEmail is the address of the owning account.
	OwnerEmail string `json:"ownerEmail"`
	// Shared reports whether the item has at least one non-owner grant.
	Shared bool `json:"shared"`
	// FolderID is the id of the item's immediate parent folder, if any.
	FolderID string `json:"folderId,omitempty"`

	// ACL is the ordered list of access grants on the item.
	ACL []ACLEntry `json:"acl"`
}
