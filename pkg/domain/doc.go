// Package domain contains the core domain entities and types used by the
// application. These types represent the business concepts (storage items,
// access grants, risk assessments, scans and multi-account audit jobs) and
// are intentionally free of infrastructure concerns so they can be shared
// across packages.
package domain
