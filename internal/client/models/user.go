// Package models defines the client-side data model: the authenticated user
// projection and the transfer records cached from the provider.
package models

// AuthenticatedUser is the projection of a provider session exposed to the
// rest of the app. DisplayName falls back to Email when no profile row exists
// or the profile lookup did not finish in time.
type AuthenticatedUser struct {
	ID          string
	Email       string
	DisplayName string
}
