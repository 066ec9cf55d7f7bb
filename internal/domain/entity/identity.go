package entity

import "strings"

// AuthorIdentity is the (stable id, email) pair attached to ratings and comments.
// Either half may be empty; both empty means unauthenticated.
type AuthorIdentity struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

func NewAuthorIdentity(id, email string) AuthorIdentity {
	return AuthorIdentity{
		ID:    strings.TrimSpace(id),
		Email: strings.TrimSpace(email),
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a AuthorIdentity) NormalizedEmail() string {
	return NormalizeEmail(a.Email)
}

func (a AuthorIdentity) IsAuthenticated() bool {
	return a.ID != "" || a.NormalizedEmail() != ""
}

// Key is the document key used for per-user records: the stable id when
// present, otherwise the normalized email.
func (a AuthorIdentity) Key() string {
	if a.ID != "" {
		return a.ID
	}
	return a.NormalizedEmail()
}

// LegacyKey is the key older clients used for rating records (the email as typed).
// Empty when it would collide with Key.
func (a AuthorIdentity) LegacyKey() string {
	if a.Email == "" || a.Email == a.Key() {
		return ""
	}
	return a.Email
}

// SameAuthor matches by id when both sides carry one, else by normalized email.
func (a AuthorIdentity) SameAuthor(other AuthorIdentity) bool {
	if a.ID != "" && other.ID != "" {
		return a.ID == other.ID
	}
	email := a.NormalizedEmail()
	return email != "" && email == other.NormalizedEmail()
}

// Owns reports whether a requester may act on something authored by author.
// Either key matching is enough.
func (a AuthorIdentity) Owns(author AuthorIdentity) bool {
	if a.ID != "" && author.ID != "" && a.ID == author.ID {
		return true
	}
	email := a.NormalizedEmail()
	return email != "" && email == author.NormalizedEmail()
}
