package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorIdentity_SameAuthor(t *testing.T) {
	tests := []struct {
		name string
		a, b AuthorIdentity
		want bool
	}{
		{"ids match", NewAuthorIdentity("u1", "a@x.com"), NewAuthorIdentity("u1", "other@x.com"), true},
		{"ids differ even if email matches", NewAuthorIdentity("u1", "a@x.com"), NewAuthorIdentity("u2", "a@x.com"), false},
		{"email fallback when one id missing", NewAuthorIdentity("u1", " A@X.com "), NewAuthorIdentity("", "a@x.com"), true},
		{"email fallback mismatch", NewAuthorIdentity("", "a@x.com"), NewAuthorIdentity("", "b@x.com"), false},
		{"nothing to compare", NewAuthorIdentity("", ""), NewAuthorIdentity("", ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.SameAuthor(tt.b))
		})
	}
}

func TestAuthorIdentity_Owns(t *testing.T) {
	author := NewAuthorIdentity("", "Ana@Example.com")

	assert.True(t, NewAuthorIdentity("u9", "  ana@example.com").Owns(author))
	assert.False(t, NewAuthorIdentity("u9", "bob@example.com").Owns(author))

	withID := NewAuthorIdentity("u1", "old@example.com")
	assert.True(t, NewAuthorIdentity("u1", "new@example.com").Owns(withID))
	assert.True(t, NewAuthorIdentity("u2", "old@example.com").Owns(withID))
	assert.False(t, NewAuthorIdentity("", "").Owns(NewAuthorIdentity("", "")))
}

func TestAuthorIdentity_Keys(t *testing.T) {
	assert.Equal(t, "u1", NewAuthorIdentity("u1", "Ana@x.com").Key())
	assert.Equal(t, "Ana@x.com", NewAuthorIdentity("u1", "Ana@x.com").LegacyKey())

	assert.Equal(t, "ana@x.com", NewAuthorIdentity("", "Ana@x.com").Key())
	assert.Equal(t, "Ana@x.com", NewAuthorIdentity("", "Ana@x.com").LegacyKey())
	assert.Empty(t, NewAuthorIdentity("", "ana@x.com").LegacyKey())

	assert.False(t, NewAuthorIdentity(" ", " ").IsAuthenticated())
	assert.True(t, NewAuthorIdentity("", "ana@x.com").IsAuthenticated())
}
