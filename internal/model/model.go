package model

import (
	"errors"
	"slices"
	"time"
	"unicode/utf8"
)

// Model name length limits.
const (
	MinModelNameLength = 3
	MaxModelNameLength = 100
)

// ErrInvalidModelName indicates a name outside the allowed length range.
var ErrInvalidModelName = errors.New("model name must be between 3 and 100 characters")

// Model is a jointly-owned asset record. The owner set determines both
// visibility and the model's fate: when an unshare empties it, the record
// and its artifacts are reclaimed together.
type Model struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerIDs  []string  `json:"owner_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateModelName checks the 3-100 character constraint. Lengths are
// counted in runes so multibyte names are measured the way users see them.
func ValidateModelName(name string) error {
	if n := utf8.RuneCountInString(name); n < MinModelNameLength || n > MaxModelNameLength {
		return ErrInvalidModelName
	}
	return nil
}

// OwnedBy reports whether userID is in the owner set.
func (m *Model) OwnedBy(userID string) bool {
	return slices.Contains(m.OwnerIDs, userID)
}

// WithoutOwner returns the owner set with userID removed, order preserved.
func (m *Model) WithoutOwner(userID string) []string {
	remaining := make([]string, 0, len(m.OwnerIDs))
	for _, id := range m.OwnerIDs {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	return remaining
}

// ModelResponse is the wire representation of a model. The two artifact
// booleans are probed from the filesystem when the response is assembled,
// never read from storage.
type ModelResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerIDs   []string  `json:"owner_ids"`
	HasPrimary bool      `json:"has_primary"`
	HasVariant bool      `json:"has_variant"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToResponse builds the wire form with freshly probed artifact flags.
func (m *Model) ToResponse(hasPrimary, hasVariant bool) ModelResponse {
	owners := m.OwnerIDs
	if owners == nil {
		owners = []string{}
	}
	return ModelResponse{
		ID:         m.ID,
		Name:       m.Name,
		OwnerIDs:   owners,
		HasPrimary: hasPrimary,
		HasVariant: hasVariant,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ModelCreateRequest is the body for creating a model. Any owner list the
// client supplies is ignored: ownership at creation is exactly the user
// addressed in the request path.
type ModelCreateRequest struct {
	Name     string   `json:"name"`
	OwnerIDs []string `json:"owner_ids,omitempty"` // discarded, never trusted
}

// ModelUpdateRequest is the body for a full-replace owner update.
type ModelUpdateRequest struct {
	Name     string   `json:"name,omitempty"`
	OwnerIDs []string `json:"owner_ids"`
}
