package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the library client.
// Implementations include PersistedEntry.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Membership is the common shape of library membership rows, independent of
// which entity type (song, playlist) the library tracks.
type Membership interface {
	EntityID() string // EntityID returns the id of the entity held in the library
	OwnerID() string  // OwnerID returns the id of the entity's owner
	UserID() string   // UserID returns the id of the library's user
	AddedAt() string  // AddedAt returns the server-side creation timestamp, if known
}

// EnrichedEntry is a membership row augmented with fields joined client-side
// from related tables. Derived state: never persisted remotely, recomputed
// whenever the membership or its referenced metadata changes.
type EnrichedEntry struct {
	Row           Membership // The underlying membership row
	OwnerUsername string     // Username of the entity owner, empty when unknown
	EntityName    string     // Display name of the referenced entity, empty when unknown
	EntitySlug    string     // URL slug of the referenced entity, empty when unknown
}
