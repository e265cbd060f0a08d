package processed

import "context"

// Repository persists the processed-match set. Load returns an empty set
// when no prior snapshot exists; Save must replace the snapshot durably
// before returning.
type Repository interface {
	Load(ctx context.Context) (Set, error)
	Save(ctx context.Context, set Set) error
}
