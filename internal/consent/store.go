package consent

import "context"

// Store persists consent records. The ledger is the only writer; everything
// else reads through the ledger's IsValid.
type Store interface {
	// Put writes the record, superseding any prior record for the subject.
	Put(ctx context.Context, record ConsentRecord) error
	// Get returns the record for a subject, or sentinel.ErrNotFound.
	Get(ctx context.Context, subjectID string) (*ConsentRecord, error)
	// Delete removes the record. Deleting an absent record is not an error.
	Delete(ctx context.Context, subjectID string) error
}
