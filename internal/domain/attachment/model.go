package attachment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("attachment not found")
	ErrInvalidOwner = errors.New("invalid attachment owner type")
)

// Owner types an attachment can point at. The reference is a tagged pair
// {type, id}; resolution to the concrete record is up to the caller.
const (
	OwnerPatient   = "patient"
	OwnerEncounter = "encounter"
	OwnerTreatment = "treatment"
)

var validOwnerTypes = map[string]bool{
	OwnerPatient:   true,
	OwnerEncounter: true,
	OwnerTreatment: true,
}

func ValidOwnerType(s string) bool {
	return validOwnerTypes[s]
}

// Attachment records a stored binary file. The bytes live in the blob
// store; the row holds the pointer plus upload metadata.
type Attachment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OwnerType   string    `db:"owner_type" json:"owner_type"`
	OwnerID     uuid.UUID `db:"owner_id" json:"owner_id"`
	UploadedBy  *string   `db:"uploaded_by" json:"uploaded_by,omitempty"`
	Filename    string    `db:"filename" json:"filename"`
	StoragePath string    `db:"storage_path" json:"-"`
	MimeType    string    `db:"mime_type" json:"mime_type"`
	Size        int64     `db:"size" json:"size"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// BlobPath builds the storage location for the attachment content.
func (a *Attachment) BlobPath() string {
	return fmt.Sprintf("attachments/%s/%s/%s-%s", a.OwnerType, a.OwnerID, a.ID, a.Filename)
}

func (a *Attachment) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"owner_type":  a.OwnerType,
		"owner_id":    a.OwnerID,
		"uploaded_by": a.UploadedBy,
		"filename":    a.Filename,
		"mime_type":   a.MimeType,
		"size":        a.Size,
		"description": a.Description,
	}
}
