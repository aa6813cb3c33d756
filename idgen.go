package tavernkit

import "github.com/google/uuid"

// newBlockID allocates a Block.ID (§3 Block: "id (uuid)").
func newBlockID() string {
	return uuid.NewString()
}
