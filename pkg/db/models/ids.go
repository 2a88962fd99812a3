package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the row has none yet. Postgres also defaults the
// column, but assigning here keeps ids available before commit and on SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
