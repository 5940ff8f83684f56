// Package audit records Process Decision Records for catalog changes and
// admitted invocations.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/TanveerShahriar/Thesis/internal/models"
	"github.com/TanveerShahriar/Thesis/internal/store"
)

// Actions recorded by the daemon and CLI.
const (
	ActionCatalogImport = "catalog.import"
	ActionCatalogDelete = "catalog.delete"
	ActionInvoke        = "invoke"
	ActionEstimate      = "estimate"
)

// PDRWriter writes decision records to the store.
type PDRWriter struct {
	store *store.Store
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(s *store.Store) *PDRWriter {
	return &PDRWriter{store: s}
}

// Record writes a PDR entry. subject names what the action applied to, usually
// a function signature.
func (w *PDRWriter) Record(action string, inputs interface{}, outcome, subject, details string) (*models.PDREntry, error) {
	return w.store.WritePDR(action, HashInputs(inputs), outcome, subject, details)
}

// HashInputs returns the hex SHA-256 of the JSON encoding of inputs.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
