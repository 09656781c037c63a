// Package validator provides input validation for index requests. It
// enforces id, term and payload constraints and returns per-field error
// details.
package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
)

const (
	maxIDLength   = 255
	maxTermLength = 512
	maxDataLength = 64 * 1024
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// Unwrap makes every ValidationError match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateIndexRequest checks id, term, priority and payload and returns a
// ValidationError listing every failing field.
func ValidateIndexRequest(req *ingestion.IndexRequest) error {
	errs := make(map[string]string)

	if req.ID == "" {
		errs["id"] = "id is required"
	} else if len(req.ID) > maxIDLength {
		errs["id"] = fmt.Sprintf("id must be at most %d characters", maxIDLength)
	}
	term := strings.TrimSpace(req.Term)
	if term == "" {
		errs["term"] = "term is required"
	} else if len(term) > maxTermLength {
		errs["term"] = fmt.Sprintf("term must be at most %d characters", maxTermLength)
	}
	if math.IsNaN(req.Priority) || math.IsInf(req.Priority, 0) {
		errs["priority"] = "priority must be a finite number"
	}
	if len(req.Data) > maxDataLength {
		errs["data"] = fmt.Sprintf("data must be at most %d bytes", maxDataLength)
	} else if len(req.Data) > 0 && !json.Valid(req.Data) {
		errs["data"] = "data must be valid JSON"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
