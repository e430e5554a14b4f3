// Package exports renders whole collections as delimiter-separated CSV.
package exports

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
)

// Kind selects the record type of an export.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindCheckIn      Kind = "checkin"
)

// Index selects which of the two indexes of a record type is exported.
type Index string

const (
	IndexID    Index = "id"
	IndexEmail Index = "email"
)

// Collection maps (kind, index) to a collection name.
func Collection(kind Kind, index Index) (string, error) {
	switch {
	case kind == KindRegistration && index == IndexID:
		return models.CollectionRegistrationsByID, nil
	case kind == KindRegistration && index == IndexEmail:
		return models.CollectionRegistrationsByEmail, nil
	case kind == KindCheckIn && index == IndexID:
		return models.CollectionCheckInsByID, nil
	case kind == KindCheckIn && index == IndexEmail:
		return models.CollectionCheckInsByEmail, nil
	}
	return "", fmt.Errorf("unknown export %q of %q", kind, index)
}

// Exporter loads and renders collections.
type Exporter struct {
	store     docstore.Store
	delimiter rune
}

// NewExporter creates an exporter writing fields separated by delimiter.
func NewExporter(store docstore.Store, delimiter rune) *Exporter {
	if delimiter == 0 {
		delimiter = '~'
	}
	return &Exporter{store: store, delimiter: delimiter}
}

// Export writes the header row and one row per document of collection to w.
// It returns the number of data rows.
func (e *Exporter) Export(ctx context.Context, collection string, w io.Writer) (int, error) {
	docs, err := e.store.List(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", collection, err)
	}
	records := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.Fields)
	}
	if err := Write(w, records, e.delimiter); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Header returns the union of field names, sorted case-insensitively.
func Header(records []map[string]any) []string {
	seen := make(map[string]struct{})
	var header []string
	for _, r := range records {
		for k := range r {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			header = append(header, k)
		}
	}
	sort.Slice(header, func(i, j int) bool {
		a, b := strings.ToLower(header[i]), strings.ToLower(header[j])
		if a != b {
			return a < b
		}
		return header[i] < header[j]
	})
	return header
}

// Write renders records as CSV. Missing fields become empty cells.
func Write(w io.Writer, records []map[string]any, delimiter rune) error {
	header := Header(records)
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, r := range records {
		for i, h := range header {
			row[i] = Cell(r[h])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Cell renders one value. Lists are comma-joined, maps are JSON.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = Cell(item)
		}
		return strings.Join(parts, ",")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
