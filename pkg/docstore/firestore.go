package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// maxCommitWrites is the Firestore limit on writes per commit call.
	maxCommitWrites = 500
	listPageSize    = 300
)

// FirestoreConfig selects the project and credentials of a Firestore database.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string // empty = application default credentials
	Endpoint        string // empty = production endpoint
}

// Firestore stores documents through the Firestore v1 API. Each Commit call is atomic; commits
// larger than 500 writes are split and are atomic per chunk only.
type Firestore struct {
	docs     *firestore.ProjectsDatabasesDocumentsService
	database string // projects/<p>/databases/(default)
}

// NewFirestore creates a Firestore client for cfg.ProjectID. Extra options are applied last.
func NewFirestore(ctx context.Context, cfg FirestoreConfig, opts ...option.ClientOption) (*Firestore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	base := []option.ClientOption{option.WithScopes(firestore.DatastoreScope)}
	if cfg.CredentialsFile != "" {
		base = append(base, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		base = append(base, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := firestore.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Firestore{
		docs:     svc.Projects.Databases.Documents,
		database: "projects/" + cfg.ProjectID + "/databases/(default)",
	}, nil
}

// Get fetches one document.
func (f *Firestore) Get(ctx context.Context, collection, key string) (*Document, error) {
	doc, err := f.docs.Get(f.docName(collection, key)).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return fromFirestore(collection, key, doc), nil
}

// List pages through a whole collection.
func (f *Firestore) List(ctx context.Context, collection string) ([]*Document, error) {
	var out []*Document
	call := f.docs.List(f.database+"/documents", collection).PageSize(listPageSize).OrderBy("__name__")
	err := call.Pages(ctx, func(page *firestore.ListDocumentsResponse) error {
		for _, d := range page.Documents {
			out = append(out, fromFirestore(collection, keyFromName(d.Name), d))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return out, nil
}

// Commit sends writes through documents:commit.
func (f *Firestore) Commit(ctx context.Context, writes ...Write) error {
	converted := make([]*firestore.Write, 0, len(writes))
	for _, w := range writes {
		if err := validate(w); err != nil {
			return err
		}
		fw, err := f.toWrite(w)
		if err != nil {
			return err
		}
		converted = append(converted, fw)
	}
	for start := 0; start < len(converted); start += maxCommitWrites {
		end := min(start+maxCommitWrites, len(converted))
		req := &firestore.CommitRequest{Writes: converted[start:end]}
		if _, err := f.docs.Commit(f.database, req).Context(ctx).Do(); err != nil {
			if isPreconditionFailure(err) {
				return ErrPreconditionFailed
			}
			return fmt.Errorf("commit: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the HTTP transport is shared.
func (f *Firestore) Close() error { return nil }

func (f *Firestore) docName(collection, key string) string {
	return f.database + "/documents/" + collection + "/" + key
}

func (f *Firestore) toWrite(w Write) (*firestore.Write, error) {
	fw := &firestore.Write{}
	switch w.Op {
	case OpDelete:
		fw.Delete = f.docName(w.Collection, w.Key)
	case OpSet, OpMerge:
		fields, err := encodeFields(w.Fields)
		if err != nil {
			return nil, fmt.Errorf("encode %s/%s: %w", w.Collection, w.Key, err)
		}
		fw.Update = &firestore.Document{Name: f.docName(w.Collection, w.Key), Fields: fields}
		if w.Op == OpMerge {
			mask := &firestore.DocumentMask{FieldPaths: make([]string, 0, len(w.Fields))}
			for k := range w.Fields {
				mask.FieldPaths = append(mask.FieldPaths, quoteFieldPath(k))
			}
			fw.UpdateMask = mask
		}
	default:
		return nil, fmt.Errorf("docstore: unknown op %s", w.Op)
	}
	switch {
	case w.Precondition.MustNotExist:
		fw.CurrentDocument = &firestore.Precondition{Exists: false, ForceSendFields: []string{"Exists"}}
	case w.Precondition.Version != "":
		fw.CurrentDocument = &firestore.Precondition{UpdateTime: w.Precondition.Version}
	}
	return fw, nil
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

func isPreconditionFailure(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusConflict || gerr.Code == http.StatusPreconditionFailed {
		return true
	}
	var payload struct {
		Error struct {
			Status string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(gerr.Body), &payload) == nil {
		switch payload.Error.Status {
		case "FAILED_PRECONDITION", "ALREADY_EXISTS", "ABORTED":
			return true
		}
	}
	return false
}

func keyFromName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func fromFirestore(collection, key string, d *firestore.Document) *Document {
	return &Document{Collection: collection, Key: key, Fields: firestoreFields(d.Fields), Version: d.UpdateTime}
}

func encodeFields(f Fields) (map[string]firestore.Value, error) {
	out := make(map[string]firestore.Value, len(f))
	for k, v := range f {
		ev, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = *ev
	}
	return out, nil
}

func encodeValue(v any) (*firestore.Value, error) {
	switch t := v.(type) {
	case nil:
		return &firestore.Value{NullValue: "NULL_VALUE"}, nil
	case bool:
		return &firestore.Value{BooleanValue: t, ForceSendFields: []string{"BooleanValue"}}, nil
	case string:
		return stringValue(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return integerValue(n), nil
		}
		fv, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return doubleValue(fv), nil
	case int:
		return integerValue(int64(t)), nil
	case int64:
		return integerValue(t), nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return integerValue(int64(t)), nil
		}
		return doubleValue(t), nil
	case time.Time:
		return &firestore.Value{TimestampValue: t.UTC().Format(time.RFC3339Nano)}, nil
	case []string:
		arr := &firestore.ArrayValue{Values: make([]*firestore.Value, 0, len(t))}
		for _, s := range t {
			arr.Values = append(arr.Values, stringValue(s))
		}
		return &firestore.Value{ArrayValue: arr}, nil
	case []any:
		arr := &firestore.ArrayValue{Values: make([]*firestore.Value, 0, len(t))}
		for _, item := range t {
			ev, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			arr.Values = append(arr.Values, ev)
		}
		return &firestore.Value{ArrayValue: arr}, nil
	case map[string]any:
		fields, err := encodeFields(t)
		if err != nil {
			return nil, err
		}
		return &firestore.Value{MapValue: &firestore.MapValue{Fields: fields}}, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func stringValue(s string) *firestore.Value {
	return &firestore.Value{StringValue: s, ForceSendFields: []string{"StringValue"}}
}

func integerValue(n int64) *firestore.Value {
	return &firestore.Value{IntegerValue: n, ForceSendFields: []string{"IntegerValue"}}
}

func doubleValue(f float64) *firestore.Value {
	return &firestore.Value{DoubleValue: f, ForceSendFields: []string{"DoubleValue"}}
}

func firestoreFields(in map[string]firestore.Value) Fields {
	out := make(Fields, len(in))
	for k, v := range in {
		out[k] = decodeValue(&v)
	}
	return out
}

// decodeValue maps a Firestore value to a JSON-like Go value. Integers become json.Number so
// large ids keep every digit. The generated Value cannot tell null, false, 0 and "" apart
// once decoded; all of them read back as nil.
func decodeValue(v *firestore.Value) any {
	switch {
	case v == nil || v.NullValue != "":
		return nil
	case v.MapValue != nil:
		return map[string]any(firestoreFields(v.MapValue.Fields))
	case v.ArrayValue != nil:
		out := make([]any, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			out = append(out, decodeValue(item))
		}
		return out
	case v.GeoPointValue != nil:
		return map[string]any{"latitude": v.GeoPointValue.Latitude, "longitude": v.GeoPointValue.Longitude}
	case v.TimestampValue != "":
		return v.TimestampValue
	case v.ReferenceValue != "":
		return v.ReferenceValue
	case v.BytesValue != "":
		return v.BytesValue
	case v.StringValue != "":
		return v.StringValue
	case v.IntegerValue != 0:
		return json.Number(strconv.FormatInt(v.IntegerValue, 10))
	case v.DoubleValue != 0:
		return v.DoubleValue
	case v.BooleanValue:
		return true
	}
	return nil
}

var simpleFieldPath = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9]*$`)

// quoteFieldPath backquotes a top-level field name that is not a simple identifier.
func quoteFieldPath(name string) string {
	if simpleFieldPath.MatchString(name) {
		return name
	}
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`")
	return "`" + r.Replace(name) + "`"
}
