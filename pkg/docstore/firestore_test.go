package docstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/option"
)

const testDB = "/v1/projects/demo/databases/(default)/documents"

func newTestFirestore(t *testing.T, h http.HandlerFunc) *Firestore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f, err := NewFirestore(context.Background(),
		FirestoreConfig{ProjectID: "demo", Endpoint: srv.URL + "/"},
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return f
}

func TestFirestoreGet(t *testing.T) {
	f := newTestFirestore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, testDB+"/checkin_email/ada@pitt.edu", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"name": "projects/demo/databases/(default)/documents/checkin_email/ada@pitt.edu",
			"updateTime": "2024-02-01T10:00:00.123456Z",
			"fields": {
				"id": {"integerValue": "1042"},
				"email": {"stringValue": "ada@pitt.edu"},
				"opening": {"stringValue": "2024-02-01T10:00:00.000Z"},
				"score": {"doubleValue": 1.5},
				"vip": {"booleanValue": true},
				"note": {"nullValue": null},
				"opted": {"booleanValue": false},
				"originalEmail": {"arrayValue": {"values": [{"stringValue": "a@x.com"}]}},
				"meta": {"mapValue": {"fields": {"team": {"stringValue": "red"}}}}
			}
		}`)
	})

	doc, err := f.Get(context.Background(), "checkin_email", "ada@pitt.edu")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01T10:00:00.123456Z", doc.Version)
	assert.Equal(t, json.Number("1042"), doc.Fields["id"])
	assert.Equal(t, "ada@pitt.edu", doc.Fields["email"])
	assert.Equal(t, 1.5, doc.Fields["score"])
	assert.Equal(t, true, doc.Fields["vip"])
	assert.Nil(t, doc.Fields["note"])
	assert.Contains(t, doc.Fields, "note")
	assert.Nil(t, doc.Fields["opted"], "zero scalars are indistinguishable from null")
	assert.Equal(t, []any{"a@x.com"}, doc.Fields["originalEmail"])
	assert.Equal(t, map[string]any{"team": "red"}, doc.Fields["meta"])
}

func TestFirestoreGetNotFound(t *testing.T) {
	f := newTestFirestore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"status":"NOT_FOUND","message":"missing"}}`)
	})
	_, err := f.Get(context.Background(), "c", "k")
	assert.ErrorIs(t, err, ErrNotFound)

	doc, err := Lookup(context.Background(), f, "c", "k")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFirestoreListPages(t *testing.T) {
	calls := 0
	f := newTestFirestore(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, testDB+"/registrations_id", r.URL.Path)
		assert.Equal(t, "__name__", r.URL.Query().Get("orderBy"))
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = io.WriteString(w, `{"documents":[{"name":"projects/demo/databases/(default)/documents/registrations_id/1","fields":{"id":{"stringValue":"1"}}}],"nextPageToken":"p2"}`)
			return
		}
		assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
		_, _ = io.WriteString(w, `{"documents":[{"name":"projects/demo/databases/(default)/documents/registrations_id/2","fields":{"id":{"stringValue":"2"}}}]}`)
	})

	docs, err := f.List(context.Background(), "registrations_id")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "1", docs[0].Key)
	assert.Equal(t, "2", docs[1].Key)
	assert.Equal(t, "2", docs[1].Fields["id"])
}

func TestFirestoreCommitEncodesWrites(t *testing.T) {
	var raw []byte
	f := newTestFirestore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/documents:commit"), r.URL.Path)
		raw, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"writeResults":[{},{},{}]}`)
	})

	err := f.Commit(context.Background(),
		Write{Op: OpSet, Collection: "registrations_id", Key: "7", Fields: Fields{"id": "7", "n": int64(3), "zero": int64(0), "off": false}, Precondition: Precondition{MustNotExist: true}},
		Write{Op: OpMerge, Collection: "checkin_email", Key: "a@pitt.edu", Fields: Fields{"opening day": "ts"}, Precondition: Precondition{Version: "2024-01-01T00:00:00Z"}},
		Write{Op: OpDelete, Collection: "registrations_email", Key: "old@pitt.edu"},
	)
	require.NoError(t, err)

	var got firestore.CommitRequest
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got.Writes, 3)

	set := got.Writes[0]
	require.NotNil(t, set.Update)
	assert.Equal(t, "projects/demo/databases/(default)/documents/registrations_id/7", set.Update.Name)
	assert.Equal(t, "7", set.Update.Fields["id"].StringValue)
	assert.Equal(t, int64(3), set.Update.Fields["n"].IntegerValue)
	assert.Nil(t, set.UpdateMask, "set replaces the whole document")
	require.NotNil(t, set.CurrentDocument)
	assert.False(t, set.CurrentDocument.Exists)
	body := string(raw)
	assert.Contains(t, body, `"exists":false`)
	assert.Contains(t, body, `"integerValue":"0"`)
	assert.Contains(t, body, `"booleanValue":false`)

	merge := got.Writes[1]
	require.NotNil(t, merge.UpdateMask)
	assert.Equal(t, []string{"`opening day`"}, merge.UpdateMask.FieldPaths)
	require.NotNil(t, merge.CurrentDocument)
	assert.Equal(t, "2024-01-01T00:00:00Z", merge.CurrentDocument.UpdateTime)

	assert.Equal(t, "projects/demo/databases/(default)/documents/registrations_email/old@pitt.edu", got.Writes[2].Delete)
}

func TestFirestoreCommitChunks(t *testing.T) {
	var sizes []int
	f := newTestFirestore(t, func(w http.ResponseWriter, r *http.Request) {
		var req firestore.CommitRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sizes = append(sizes, len(req.Writes))
		_, _ = io.WriteString(w, `{}`)
	})

	writes := make([]Write, maxCommitWrites+2)
	for i := range writes {
		writes[i] = Write{Op: OpDelete, Collection: "c", Key: strconv.Itoa(i)}
	}
	require.NoError(t, f.Commit(context.Background(), writes...))
	assert.Equal(t, []int{maxCommitWrites, 2}, sizes)
}

func TestFirestoreCommitPreconditionFailure(t *testing.T) {
	for name, reply := range map[string]struct {
		status int
		body   string
	}{
		"failed precondition": {http.StatusBadRequest, `{"error":{"code":400,"status":"FAILED_PRECONDITION","message":"no"}}`},
		"already exists":      {http.StatusConflict, `{"error":{"code":409,"status":"ALREADY_EXISTS","message":"no"}}`},
		"aborted":             {http.StatusConflict, `{"error":{"code":409,"status":"ABORTED","message":"contention"}}`},
	} {
		t.Run(name, func(t *testing.T) {
			f := newTestFirestore(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(reply.status)
				_, _ = io.WriteString(w, reply.body)
			})
			err := f.Commit(context.Background(), Write{Op: OpSet, Collection: "c", Key: "k", Fields: Fields{}})
			assert.ErrorIs(t, err, ErrPreconditionFailed)
		})
	}
}

func TestFirestoreCommitOtherFailure(t *testing.T) {
	f := newTestFirestore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"code":500,"status":"INTERNAL","message":"boom"}}`)
	})
	err := f.Commit(context.Background(), Write{Op: OpSet, Collection: "c", Key: "k", Fields: Fields{}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPreconditionFailed)
}

func TestEncodeValueRoundTrip(t *testing.T) {
	in := Fields{
		"s":    "x",
		"i":    json.Number("12"),
		"f":    json.Number("1.25"),
		"list": []any{"a", json.Number("2")},
		"nested": map[string]any{
			"ok": true,
		},
		"nil": nil,
	}
	enc, err := encodeFields(in)
	require.NoError(t, err)
	out := firestoreFields(enc)
	assert.Equal(t, "x", out["s"])
	assert.Equal(t, json.Number("12"), out["i"])
	assert.Equal(t, 1.25, out["f"])
	assert.Equal(t, []any{"a", json.Number("2")}, out["list"])
	assert.Equal(t, map[string]any{"ok": true}, out["nested"])
	assert.Nil(t, out["nil"])

	_, err = encodeValue(struct{}{})
	assert.Error(t, err)
}

func TestQuoteFieldPath(t *testing.T) {
	assert.Equal(t, "opening", quoteFieldPath("opening"))
	assert.Equal(t, "`lunch-2`", quoteFieldPath("lunch-2"))
	assert.Equal(t, "`a\\`b`", quoteFieldPath("a`b"))
}
