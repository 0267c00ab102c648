package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodiesEqualUnwrapsEnvelopeAndIgnoresFields(t *testing.T) {
	goBody := []byte(`{"data":[{"_id":"uuid-1","title":"Algebra","fileSize":"1.2 MB","pdfUrl":"http://a?token=x"}]}`)
	legacyBody := []byte(`[{"_id":"64f0","title":"Algebra","fileSize":"1.2 MB","pdfUrl":"/uploads/a.pdf"}]`)

	tgt := target{Unwrap: true, Ignore: []string{"_id", "pdfUrl"}}
	assert.True(t, bodiesEqual(goBody, legacyBody, tgt))
	assert.False(t, bodiesEqual(goBody, legacyBody, target{Unwrap: true}))
}

func TestBodiesEqualSortsAndFoldsNumbers(t *testing.T) {
	a := []byte(`[{"rollNo":"2","math":70},{"rollNo":"1","math":88.5}]`)
	b := []byte(`[{"rollNo":"1","math":88.5},{"rollNo":"2","math":70.0}]`)

	assert.True(t, bodiesEqual(a, b, target{SortBy: "rollNo"}))
	assert.False(t, bodiesEqual(a, b, target{}))
}

func TestBodiesEqualRejectsNonJSON(t *testing.T) {
	assert.True(t, bodiesEqual([]byte("ok\n"), []byte("ok"), target{}))
	assert.False(t, bodiesEqual([]byte("ok"), []byte("nope"), target{}))
}

func TestCompareTargetAgainstServers(t *testing.T) {
	goSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/grades/10A", r.URL.Path)
		_, _ = w.Write([]byte(`[{"_id":"a","name":"Asha","average":89}]`))
	}))
	defer goSrv.Close()
	legacySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"b","name":"Asha","average":89,"__v":0}]`))
	}))
	defer legacySrv.Close()

	tgt := target{Path: "grades/10A", Critical: true, Ignore: []string{"_id", "__v"}}
	comp := compareTarget(goSrv.Client(), goSrv.URL, legacySrv.URL, tgt)
	require.NoError(t, comp.Error)
	assert.True(t, comp.StatusMatch)
	assert.True(t, comp.BodyMatch)
	assert.False(t, comp.differs())
}

func TestCompareTargetReportsUnreachableBackend(t *testing.T) {
	goSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer goSrv.Close()

	comp := compareTarget(goSrv.Client(), goSrv.URL, "http://127.0.0.1:1", target{Path: "/grades/10A"})
	require.Error(t, comp.Error)
	assert.True(t, comp.differs())
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[{"path":"/api/ebooks","unwrap":true}]}`), 0o600))

	targets, err := loadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, http.MethodGet, targets[0].method())
	assert.True(t, targets[0].Unwrap)

	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[]}`), 0o600))
	_, err = loadTargets(path)
	assert.Error(t, err)
}
