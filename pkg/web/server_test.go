package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/hydroscope/pkg/layout"
	"github.com/ritzau/hydroscope/pkg/model"
	"github.com/ritzau/hydroscope/pkg/render"
	"github.com/ritzau/hydroscope/pkg/vis"
)

func testServer(t *testing.T) (*Server, *vis.VisualizationState) {
	t.Helper()
	s := vis.NewVisualizationState()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddNode(&model.Node{ID: id, Label: id}))
	}
	require.NoError(t, s.AddContainer(&model.Container{ID: "grp", Label: "grp", Children: []string{"a", "b"}}))
	require.NoError(t, s.AddEdge(&model.Edge{ID: "e1", Source: "a", Target: "c"}))

	return NewServer(s, layout.NewRunner(layout.NewLayeredEngine())), s
}

func doJSON(t *testing.T, srv *Server, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestGetGraph(t *testing.T) {
	srv, _ := testServer(t)

	var payload render.Payload
	rec := doJSON(t, srv, "GET", "/api/graph", "", &payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload.Nodes, 4)
	assert.Len(t, payload.Edges, 1)
}

func TestToggleContainer(t *testing.T) {
	srv, state := testServer(t)

	rec := doJSON(t, srv, "POST", "/api/containers/grp/toggle", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, state.GetContainer("grp").Collapsed)

	rec = doJSON(t, srv, "POST", "/api/containers/grp/toggle", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, state.GetContainer("grp").Collapsed)
}

func TestToggleUnknownContainerIsOK(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, "POST", "/api/containers/ghost/toggle", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "unknown IDs are silent no-ops")
}

func TestCollapseAndExpandAll(t *testing.T) {
	srv, state := testServer(t)

	rec := doJSON(t, srv, "POST", "/api/containers/collapse-all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, state.GetContainer("grp").Collapsed)

	rec = doJSON(t, srv, "POST", "/api/containers/expand-all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, state.GetContainer("grp").Collapsed)
}

func TestSearchEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	var result struct {
		Matches       []vis.SearchMatch `json:"matches"`
		ExpansionKeys []string          `json:"expansionKeys"`
	}
	rec := doJSON(t, srv, "GET", "/api/search?q=a", "", &result)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, result.Matches)
	assert.Contains(t, result.ExpansionKeys, "grp")
}

func TestSearchMissingQuery(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, "GET", "/api/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchExpandReveals(t *testing.T) {
	srv, state := testServer(t)
	require.NoError(t, state.CollapseContainer("grp"))

	rec := doJSON(t, srv, "POST", "/api/search/expand", `{"query": "a"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, state.GetContainer("grp").Collapsed)
	assert.False(t, state.GetNode("a").Hidden)
}

func TestSearchExpandBadBody(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, "POST", "/api/search/expand", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest("GET", "/api/graph", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
