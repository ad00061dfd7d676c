package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dartopia/darts-server/internal/registry"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := registry.New(ctx, registry.Options{Logger: zap.NewNop()})
	srv := httptest.NewServer(SetupRoutes(r, nil, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createTestGame(t *testing.T, srv *httptest.Server) createGameResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/games", map[string]any{
		"variant": "501",
		"players": []map[string]string{
			{"id": "p1", "name": "Player 1"},
			{"id": "p2", "name": "Player 2"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[createGameResponse](t, resp)
}

func TestCreateGame(t *testing.T) {
	srv := newTestServer(t)

	created := createTestGame(t, srv)
	assert.NotEmpty(t, created.GameID)
	assert.Equal(t, "501", created.State.Variant)
	assert.Equal(t, 501, created.State.Scores["p1"])
	assert.Equal(t, 501, created.State.Scores["p2"])
	assert.Equal(t, "waiting", string(created.State.Status))
}

func TestCreateGame_AssignsMissingPlayerIDs(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/games", map[string]any{
		"variant": "501",
		"players": []map[string]string{
			{"name": "Anonymous 1"},
			{"name": "Anonymous 2"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[createGameResponse](t, resp)

	for _, p := range created.State.Players {
		assert.NotEmpty(t, p.ID)
	}
	assert.NotEqual(t, created.State.Players[0].ID, created.State.Players[1].ID)
}

func TestCreateGame_Validation(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{
			name: "unknown variant",
			body: map[string]any{
				"variant": "cricket",
				"players": []map[string]string{{"id": "p1"}, {"id": "p2"}},
			},
		},
		{
			name: "too few players",
			body: map[string]any{
				"variant": "501",
				"players": []map[string]string{{"id": "p1"}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/games", tc.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestReportThrow_FullFlow(t *testing.T) {
	srv := newTestServer(t)
	created := createTestGame(t, srv)
	base := srv.URL + "/games/" + created.GameID

	resp := postJSON(t, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, base+"/throws", map[string]any{
		"playerId": "p1",
		"hit":      map[string]int{"section": 20, "multiplier": 3},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[throwResponse](t, resp)

	assert.Equal(t, "continue", string(res.Outcome))
	assert.Equal(t, 441, res.State.Scores["p1"])
	assert.Equal(t, 1, res.State.Current)
	require.Len(t, res.State.Events, 1)
	assert.Equal(t, 60, res.State.Events[0].Points)
}

func TestReportThrow_ErrorTaxonomy(t *testing.T) {
	srv := newTestServer(t)
	created := createTestGame(t, srv)
	base := srv.URL + "/games/" + created.GameID

	// before start: conflict
	resp := postJSON(t, base+"/throws", map[string]any{
		"playerId": "p1",
		"hit":      map[string]int{"section": 20, "multiplier": 1},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// out of turn: conflict
	resp = postJSON(t, base+"/throws", map[string]any{
		"playerId": "p2",
		"hit":      map[string]int{"section": 20, "multiplier": 1},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// illegal hit: bad request
	resp = postJSON(t, base+"/throws", map[string]any{
		"playerId": "p1",
		"hit":      map[string]int{"section": 25, "multiplier": 3},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// unknown session: not found
	resp = postJSON(t, srv.URL+"/games/NOPE42/throws", map[string]any{
		"playerId": "p1",
		"hit":      map[string]int{"section": 20, "multiplier": 1},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGetGame(t *testing.T) {
	srv := newTestServer(t)
	created := createTestGame(t, srv)

	resp, err := http.Get(srv.URL + "/games/" + created.GameID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[struct {
		ID     string         `json:"id"`
		Scores map[string]int `json:"scores"`
	}](t, resp)
	assert.Equal(t, created.GameID, snap.ID)
	assert.Equal(t, 501, snap.Scores["p1"])
}

func TestRemoveGame(t *testing.T) {
	srv := newTestServer(t)
	created := createTestGame(t, srv)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/games/"+created.GameID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	getResp, err := http.Get(srv.URL + "/games/" + created.GameID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
