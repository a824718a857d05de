package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam-bridge/internal/errs"
	"exam-bridge/internal/metrics"
	"exam-bridge/internal/upstream"
)

func newTestDirectory(t *testing.T, status int, body string) (Searcher, *int32, *rpcRequest) {
	t.Helper()

	var hits int32
	var last rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cli := upstream.New(time.Second, false, metrics.Discard())
	return NewDirectory(cli, srv.URL), &hits, &last
}

func TestSearchSchools(t *testing.T) {
	d, hits, last := newTestDirectory(t, http.StatusOK,
		`{"result":{"schools":[{"server":"x.com","displayName":"X School","loginName":"x"}]}}`)

	schools, err := d.SearchSchools(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, []School{{Server: "x.com", DisplayName: "X School", LoginName: "x"}}, schools)
	require.Equal(t, int32(1), atomic.LoadInt32(hits))

	require.Equal(t, "searchSchool", last.Method)
	require.Equal(t, "2.0", last.JSONRPC)
	require.Equal(t, []searchParams{{Search: "x"}}, last.Params)
	require.Regexp(t, `^wu_schulsuche-\d+$`, last.ID)
}

func TestSearchSchoolsNoCaching(t *testing.T) {
	d, hits, _ := newTestDirectory(t, http.StatusOK, `{"result":{"schools":[]}}`)

	for i := 0; i < 3; i++ {
		schools, err := d.SearchSchools(context.Background(), "same")
		require.NoError(t, err)
		require.Empty(t, schools)
	}
	require.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestSearchSchoolsBlankQuery(t *testing.T) {
	d, hits, _ := newTestDirectory(t, http.StatusOK, `{"result":{"schools":[]}}`)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := d.SearchSchools(context.Background(), q)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	}
	require.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestSearchSchoolsFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{
			name:    "error envelope",
			status:  http.StatusOK,
			body:    `{"error":{"code":-6003,"message":"too many results"}}`,
			kind:    errs.ErrUpstream,
			message: "too many results",
		},
		{
			name:    "non-success status",
			status:  http.StatusBadGateway,
			body:    "gateway down",
			kind:    errs.ErrUpstream,
			message: "gateway down",
		},
		{
			name:   "result without schools",
			status: http.StatusOK,
			body:   `{"result":{}}`,
			kind:   errs.ErrProtocol,
		},
		{
			name:   "schools of the wrong shape",
			status: http.StatusOK,
			body:   `{"result":{"schools":{"server":"x.com"}}}`,
			kind:   errs.ErrProtocol,
		},
		{
			name:   "schools null",
			status: http.StatusOK,
			body:   `{"result":{"schools":null}}`,
			kind:   errs.ErrProtocol,
		},
		{
			name:   "neither result nor error",
			status: http.StatusOK,
			body:   `{}`,
			kind:   errs.ErrProtocol,
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `<html></html>`,
			kind:   errs.ErrProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := newTestDirectory(t, tt.status, tt.body)

			_, err := d.SearchSchools(context.Background(), "x")
			require.ErrorIs(t, err, tt.kind)
			if tt.message != "" {
				require.Equal(t, tt.message, errs.Message(err))
			}
		})
	}
}

func TestIsTooManyResults(t *testing.T) {
	require.True(t, IsTooManyResults(errs.Upstream("too many results", nil)))
	require.False(t, IsTooManyResults(errs.Upstream("other", nil)))
	require.False(t, IsTooManyResults(nil))
}
