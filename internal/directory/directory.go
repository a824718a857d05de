package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"exam-bridge/internal/errs"
	"exam-bridge/internal/upstream"
	"exam-bridge/pkg"
)

const (
	DefaultEndpoint = "https://mobile.webuntis.com/ms/schoolquery2"

	searchMethod    = "searchSchool"
	requestIDPrefix = "wu_schulsuche"
	tooManyResults  = "too many results"
)

// School is what the directory knows about one school. LoginName is the
// key a caller uses to pick the school at login time.
type School struct {
	Server      string `json:"server"`
	DisplayName string `json:"displayName"`
	LoginName   string `json:"loginName"`
}

type Searcher interface {
	SearchSchools(ctx context.Context, query string) ([]School, error)
}

type rpcRequest struct {
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  []searchParams `json:"params"`
	JSONRPC string         `json:"jsonrpc"`
}

type searchParams struct {
	Search string `json:"search"`
}

type rpcResponse struct {
	Result *struct {
		Schools json.RawMessage `json:"schools"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type directory struct {
	cli      *upstream.Client
	endpoint string
	now      func() time.Time
}

func NewDirectory(cli *upstream.Client, endpoint string) Searcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &directory{
		cli:      cli,
		endpoint: endpoint,
		now:      time.Now,
	}
}

func (d *directory) SearchSchools(ctx context.Context, query string) ([]School, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errs.InvalidArgument("search query is required")
	}

	schools, err := d.search(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("error searching for schools")
		return nil, err
	}
	return schools, nil
}

func (d *directory) search(ctx context.Context, query string) ([]School, error) {
	payload, err := json.Marshal(rpcRequest{
		ID:      pkg.RequestID(requestIDPrefix, d.now()),
		Method:  searchMethod,
		Params:  []searchParams{{Search: query}},
		JSONRPC: "2.0",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := d.cli.Do("search_schools", req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, errs.Upstream(string(resp.Body), nil)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, errs.Protocol("failed to parse directory response", err)
	}

	switch {
	case envelope.Error != nil:
		return nil, errs.Upstream(envelope.Error.Message, nil)
	case envelope.Result == nil:
		return nil, errs.Protocol("failed to get property 'result'", nil)
	case len(envelope.Result.Schools) == 0:
		return nil, errs.Protocol("failed to get property 'schools'", nil)
	}

	var schools []School
	if err := json.Unmarshal(envelope.Result.Schools, &schools); err != nil {
		return nil, errs.Protocol("failed to deserialize schools", err)
	}
	if schools == nil {
		// "schools": null
		return nil, errs.Protocol("failed to deserialize schools", nil)
	}
	return schools, nil
}

// IsTooManyResults reports whether the directory refused a query as too broad.
func IsTooManyResults(err error) bool {
	return err != nil && errs.Message(err) == tooManyResults
}
