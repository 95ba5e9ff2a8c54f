package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aria-lang/metaclassify-go/internal/index"
	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

const refText = ">NC_000913 [Escherichia coli]\nACGTTGCAACGGATCCATGGTTGACCGATAGGCATCGATC\n" +
	">seq2 organism=Bacillus subtilis\nTTTGGGCCCAAATTTGGGACACACGTGTGTCCCAAATGCA\n"

func newServer(t *testing.T, api *API) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Mount("/api", api.Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func loadedAPI(t *testing.T) *API {
	t.Helper()

	engine := metaclassify.New(metaclassify.Options{K: 8, ConfidenceThreshold: 0.5})
	_, err := engine.BuildIndex(context.Background(), []metaclassify.Source{{Name: "refs.fasta", Text: refText}})
	require.NoError(t, err)
	return &API{Engine: engine}
}

func TestClassifyJSON(t *testing.T) {
	srv := newServer(t, loadedAPI(t))

	resp := post(t, srv.URL+"/api/classify", ClassifyRequest{Sequences: ">r1\nACGTTGCAACGGATCCATGG\n>r2\nACG\n"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Run-Id"))

	var rep metaclassify.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	require.Len(t, rep.Classifications, 2)
	assert.Equal(t, "Escherichia coli", rep.Classifications[0].Outcome.String())
	assert.Equal(t, "Too_Short", rep.Classifications[1].Outcome.String())
	assert.Equal(t, 1, rep.Statistics.ClassifiedCount)
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestClassifyLogsWriteFailure(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	body, err := json.Marshal(ClassifyRequest{Sequences: ">r1\nACGTTGCAACGGATCCATGG\n"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/classify?format=csv", bytes.NewReader(body))
	w := brokenWriter{httptest.NewRecorder()}

	loadedAPI(t).ClassifyHandler(w, req)

	assert.Contains(t, logs.String(), "Writing report")
	assert.Contains(t, logs.String(), "connection reset")
	assert.Contains(t, logs.String(), w.Header().Get("X-Run-Id"))
}

func TestClassifyCSV(t *testing.T) {
	srv := newServer(t, loadedAPI(t))

	resp := post(t, srv.URL+"/api/classify?format=csv", ClassifyRequest{
		Sources: []SourceRequest{{Name: "reads.fasta", Text: ">r1\nACGTTGCAACGGATCCATGG\n"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	assert.Equal(t, "Taxon,Count,Percentage,Relative_Abundance\nEscherichia coli,1,100.00,100.00\n", buf.String())
}

func TestClassifyErrors(t *testing.T) {
	empty := &API{Engine: metaclassify.New(metaclassify.Options{})}
	srv := newServer(t, empty)

	resp := post(t, srv.URL+"/api/classify", ClassifyRequest{Sequences: ">r\nACGT\n"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, metaclassify.ErrNoIndex.Error(), body.Error)

	resp = post(t, srv.URL+"/api/classify?format=xml", ClassifyRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := http.Post(srv.URL+"/api/classify", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestBuildIndexAndStatus(t *testing.T) {
	api := &API{Engine: metaclassify.New(metaclassify.Options{K: 8})}
	srv := newServer(t, api)

	resp := post(t, srv.URL+"/api/index", BuildIndexRequest{Sources: []SourceRequest{
		{Name: "refs.fasta", Text: refText},
		{Name: "tiny.fasta", Text: ">tiny [Tiny organism]\nACG\n"},
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var built BuildIndexResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&built))
	assert.Equal(t, 3, built.Records)
	assert.NotZero(t, built.Size)
	assert.Len(t, built.Digest, 16)
	require.Len(t, built.Warnings, 1)
	assert.Contains(t, built.Warnings[0], "tiny")

	statusResp, err := http.Get(srv.URL + "/api/index")
	require.NoError(t, err)
	defer statusResp.Body.Close()

	var status metaclassify.Status
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.True(t, status.IndexLoaded)
	assert.Equal(t, built.Size, status.IndexSize)
	assert.Equal(t, built.Digest, status.IndexDigest)
	assert.Equal(t, 2, status.Taxa)

	labelsResp, err := http.Get(srv.URL + "/api/index/labels")
	require.NoError(t, err)
	defer labelsResp.Body.Close()

	var labels []LabelCount
	require.NoError(t, json.NewDecoder(labelsResp.Body).Decode(&labels))
	require.Len(t, labels, 2)
	assert.GreaterOrEqual(t, labels[0].Kmers, labels[1].Kmers)
}

func TestBuildIndexNoReferenceData(t *testing.T) {
	srv := newServer(t, &API{Engine: metaclassify.New(metaclassify.Options{K: 8})})

	resp := post(t, srv.URL+"/api/index", BuildIndexRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	labelsResp, err := http.Get(srv.URL + "/api/index/labels")
	require.NoError(t, err)
	defer labelsResp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, labelsResp.StatusCode)
}

func TestReload(t *testing.T) {
	api := &API{Engine: metaclassify.New(metaclassify.Options{K: 8})}
	srv := newServer(t, api)

	resp := post(t, srv.URL+"/api/index/reload", struct{}{})
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	calls := 0
	api.Reload = func(ctx context.Context) (*metaclassify.BuildSummary, error) {
		calls++
		return api.Engine.BuildIndex(ctx, []metaclassify.Source{{Text: refText}})
	}
	resp = post(t, srv.URL+"/api/index/reload", struct{}{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, calls)

	api.Reload = func(ctx context.Context) (*metaclassify.BuildSummary, error) {
		return nil, metaclassify.ErrConcurrentRun
	}
	resp = post(t, srv.URL+"/api/index/reload", struct{}{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestParseHandler(t *testing.T) {
	srv := newServer(t, loadedAPI(t))

	resp := post(t, srv.URL+"/api/sequence/parse", SequenceRequest{
		Sequences: "@read_1\nACGTN\n+\nIIIII\n",
		Name:      "Salmonella_enterica.fq",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed ParseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.Equal(t, "fastq", parsed.Format)
	require.Len(t, parsed.Records, 1)
	assert.Equal(t, "read_1", parsed.Records[0].ID)
	assert.Equal(t, "Salmonella enterica", parsed.Records[0].Label)
	assert.Equal(t, 5, parsed.Records[0].Length)
	assert.Equal(t, 1, parsed.Records[0].Ambiguous)
	assert.InDelta(t, 0.4, parsed.Records[0].ATContent, 0.0001)
	assert.Equal(t, "invalid base 'N' at position 4", parsed.Records[0].Invalid)
}

func TestParseHandlerFASTA(t *testing.T) {
	srv := newServer(t, loadedAPI(t))

	data, err := json.Marshal(SequenceRequest{Sequences: "@read_1\nacgt\n+\nIIII\n@read_2\nGGCC\n+\nIIII\n"})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/sequence/parse?format=fasta", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/x-fasta", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, ">read_1\nACGT\n>read_2\nGGCC\n", buf.String())
}

func TestSetStatsHandler(t *testing.T) {
	srv := newServer(t, loadedAPI(t))

	resp := post(t, srv.URL+"/api/sequence/stats", SequenceRequest{Sequences: ">a\nATGC\n>b\nATGCATGC\n>c\nGGCC\n"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, float64(3), s["count"])
	assert.Equal(t, float64(16), s["totalBases"])
	// every record is 50% GC, or 100% for GGCC; the 50-60% bin wins
	assert.InDelta(t, 0.5, s["gcPeakLow"], 0.0001)
	assert.InDelta(t, 0.6, s["gcPeakHigh"], 0.0001)

	resp = post(t, srv.URL+"/api/sequence/stats", SequenceRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{metaclassify.ErrConcurrentRun, http.StatusConflict},
		{metaclassify.ErrNoIndex, http.StatusServiceUnavailable},
		{metaclassify.ErrNoReferenceData, http.StatusUnprocessableEntity},
		{&index.InvalidKeyError{Key: "ACGN", Reason: "ambiguous"}, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
