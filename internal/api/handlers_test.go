// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Toyhom/PaperInsight/internal/ingest"
	"github.com/Toyhom/PaperInsight/internal/store"
	"github.com/Toyhom/PaperInsight/internal/synth"
	"github.com/Toyhom/PaperInsight/pkg/types"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeSynth struct {
	fragments    []string
	failAfter    int // fragments delivered before the failure; -1 disables
	err          error
	errAfterDone bool // deliver everything and signal Done, then fail
	seenUser     string
	seenAtoms    []int64
	wasInvoked   bool
}

func (f *fakeSynth) Synthesize(_ context.Context, userID string, atomIDs []int64, sink synth.StreamSink) (*types.SynthesisReport, error) {
	f.wasInvoked = true
	f.seenUser = userID
	f.seenAtoms = atomIDs
	for i, frag := range f.fragments {
		if f.err != nil && !f.errAfterDone && f.failAfter >= 0 && i == f.failAfter {
			return nil, f.err
		}
		if err := sink.Fragment(frag); err != nil {
			return nil, err
		}
	}
	if f.err != nil && !f.errAfterDone && (f.failAfter < 0 || f.failAfter >= len(f.fragments)) {
		return nil, f.err
	}
	if err := sink.Done(); err != nil {
		return nil, err
	}
	if f.err != nil && f.errAfterDone {
		return nil, f.err
	}
	return &types.SynthesisReport{ID: "r1"}, nil
}

type fakeRepo struct {
	settings    types.CrawlerSettings
	putSettings []types.CrawlerSettings
	atoms       []types.SourcedAtom
	report      *types.SynthesisReport
	reportErr   error
}

func (r *fakeRepo) CrawlerSettings(context.Context) (types.CrawlerSettings, error) {
	return r.settings, nil
}

func (r *fakeRepo) PutCrawlerSettings(_ context.Context, s types.CrawlerSettings) error {
	r.putSettings = append(r.putSettings, s)
	return nil
}

func (r *fakeRepo) SearchAtoms(context.Context, string, int) ([]types.SourcedAtom, error) {
	return r.atoms, nil
}

func (r *fakeRepo) ReportByID(context.Context, string) (*types.SynthesisReport, error) {
	return r.report, r.reportErr
}

type pipelineCall struct {
	query   string
	max     int
	pdfURL  string
	arxivID string
}

type fakePipeline struct {
	calls chan pipelineCall
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{calls: make(chan pipelineCall, 4)}
}

func (p *fakePipeline) RunBatch(_ context.Context, _, query string, max int, _ io.Writer) (types.BatchResult, error) {
	p.calls <- pipelineCall{query: query, max: max}
	return types.BatchResult{}, nil
}

func (p *fakePipeline) RunSingle(_ context.Context, _, pdfURL, _, arxivID string, _ io.Writer) types.PaperResult {
	p.calls <- pipelineCall{pdfURL: pdfURL, arxivID: arxivID}
	return types.PaperResult{ArxivID: arxivID, Status: types.StatusProcessed}
}

func (p *fakePipeline) wait(t *testing.T) pipelineCall {
	t.Helper()
	select {
	case call := <-p.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline job never ran")
		return pipelineCall{}
	}
}

func testServer(t *testing.T, sy Synthesizer, repo Repository, pipe Pipeline) *Server {
	t.Helper()
	queue := ingest.NewQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go queue.Run(ctx)

	return &Server{
		Synth:         sy,
		Repo:          repo,
		Pipeline:      pipe,
		Queue:         queue,
		UploadsDir:    t.TempDir(),
		PublicBaseURL: "http://localhost:8080",
		LogWriter:     io.Discard,
	}
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestSynthesizeStreamsFragmentsAndSentinel(t *testing.T) {
	sy := &fakeSynth{fragments: []string{"Hello", " World"}, failAfter: -1}
	s := testServer(t, sy, &fakeRepo{}, newFakePipeline())

	w := doJSON(s, http.MethodPost, "/api/synthesize", `{"atomIds":[3,1,2],"userId":"u1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	want := "data: {\"content\":\"Hello\"}\n\n" +
		"data: {\"content\":\" World\"}\n\n" +
		"data: [DONE]\n\n"
	assert.Equal(t, want, w.Body.String())
	assert.Equal(t, "u1", sy.seenUser)
	assert.Equal(t, []int64{3, 1, 2}, sy.seenAtoms)
}

func TestSynthesizeEmptyCompletionStillSendsSentinel(t *testing.T) {
	sy := &fakeSynth{failAfter: -1}
	s := testServer(t, sy, &fakeRepo{}, newFakePipeline())

	w := doJSON(s, http.MethodPost, "/api/synthesize", `{"atomIds":[1,2,3]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data: [DONE]\n\n", w.Body.String())
}

func TestSynthesizeRejectsMissingAtomIDs(t *testing.T) {
	sy := &fakeSynth{failAfter: -1}
	s := testServer(t, sy, &fakeRepo{}, newFakePipeline())

	w := doJSON(s, http.MethodPost, "/api/synthesize", `{"userId":"u1"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid atomIds")
	assert.False(t, sy.wasInvoked)
}

func TestSynthesizeValidationErrorIsJSON(t *testing.T) {
	sy := &fakeSynth{err: &synth.ValidationError{Missing: []types.AtomKind{types.KindIdea}}, failAfter: -1}
	s := testServer(t, sy, &fakeRepo{}, newFakePipeline())

	w := doJSON(s, http.MethodPost, "/api/synthesize", `{"atomIds":[1,2]}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required atoms")
	assert.NotContains(t, w.Body.String(), "data:")
}

func TestSynthesizeQuotaErrorIsForbidden(t *testing.T) {
	sy := &fakeSynth{err: &synth.QuotaError{Count: 3, Limit: 3}, failAfter: -1}
	s := testServer(t, sy, &fakeRepo{}, newFakePipeline())

	w := doJSON(s, http.MethodPost, "/api/synthesize", `{"atomIds":[1,2,3],"userId":"u1"}`)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "(3/3)")
}

func TestSynthesizeMidStreamFailureOmitsSentinel(t *testing.T) {
	sy := &fakeSynth{
		fragments: []string{"partial", "never sent"},
		failAfter: 1,
		err:       errors.New("upstream reset"),
	}
	s := testServer(t, sy, &fakeRepo{}, newFakePipeline())

	w := doJSON(s, http.MethodPost, "/api/synthesize", `{"atomIds":[1,2,3]}`)

	assert.Contains(t, w.Body.String(), "data: {\"content\":\"partial\"}\n\n")
	assert.NotContains(t, w.Body.String(), "[DONE]")
}

func TestSynthesizeFailureAfterDeliverySendsSentinel(t *testing.T) {
	sy := &fakeSynth{
		fragments:    []string{"hello ", "world"},
		failAfter:    -1,
		err:          errors.New("report insert failed"),
		errAfterDone: true,
	}
	s := testServer(t, sy, &fakeRepo{}, newFakePipeline())

	w := doJSON(s, http.MethodPost, "/api/synthesize", `{"atomIds":[1,2,3],"userId":"u1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	want := "data: {\"content\":\"hello \"}\n\n" +
		"data: {\"content\":\"world\"}\n\n" +
		"data: [DONE]\n\n"
	assert.Equal(t, want, w.Body.String())
}

func TestCrawlerSettingsRoundTrip(t *testing.T) {
	repo := &fakeRepo{settings: types.CrawlerSettings{Enabled: true, Query: "cat:cs.AI", MaxResults: 5}}
	s := testServer(t, &fakeSynth{failAfter: -1}, repo, newFakePipeline())

	w := doJSON(s, http.MethodGet, "/api/crawler/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"query":"cat:cs.AI"`)

	w = doJSON(s, http.MethodPost, "/api/crawler/settings", `{"enabled":false,"query":"cat:cs.LG","max_results":10}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.putSettings, 1)
	assert.Equal(t, "cat:cs.LG", repo.putSettings[0].Query)
	assert.Equal(t, 10, repo.putSettings[0].MaxResults)
}

func TestCrawlerSettingsRejectsEmptyQuery(t *testing.T) {
	repo := &fakeRepo{}
	s := testServer(t, &fakeSynth{failAfter: -1}, repo, newFakePipeline())

	w := doJSON(s, http.MethodPost, "/api/crawler/settings", `{"enabled":true,"query":""}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.putSettings)
}

func TestTriggerEnqueuesBatch(t *testing.T) {
	pipe := newFakePipeline()
	s := testServer(t, &fakeSynth{failAfter: -1}, &fakeRepo{}, pipe)

	w := doJSON(s, http.MethodPost, "/api/crawler/trigger", `{"query":"cat:cs.AI","max":7}`)

	require.Equal(t, http.StatusOK, w.Code)
	call := pipe.wait(t)
	assert.Equal(t, "cat:cs.AI", call.query)
	assert.Equal(t, 7, call.max)
}

func TestTriggerRequiresQuery(t *testing.T) {
	s := testServer(t, &fakeSynth{failAfter: -1}, &fakeRepo{}, newFakePipeline())

	w := doJSON(s, http.MethodPost, "/api/crawler/trigger", `{"max":5}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Query required")
}

func multipartPDF(t *testing.T, field, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	fmt.Fprint(fw, "%PDF-1.4 fake content")
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadAcceptsPDFAndEnqueues(t *testing.T) {
	pipe := newFakePipeline()
	s := testServer(t, &fakeSynth{failAfter: -1}, &fakeRepo{}, pipe)

	body, contentType := multipartPDF(t, "file", "attention.pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "manual-")

	call := pipe.wait(t)
	assert.True(t, strings.HasPrefix(call.arxivID, "manual-"), "arxiv id %q", call.arxivID)
	assert.True(t, strings.HasPrefix(call.pdfURL, "http://localhost:8080/uploads/"), "pdf url %q", call.pdfURL)

	files, err := filepath.Glob(filepath.Join(s.UploadsDir, "*.pdf"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	s := testServer(t, &fakeSynth{failAfter: -1}, &fakeRepo{}, newFakePipeline())

	body, contentType := multipartPDF(t, "file", "notes.txt")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only PDF files are allowed")
}

func TestSearchAtoms(t *testing.T) {
	repo := &fakeRepo{atoms: []types.SourcedAtom{{
		Atom:       types.Atom{ID: 1, Kind: types.KindIdea, ContentEN: "memory as RL"},
		PaperTitle: "Memory-R1",
	}}}
	s := testServer(t, &fakeSynth{failAfter: -1}, repo, newFakePipeline())

	w := doJSON(s, http.MethodGet, "/api/atoms/search?q=memory", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Memory-R1")

	w = doJSON(s, http.MethodGet, "/api/atoms/search", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReport(t *testing.T) {
	repo := &fakeRepo{report: &types.SynthesisReport{ID: "r1", ResultMarkdown: "# Title"}}
	s := testServer(t, &fakeSynth{failAfter: -1}, repo, newFakePipeline())

	w := doJSON(s, http.MethodGet, "/api/reports/r1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# Title")
}

func TestGetReportNotFound(t *testing.T) {
	repo := &fakeRepo{reportErr: fmt.Errorf("report zzz: %w", store.ErrNotFound)}
	s := testServer(t, &fakeSynth{failAfter: -1}, repo, newFakePipeline())

	w := doJSON(s, http.MethodGet, "/api/reports/zzz", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}
