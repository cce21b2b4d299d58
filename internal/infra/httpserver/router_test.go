package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalysis "github.com/lexpacte/lexpacte/internal/application/analysis"
	appchat "github.com/lexpacte/lexpacte/internal/application/chat"
	domai "github.com/lexpacte/lexpacte/internal/domain/ai"
	domain "github.com/lexpacte/lexpacte/internal/domain/analysis"
	"github.com/lexpacte/lexpacte/internal/domain/chat"
	"github.com/lexpacte/lexpacte/internal/domain/faults"
	"github.com/lexpacte/lexpacte/internal/middleware"
)

const testReport = `### Synthèse
Score de Risque Global : CRITIQUE

### Priorités de Négociation
- Clause de garantie déséquilibrée.

### Matrice détaillée
| Catégorie | Clause visée | Analyse juridique | Niveau | Recommandation |
|---|---|---|---|---|
| Garanties | Article 4 | Plafond trop bas. | CRITIQUE | Renégocier le plafond. |
`

type stubAI struct{}

func (stubAI) Analyze(ctx context.Context, text string, mode domain.Mode, codes []string) (string, error) {
	return testReport, nil
}

func (stubAI) Rewrite(ctx context.Context, text, report string, codes []string) (string, error) {
	return "## Contrat révisé\n\nArticle 1. Version corrigée.", nil
}

func (stubAI) Chat(ctx context.Context, system string, history []chat.Message, question string) (string, error) {
	return "Réponse de l'assistant.", nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	return "Article 1. Texte extrait.", nil
}

// blankExtractor yields no text, which makes the pipeline fail at the
// extract stage.
type blankExtractor struct{}

func (blankExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	return "", nil
}

// quotaChatAI completes the pipeline normally but reports quota
// exhaustion on every chat turn.
type quotaChatAI struct{ stubAI }

func (quotaChatAI) Chat(ctx context.Context, system string, history []chat.Message, question string) (string, error) {
	return "", fmt.Errorf("%w: upstream throttled", domai.ErrQuotaExceeded)
}

type memFaults struct {
	mu   sync.Mutex
	list []*faults.Fault
}

func (m *memFaults) Save(ctx context.Context, f *faults.Fault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.list = append(m.list, &cp)
	return nil
}

func (m *memFaults) ListByRun(ctx context.Context, userID, runID string, limit int) ([]*faults.Fault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*faults.Fault
	for _, f := range m.list {
		if f.UserID == userID && f.RunID == runID {
			out = append(out, f)
		}
	}
	return out, nil
}

type memArtifacts struct {
	mu   sync.Mutex
	keys []string
}

func (m *memArtifacts) UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "https://archive.test/" + key, nil
}

type memRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.Entry
}

func newMemRepo() *memRepo { return &memRepo{entries: map[string]*domain.Entry{}} }

func (m *memRepo) Save(ctx context.Context, e *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *memRepo) Get(ctx context.Context, userID, id string) (*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok && e.UserID == userID {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrRunNotFound
}

func (m *memRepo) List(ctx context.Context, userID string, limit int) ([]*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Entry
	for _, e := range m.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *memRepo) Summary(ctx context.Context, userID string, sinceDays int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{"total": 0}
	for _, e := range m.entries {
		if e.UserID == userID {
			out[e.Score]++
			out["total"]++
		}
	}
	return out, nil
}

type plainSealer struct{}

func (plainSealer) Seal(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func (plainSealer) Open(ct string, v any) bool {
	return json.Unmarshal([]byte(ct), v) == nil
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// serverDeps overrides individual collaborators; zero fields get the
// default stubs.
type serverDeps struct {
	ai        domai.Client
	extractor domain.TextExtractor
	faults    faults.Repository
	artifacts domain.ArtifactStore
}

func newServerWith(t *testing.T, d serverDeps) (http.Handler, *memRepo) {
	t.Helper()
	if d.ai == nil {
		d.ai = stubAI{}
	}
	if d.extractor == nil {
		d.extractor = stubExtractor{}
	}
	repo := newMemRepo()
	analysisSvc := &appanalysis.Service{
		Runs:      appanalysis.NewRegistry(),
		Repo:      repo,
		Faults:    d.faults,
		AI:        d.ai,
		Extractor: d.extractor,
		Sealer:    plainSealer{},
		Clock:     wallClock{},
	}
	chatSvc := &appchat.Service{AI: d.ai, ContextLimit: 12000}
	clauses := []Clause{{ID: "force-majeure", Category: "Exécution", Title: "Force majeure", Text: "..."}}

	handler := NewRouter(analysisSvc, chatSvc, d.artifacts, clauses, wallClock{}, nil)
	keys := map[string]string{"alice": "k-alice", "bob": "k-bob"}
	return middleware.APIKeyAuth(keys)(handler), repo
}

func newTestServer(t *testing.T) (http.Handler, *memRepo) {
	t.Helper()
	return newServerWith(t, serverDeps{})
}

func doRequest(t *testing.T, h http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer k-alice")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, filename, fileType, mode string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", fileType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)

	require.NoError(t, mw.WriteField("mode", mode))
	require.NoError(t, mw.WriteField("codes", "Code civil"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadAndWait(t *testing.T, h http.Handler) string {
	t.Helper()
	body, ct := multipartUpload(t, "cession.pdf", "application/pdf", "buyer")
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "uploading", created.Status)

	require.Eventually(t, func() bool {
		rec := doRequest(t, h, http.MethodGet, "/v1/analyses/"+created.ID+"/status", nil, "")
		var view struct {
			Status string `json:"status"`
		}
		if json.Unmarshal(rec.Body.Bytes(), &view) != nil {
			return false
		}
		return view.Status == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	return created.ID
}

func TestUploadNonPDFIsIgnored(t *testing.T) {
	h, repo := newTestServer(t)

	body, ct := multipartUpload(t, "photo.png", "image/png", "buyer")
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses", body, ct)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, repo.entries)
}

func TestUploadInvalidModeRejected(t *testing.T) {
	h, _ := newTestServer(t)

	body, ct := multipartUpload(t, "cession.pdf", "application/pdf", "arbiter")
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadFilenameIsSanitized(t *testing.T) {
	h, _ := newTestServer(t)

	// declared type makes it a PDF even though the padded name fails the
	// extension check
	body, ct := multipartUpload(t, "  cession.pdf", "application/pdf", "buyer")
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		Nom string `json:"nom"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "cession.pdf", created.Nom)
}

func TestUploadRunsPipelineToCompletion(t *testing.T) {
	h, repo := newTestServer(t)
	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodGet, "/v1/analyses/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Report          string   `json:"report"`
		RevisedContract string   `json:"revised_contract"`
		Score           string   `json:"score"`
		Alerts          []string `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "CRITIQUE", res.Score)
	assert.Contains(t, res.Report, "Matrice détaillée")
	assert.NotEmpty(t, res.RevisedContract)
	assert.Len(t, res.Alerts, 1)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.entries, 1)
	for _, e := range repo.entries {
		assert.Equal(t, "alice", e.UserID)
		assert.Equal(t, "CRITIQUE", e.Score)
	}
}

func TestStatusUnknownRun(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/v1/analyses/missing/status", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultBeforeCompletionConflicts(t *testing.T) {
	h, _ := newTestServer(t)

	body, ct := multipartUpload(t, "cession.pdf", "application/pdf", "buyer")
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// either still running (409) or already done (200); both are valid,
	// the point is no 5xx and no panic
	res := doRequest(t, h, http.MethodGet, "/v1/analyses/"+created.ID, nil, "")
	assert.Contains(t, []int{http.StatusOK, http.StatusConflict}, res.Code)
}

func TestChatRoundTrip(t *testing.T) {
	h, _ := newTestServer(t)
	id := uploadAndWait(t, h)

	payload := bytes.NewBufferString(`{"message":"Que dit l'article 4 ?"}`)
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses/"+id+"/chat", payload, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var reply struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "Réponse de l'assistant.", reply.Reply)

	rec = doRequest(t, h, http.MethodGet, "/v1/analyses/"+id+"/chat", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []chat.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, chat.RoleUser, history[0].Role)
	assert.Equal(t, chat.RoleAssistant, history[1].Role)
}

func TestChatEmptyMessageRejected(t *testing.T) {
	h, _ := newTestServer(t)
	id := uploadAndWait(t, h)

	payload := bytes.NewBufferString(`{"message":"  "}`)
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses/"+id+"/chat", payload, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	payload = bytes.NewBufferString(`{not json`)
	rec = doRequest(t, h, http.MethodPost, "/v1/analyses/"+id+"/chat", payload, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatQuotaExhaustionAnswers429(t *testing.T) {
	h, _ := newServerWith(t, serverDeps{ai: quotaChatAI{}})
	id := uploadAndWait(t, h)

	payload := bytes.NewBufferString(`{"message":"Que dit l'article 4 ?"}`)
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses/"+id+"/chat", payload, "application/json")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestReportExportReturnsPDF(t *testing.T) {
	h, _ := newTestServer(t)
	id := uploadAndWait(t, h)

	payload := bytes.NewBufferString(`{"client_name":"Cabinet Durand"}`)
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses/"+id+"/report", payload, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Rapport_Expert_Lexpacte_")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestContractExportReturnsDOCX(t *testing.T) {
	h, _ := newTestServer(t)
	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodGet, "/v1/analyses/"+id+"/contract.docx", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Contrat_Revise_buyer_")
	// DOCX is a zip archive
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestExportsArchiveAndExposeObjectURL(t *testing.T) {
	store := &memArtifacts{}
	h, _ := newServerWith(t, serverDeps{artifacts: store})
	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodPost, "/v1/analyses/"+id+"/report", bytes.NewBufferString(`{}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	url := rec.Header().Get("X-Archive-URL")
	require.NotEmpty(t, url)
	assert.Contains(t, url, "alice/"+id+"/Rapport_Expert_Lexpacte_")

	rec = doRequest(t, h, http.MethodGet, "/v1/analyses/"+id+"/contract.docx", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("X-Archive-URL"), "Contrat_Revise_buyer_")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.keys, 2)
}

func TestExportsWithoutStoreCarryNoArchiveURL(t *testing.T) {
	h, _ := newTestServer(t)
	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodPost, "/v1/analyses/"+id+"/report", bytes.NewBufferString(`{}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Archive-URL"))
}

func TestFaultsEndpointListsPipelineFaults(t *testing.T) {
	fr := &memFaults{}
	h, _ := newServerWith(t, serverDeps{extractor: blankExtractor{}, faults: fr})

	body, ct := multipartUpload(t, "vide.pdf", "application/pdf", "buyer")
	rec := doRequest(t, h, http.MethodPost, "/v1/analyses", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	require.Eventually(t, func() bool {
		rec := doRequest(t, h, http.MethodGet, "/v1/analyses/"+created.ID+"/status", nil, "")
		var view struct {
			Status string `json:"status"`
		}
		return json.Unmarshal(rec.Body.Bytes(), &view) == nil && view.Status == "failed"
	}, 5*time.Second, 10*time.Millisecond)

	rec = doRequest(t, h, http.MethodGet, "/v1/analyses/"+created.ID+"/faults", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []faults.Fault
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "extract", list[0].Stage)
	assert.Equal(t, created.ID, list[0].RunID)

	// other users see an empty log for the same run
	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/"+created.ID+"/faults", nil)
	req.Header.Set("Authorization", "Bearer k-bob")
	bobRec := httptest.NewRecorder()
	h.ServeHTTP(bobRec, req)
	require.Equal(t, http.StatusOK, bobRec.Code)
	require.NoError(t, json.Unmarshal(bobRec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestFaultsEndpointWithoutStore(t *testing.T) {
	h, _ := newTestServer(t)
	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodGet, "/v1/analyses/"+id+"/faults", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []faults.Fault
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestFaultsEndpointMalformedID(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/v1/analyses/not-a-uuid/faults", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	h, _ := newTestServer(t)
	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodGet, "/v1/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []domain.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Content, "sealed payload must not leak through the list")

	rec = doRequest(t, h, http.MethodGet, "/v1/history/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var opened struct {
		Content *domain.EntryContent `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	require.NotNil(t, opened.Content)
	assert.Contains(t, opened.Content.Report, "Score de Risque Global")

	rec = doRequest(t, h, http.MethodGet, "/v1/history/summary", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary["total"])

	rec = doRequest(t, h, http.MethodDelete, "/v1/history/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/v1/history", nil, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestClausesEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/v1/clauses", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var clauses []Clause
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clauses))
	require.Len(t, clauses, 1)
	assert.Equal(t, "force-majeure", clauses[0].ID)
}

func TestUnauthorizedWithoutKey(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRunsAreUserScoped(t *testing.T) {
	h, _ := newTestServer(t)
	id := uploadAndWait(t, h)

	// another authenticated user must not see alice's run
	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/"+id+"/status", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer k-bob")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
