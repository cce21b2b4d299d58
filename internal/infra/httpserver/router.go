package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	app "github.com/lexpacte/lexpacte/internal/application"
	appanalysis "github.com/lexpacte/lexpacte/internal/application/analysis"
	appchat "github.com/lexpacte/lexpacte/internal/application/chat"
	domai "github.com/lexpacte/lexpacte/internal/domain/ai"
	domain "github.com/lexpacte/lexpacte/internal/domain/analysis"
	domchat "github.com/lexpacte/lexpacte/internal/domain/chat"
	"github.com/lexpacte/lexpacte/internal/domain/faults"
	"github.com/lexpacte/lexpacte/internal/middleware"
	"github.com/lexpacte/lexpacte/internal/report"
)

// maxUploadBytes bounds the multipart form kept in memory.
const maxUploadBytes = 32 << 20

// Clause is one entry of the read-only clause library.
type Clause struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

type Router struct {
	analysisSvc *appanalysis.Service
	chatSvc     *appchat.Service
	artifacts   domain.ArtifactStore // optional, may be nil
	clauses     []Clause
	clock       app.Clock
}

func NewRouter(analysisSvc *appanalysis.Service, chatSvc *appchat.Service, artifacts domain.ArtifactStore, clauses []Clause, clock app.Clock, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{
		analysisSvc: analysisSvc,
		chatSvc:     chatSvc,
		artifacts:   artifacts,
		clauses:     clauses,
		clock:       clock,
	}
	mux := chi.NewRouter()

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyses", r.wrap(r.handleUpload))
		rt.Get("/analyses/{id}/status", r.wrap(r.handleStatus))
		rt.Get("/analyses/{id}", r.wrap(r.handleResult))
		rt.Post("/analyses/{id}/chat", r.wrap(r.handleChatSend))
		rt.Get("/analyses/{id}/chat", r.wrap(r.handleChatHistory))
		rt.Post("/analyses/{id}/report", r.wrap(r.handleReportExport))
		rt.Get("/analyses/{id}/contract.docx", r.wrap(r.handleContractExport))
		rt.Get("/analyses/{id}/faults", r.wrap(r.handleFaults))
		rt.Get("/history", r.wrap(r.handleHistory))
		rt.Get("/history/summary", r.wrap(r.handleHistorySummary))
		rt.Get("/history/{id}", r.wrap(r.handleHistoryGet))
		rt.Delete("/history/{id}", r.wrap(r.handleHistoryDelete))
		rt.Get("/clauses", r.wrap(r.handleClauses))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, domain.ErrRunNotFound), errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrNotCompleted):
				http.Error(w, "analysis not completed", http.StatusConflict)
			case errors.Is(err, domchat.ErrBusy):
				http.Error(w, "a reply is already being generated", http.StatusConflict)
			case errors.Is(err, domai.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func (r *Router) run(req *http.Request) (*appanalysis.Run, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRunID(id); err != nil {
		return nil, domain.ErrRunNotFound
	}
	run, err := r.analysisSvc.Get(domain.RunID(id))
	if err != nil {
		return nil, err
	}
	if run.UserID != middleware.GetUserFromContext(req.Context()) {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/analyses
// Multipart form: file (PDF), mode (buyer|seller), codes (repeatable).
// Non-PDF uploads are dropped without creating a run.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	userID := middleware.GetUserFromContext(req.Context())

	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return nil
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return nil
	}
	defer file.Close()

	mode := strings.ToLower(req.FormValue("mode"))
	if mode == "" {
		mode = string(domain.ModeBuyer)
	}
	if err := middleware.ValidateMode(mode); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	codes := req.Form["codes"]
	if err := middleware.ValidateCodes(codes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	if !middleware.IsPDF(header.Header.Get("Content-Type"), header.Filename) {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	// the filename comes straight from the client and ends up in exports
	// and history rows
	name := middleware.SanitizeString(header.Filename)

	run := r.analysisSvc.Create(userID, name, data, domain.Mode(mode), codes)

	// Run the pipeline in the background so it survives the upload
	// request's context.
	middleware.IncrementRuns()
	go func() {
		middleware.IncrementRunsRunning()
		defer middleware.DecrementRunsRunning()
		if err := r.analysisSvc.ExecuteUntilDone(run); err != nil {
			middleware.IncrementRunsFailed()
			slog.Error("background analysis failed", "run", run.ID, "error", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	return writeJSON(w, map[string]any{
		"id":       string(run.ID),
		"status":   string(domain.StatusUploading),
		"nom":      run.Name,
		"mode":     mode,
		"queuedAt": r.clock.Now(),
	})
}

// GET /v1/analyses/{id}/status
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	run, err := r.run(req)
	if err != nil {
		return err
	}
	return writeJSON(w, run.Snapshot())
}

// GET /v1/analyses/{id}
func (r *Router) handleResult(w http.ResponseWriter, req *http.Request) error {
	run, err := r.run(req)
	if err != nil {
		return err
	}
	res, err := run.Result()
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"id":               string(run.ID),
		"nom":              run.Name,
		"mode":             string(run.Mode),
		"report":           res.Report,
		"revised_contract": res.RevisedContract,
		"score":            res.Score,
		"alerts":           res.Alerts,
		"rows":             res.Rows,
	})
}

// POST /v1/analyses/{id}/chat
func (r *Router) handleChatSend(w http.ResponseWriter, req *http.Request) error {
	run, err := r.run(req)
	if err != nil {
		return err
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid chat body", http.StatusBadRequest)
		return nil
	}
	if strings.TrimSpace(body.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return nil
	}

	msg, err := r.chatSvc.Send(req.Context(), run, body.Message)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"reply": msg.Content})
}

// GET /v1/analyses/{id}/chat
func (r *Router) handleChatHistory(w http.ResponseWriter, req *http.Request) error {
	run, err := r.run(req)
	if err != nil {
		return err
	}
	history := r.chatSvc.History(run)
	if history == nil {
		history = []domchat.Message{}
	}
	return writeJSON(w, history)
}

// POST /v1/analyses/{id}/report
// The body is an optional report draft; omitted fields fall back to the
// values parsed from the analysis. Responds with the rendered PDF.
func (r *Router) handleReportExport(w http.ResponseWriter, req *http.Request) error {
	run, err := r.run(req)
	if err != nil {
		return err
	}
	parsed, err := run.Parsed()
	if err != nil {
		return err
	}

	var edit report.Draft
	if err := json.NewDecoder(req.Body).Decode(&edit); err != nil && err != io.EOF {
		http.Error(w, "invalid draft body", http.StatusBadRequest)
		return nil
	}
	draft := report.NewDraft(parsed, r.clock.Now()).Merge(edit)

	out, err := report.RenderPDF(draft)
	if err != nil {
		return err
	}

	filename := report.ReportFilename(r.clock.Now().Format("2006-01-02"))
	if url := r.archive(req, run, filename, out, "application/pdf"); url != "" {
		w.Header().Set("X-Archive-URL", url)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, err = w.Write(out)
	return err
}

// GET /v1/analyses/{id}/contract.docx
func (r *Router) handleContractExport(w http.ResponseWriter, req *http.Request) error {
	run, err := r.run(req)
	if err != nil {
		return err
	}
	res, err := run.Result()
	if err != nil {
		return err
	}

	out, err := report.RenderDOCX(res.RevisedContract)
	if err != nil {
		return err
	}

	filename := report.ContractFilename(string(run.Mode), r.clock.Now().Format("2006-01-02"))
	const docxType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	if url := r.archive(req, run, filename, out, docxType); url != "" {
		w.Header().Set("X-Archive-URL", url)
	}

	w.Header().Set("Content-Type", docxType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, err = w.Write(out)
	return err
}

// archive keeps a copy of the export in object storage, best effort.
// It returns the object URL, or "" when no store is configured or the
// upload failed.
func (r *Router) archive(req *http.Request, run *appanalysis.Run, filename string, data []byte, contentType string) string {
	if r.artifacts == nil {
		return ""
	}
	key := fmt.Sprintf("%s/%s/%s", run.UserID, run.ID, filename)
	url, err := r.artifacts.UploadBytes(req.Context(), key, data, contentType)
	if err != nil {
		slog.Warn("export archive failed", "run", run.ID, "key", key, "error", err)
		return ""
	}
	return url
}

// GET /v1/analyses/{id}/faults?limit=20
// The fault log outlives the in-memory run, so this reads the store
// directly instead of going through the registry.
func (r *Router) handleFaults(w http.ResponseWriter, req *http.Request) error {
	userID := middleware.GetUserFromContext(req.Context())
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRunID(id); err != nil {
		return domain.ErrRunNotFound
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.analysisSvc.FaultsByRun(req.Context(), userID, id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*faults.Fault{}
	}
	return writeJSON(w, list)
}

// GET /v1/history?limit=20
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	userID := middleware.GetUserFromContext(req.Context())
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	entries, err := r.analysisSvc.History(req.Context(), userID, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*domain.Entry{}
	}
	return writeJSON(w, entries)
}

// GET /v1/history/summary?days=30
func (r *Router) handleHistorySummary(w http.ResponseWriter, req *http.Request) error {
	userID := middleware.GetUserFromContext(req.Context())
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	summary, err := r.analysisSvc.Summary(req.Context(), userID, middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, summary)
}

// GET /v1/history/{id}
// Opens the stored entry; content is null when the payload cannot be
// decrypted under the current secret.
func (r *Router) handleHistoryGet(w http.ResponseWriter, req *http.Request) error {
	userID := middleware.GetUserFromContext(req.Context())
	id := chi.URLParam(req, "id")

	entry, content, err := r.analysisSvc.HistoryContent(req.Context(), userID, id)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"entry":   entry,
		"content": content,
	})
}

// DELETE /v1/history/{id}
func (r *Router) handleHistoryDelete(w http.ResponseWriter, req *http.Request) error {
	userID := middleware.GetUserFromContext(req.Context())
	id := chi.URLParam(req, "id")

	if err := r.analysisSvc.DeleteHistory(req.Context(), userID, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/clauses
func (r *Router) handleClauses(w http.ResponseWriter, req *http.Request) error {
	clauses := r.clauses
	if clauses == nil {
		clauses = []Clause{}
	}
	return writeJSON(w, clauses)
}
