package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/export"
	"github.com/sells-group/leadscore/internal/intake"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/pipeline"
	"github.com/sells-group/leadscore/internal/store"
)

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	RunID         string                  `json:"run_id"`
	Status        model.RunStatus         `json:"status"`
	TotalLeads    int                     `json:"total_leads"`
	QualityReport *model.QualityReport    `json:"quality_report,omitempty"`
	Validation    *model.ValidationResult `json:"validation,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

// LeadsPage is returned by GET /api/leads.
type LeadsPage struct {
	RunID      string             `json:"run_id,omitempty"`
	Leads      []model.ScoredLead `json:"leads"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.intake.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.intake.MaxBytes+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, intake.ErrTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close() //nolint:errcheck

	ds, err := intake.Read(r.Context(), header.Filename, file, s.intake)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, intake.ErrTooLarge), errors.Is(err, intake.ErrTooManyRows):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, intake.ErrUnsupportedFormat):
			status = http.StatusUnsupportedMediaType
		}
		zap.L().Warn("server: upload rejected", zap.String("file", header.Filename), zap.Error(err))
		writeError(w, status, err.Error())
		return
	}

	run := s.orch.NewRun()
	s.setLatest(run)
	result, runErr := run.Execute(r.Context(), ds)

	resp := UploadResponse{
		RunID:         result.RunID,
		Status:        result.Status,
		TotalLeads:    len(result.ScoredLeads),
		QualityReport: result.QualityReport,
		Validation:    result.Validation,
	}
	if runErr != nil {
		resp.Error = pipeline.Describe(runErr)
		status := http.StatusInternalServerError
		if pipeline.IsValidationFailure(runErr) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, resp)
		return
	}

	if err := s.store.Set(r.Context(), store.SnapshotOf(result)); err != nil {
		zap.L().Error("server: store leads", zap.String("run_id", result.RunID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store scored leads")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	page, err := positiveParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := positiveParam(r, "page_size", s.cfg.PageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.store.Get(r.Context())
	if err != nil {
		zap.L().Error("server: load leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load leads")
		return
	}

	resp := LeadsPage{Leads: []model.ScoredLead{}, Page: page, PageSize: pageSize}
	if snap != nil {
		resp.RunID = snap.RunID
		resp.Total = len(snap.Leads)
		resp.TotalPages = int(math.Ceil(float64(resp.Total) / float64(pageSize)))
		start := (page - 1) * pageSize
		if start < resp.Total {
			end := min(start+pageSize, resp.Total)
			resp.Leads = snap.Leads[start:end]
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		zap.L().Error("server: clear leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear leads")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	run := s.latestRun()
	if run == nil {
		writeError(w, http.StatusNotFound, "no pipeline run yet")
		return
	}
	writeJSON(w, http.StatusOK, run.Progress())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if snap.Report == nil {
		writeError(w, http.StatusNotFound, "no quality report stored")
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(pipeline.FormatReport(&model.PipelineResult{
			RunID:         snap.RunID,
			Status:        model.RunStatusSuccess,
			QualityReport: snap.Report,
		})))
		return
	}
	writeJSON(w, http.StatusOK, snap.Report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(snap.RunID, format)+`"`)
	if err := export.Write(w, format, snap.Leads); err != nil {
		zap.L().Error("server: export", zap.String("format", string(format)), zap.Error(err))
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := positiveParam(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := s.store.Runs(r.Context(), limit)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// snapshot loads the current snapshot, writing a 404 when none is stored.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*store.Snapshot, bool) {
	snap, err := s.store.Get(r.Context())
	if err != nil {
		zap.L().Error("server: load snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load leads")
		return nil, false
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no scored leads; upload a dataset first")
		return nil, false
	}
	return snap, true
}

func positiveParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}
