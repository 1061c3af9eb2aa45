package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/nagarikta/internal/kyc"
	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
	"github.com/MeKo-Tech/nagarikta/internal/version"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// ErrorResponse carries a request error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// VerifyResponse is returned by /v1/verify.
type VerifyResponse struct {
	RunID  string           `json:"run_id"`
	Checks kyc.Checks       `json:"checks"`
	Passed bool             `json:"passed"`
	Policy string           `json:"policy"`
	Result *pipeline.Result `json:"result"`
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Current().Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// extractHandler accepts a multipart "file" field or a raw image body.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	res, ok := s.extract(w, r, data)
	if !ok {
		return
	}
	s.save(r, kyc.NewRecord(res, r.FormValue("subject_id")))

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// verifyHandler extracts the card in "file" and checks it against the
// claim form fields.
func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	claims := kyc.Claims{
		SubjectID:     r.FormValue("subject_id"),
		FullName:      r.FormValue("full_name"),
		DateOfBirth:   r.FormValue("date_of_birth"),
		CitizenshipNo: r.FormValue("citizenship_no"),
	}
	if err := claims.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, ok := s.extract(w, r, data)
	if !ok {
		return
	}

	checks := kyc.CrossCheck(res, claims)
	passed := res.Success && s.policy(checks)
	recordChecks(checks)

	rec := kyc.NewRecord(res, claims.SubjectID)
	rec.Claims, rec.Checks, rec.Passed = &claims, &checks, &passed
	s.save(r, rec)

	writeJSON(w, http.StatusOK, VerifyResponse{
		RunID:  res.RunID,
		Checks: checks,
		Passed: passed,
		Policy: s.cfg.Policy,
		Result: res,
	})
}

func (s *Server) resultHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.store == nil {
		writeError(w, http.StatusNotFound, "result store disabled")
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, kyc.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		slog.Error("result lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "result lookup failed")
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := s.cfg.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(limit); err != nil {
			writeError(w, uploadStatus(err), fmt.Sprintf("invalid upload: %v", err))
			return nil, false
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return nil, false
		}
		defer f.Close()
		src = f
	}
	data, err := io.ReadAll(src)
	if err != nil {
		writeError(w, uploadStatus(err), fmt.Sprintf("read upload: %v", err))
		return nil, false
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return nil, false
	}
	uploadSizeBytes.Observe(float64(len(data)))
	return data, true
}

func uploadStatus(err error) int {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request, data []byte) (*pipeline.Result, bool) {
	img, err := pipeline.Decode(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	ctx, cancel := s.extractionContext(r.Context())
	defer cancel()
	res := s.ext.Stream(ctx, img, metricsObserver{})
	recordResult("http", res)
	return res, true
}

func (s *Server) save(r *http.Request, rec *kyc.Record) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(r.Context(), rec); err != nil {
		slog.Error("saving result failed", "id", rec.ID, "error", err)
	}
}

func recordChecks(c kyc.Checks) {
	for name, ok := range map[string]bool{
		"name":           c.NameMatch,
		"date_of_birth":  c.DOBMatch,
		"citizenship_no": c.CitizenshipNoMatch,
	} {
		result := "mismatch"
		if ok {
			result = "match"
		}
		kycChecksTotal.WithLabelValues(name, result).Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
