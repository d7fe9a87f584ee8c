package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/karte/internal/models"
)

type generateRequest struct {
	DocumentType string `json:"document_type"`
	Topic        string `json:"topic"`
	DiseaseID    string `json:"disease_id,omitempty"`
	PatientID    string `json:"patient_id,omitempty"`
	TenantID     string `json:"tenant_id,omitempty"`
}

type documentResponse struct {
	DocumentID   string              `json:"document_id"`
	Content      string              `json:"content"`
	DocumentType models.DocumentType `json:"document_type"`
	Topic        string              `json:"topic"`
	CreatedAt    string              `json:"created_at"`
}

type patientRequest struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	TenantID  string `json:"tenant_id,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("generate request",
		zap.String("document_type", body.DocumentType),
		zap.String("tenant", body.TenantID),
	)
	res, err := s.svc.Generate(r.Context(), models.GenerationRequest{
		DocumentType: models.DocumentType(body.DocumentType),
		Topic:        body.Topic,
		Disease:      body.DiseaseID,
		PatientID:    body.PatientID,
		Tenant:       body.TenantID,
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Retrieve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, documentResponse{
		DocumentID:   doc.ID,
		Content:      doc.Content,
		DocumentType: doc.DocumentType,
		Topic:        doc.Topic,
		CreatedAt:    doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (s *Server) handleDocumentTypes(w http.ResponseWriter, r *http.Request) {
	cat, err := s.svc.Catalog(r.Context(), r.URL.Query().Get("tenant_id"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, cat)
}

func (s *Server) handleAddPatient(w http.ResponseWriter, r *http.Request) {
	var body patientRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := &models.Patient{ID: body.PatientID, Name: body.Name, Tenant: body.TenantID}
	if err := s.svc.AddPatient(r.Context(), p); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"patient_id": p.ID, "tenant_id": p.Tenant, "status": "created"})
}

func (s *Server) handleTenants(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tenants": s.svc.Tenants()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	s.logger.Info("reindex request", zap.String("tenant", tenant))
	stats, err := s.svc.Reindex(r.Context(), tenant)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps request error codes to HTTP statuses.
var statusFor = map[models.ErrorCode]int{
	models.CodeValidation:            http.StatusBadRequest,
	models.CodeInvalidScope:          http.StatusBadRequest,
	models.CodeInsufficientData:      http.StatusUnprocessableEntity,
	models.CodeComplianceViolation:   http.StatusUnprocessableEntity,
	models.CodeGenerationUnavailable: http.StatusServiceUnavailable,
	models.CodeNotFound:              http.StatusNotFound,
}

// respondDomainError writes the caller-safe message of a *models.Error. Anything else
// is logged and reported as an internal error without detail.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var e *models.Error
	if errors.As(err, &e) {
		if e.Code == models.CodeGenerationUnavailable {
			s.logger.Warn("generation unavailable", zap.Error(err))
		}
		s.respondJSON(w, statusFor[e.Code], map[string]string{"error": e.Message, "code": string(e.Code)})
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
