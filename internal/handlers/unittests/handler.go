package unittests

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/plantguard-2025.net/internal/adapter/tablefile"
	"gitlab.com/plantguard-2025.net/internal/core/ports/primary"
	"gitlab.com/plantguard-2025.net/internal/core/services/unittest"
	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/handlers/response"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

const fileField = "file"

// UnitTestHandler handles unit test API requests
type UnitTestHandler struct {
	service        unittest.IUnitTestService
	logger         primary.Logger
	maxUploadBytes int64
}

// NewUnitTestHandler creates a new unit test handler
func NewUnitTestHandler(service unittest.IUnitTestService, maxUploadBytes int64, logger primary.Logger) *UnitTestHandler {
	return &UnitTestHandler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers the API routes for UnitTestHandler. Middlewares
// wrap every route of the subrouter.
func (h *UnitTestHandler) RegisterRoutes(router *mux.Router, middlewares ...mux.MiddlewareFunc) {
	api := router.PathPrefix("/api/unit-tests").Subrouter()
	api.Use(middlewares...)
	api.HandleFunc("/run", h.Run).Methods("POST")
	api.HandleFunc("/runs", h.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{runId}", h.GetRun).Methods("GET")
	api.HandleFunc("/targets", h.ListTargets).Methods("GET")
}

// Run executes a test table. The table comes either in a JSON body or as an
// uploaded file next to the descriptor form fields.
func (h *UnitTestHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	var (
		desc  domain.InvocationDescriptor
		table domain.Table
		err   error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		desc, table, err = h.readMultipart(r)
	} else {
		var req RunRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err == nil {
			desc, table = req.InvocationDescriptor, req.Table
		}
	}
	if err != nil {
		h.logger.Error("Failed to decode request", "error", err)
		response.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if desc.Root == "" || desc.ClassName == "" || desc.MethodName == "" {
		response.Error(w, "root, class_name and method_name are required", http.StatusBadRequest)
		return
	}

	report := h.service.Run(r.Context(), desc, table)
	response.WriteSuccess(w, report)
}

func (h *UnitTestHandler) readMultipart(r *http.Request) (domain.InvocationDescriptor, domain.Table, error) {
	var desc domain.InvocationDescriptor
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return desc, nil, err
	}

	desc.Root = r.FormValue("root")
	desc.ClassName = r.FormValue("class_name")
	desc.MethodName = r.FormValue("method_name")
	if v := r.FormValue("stop_on_failure"); v != "" {
		stop, err := strconv.ParseBool(v)
		if err != nil {
			return desc, nil, fmt.Errorf("stop_on_failure: %w", err)
		}
		desc.StopOnFailure = stop
	}
	if v := r.FormValue("mock_config"); v != "" {
		if err := json.Unmarshal([]byte(v), &desc.MockConfig); err != nil {
			return desc, nil, fmt.Errorf("mock_config: %w", err)
		}
	}

	file, header, err := r.FormFile(fileField)
	if err != nil {
		return desc, nil, fmt.Errorf("%s: %w", fileField, err)
	}
	defer file.Close()

	table, err := tablefile.Read(header.Filename, file)
	if err != nil {
		return desc, nil, err
	}
	return desc, table, nil
}

// GetRun handles run retrieval requests
func (h *UnitTestHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runIDStr := mux.Vars(r)["runId"]
	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		h.logger.Error("Invalid run ID", "id", runIDStr)
		response.Error(w, "Invalid run ID", http.StatusBadRequest)
		return
	}

	report, err := h.service.GetReport(r.Context(), runID)
	if err != nil {
		if errors.Is(err, errs.RunNotFound) {
			response.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get run", "error", err)
		response.Error(w, "Failed to get run", http.StatusInternalServerError)
		return
	}
	response.WriteSuccess(w, report)
}

// ListRuns handles run history requests. root, class_name, method_name and
// outcome narrow the history.
func (h *UnitTestHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RunFilter{
		Root:       q.Get("root"),
		ClassName:  q.Get("class_name"),
		MethodName: q.Get("method_name"),
		Outcome:    q.Get("outcome"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	switch filter.Outcome {
	case "", domain.OutcomePassed, domain.OutcomeFailed:
	default:
		response.Error(w, "outcome must be passed or failed", http.StatusBadRequest)
		return
	}

	reports, err := h.service.ListReports(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list runs", "error", err)
		response.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	response.WriteSuccess(w, ListReportsResponse{Runs: reports})
}

// ListTargets handles target catalog requests
func (h *UnitTestHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.service.ListTargets(r.Context(), r.URL.Query().Get("root"))
	if err != nil {
		if errs.KindOf(err) == errs.KindResolution {
			response.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to list targets", "error", err)
		response.Error(w, "Failed to list targets", http.StatusInternalServerError)
		return
	}
	if targets == nil {
		targets = []domain.TargetInfo{}
	}
	response.WriteSuccess(w, ListTargetsResponse{Targets: targets})
}
