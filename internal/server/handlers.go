package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pantrytrack/receipt-parser/internal/common"
)

const maxOCRTextBytes = 64 * 1024

type parseRequest struct {
	OCRText      string `json:"ocr_text"`
	HouseholdID  string `json:"household_id"`
	MerchantHint string `json:"merchant_hint,omitempty"`
	Save         bool   `json:"save,omitempty"`
}

type parseResponse struct {
	Success bool        `json:"success"`
	ParseID string      `json:"parse_id,omitempty"`
	Result  interface{} `json:"result"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOCRTextBytes+4096)).Decode(&req); err != nil {
		common.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	v := common.NewValidator()
	v.Field("ocr_text", req.OCRText, common.Required, common.MaxLen(maxOCRTextBytes))
	v.Field("household_id", req.HouseholdID, common.Required)
	if v.HasErrors() {
		common.WriteJSONError(w, http.StatusBadRequest, v.ErrorMessage())
		return
	}

	ctx := common.WithHouseholdID(r.Context(), req.HouseholdID)
	res := s.parser.Parse(ctx, req.OCRText, req.MerchantHint)

	resp := parseResponse{Success: res.Success, Result: res}
	if req.Save && s.store != nil {
		id, err := s.store.SaveResult(ctx, req.HouseholdID, res)
		if err != nil {
			s.logger.Error("server.parse.save_failed",
				"req_id", common.RequestIDFromContext(ctx),
				"error", err,
			)
			common.WriteJSONError(w, http.StatusInternalServerError, "parse succeeded but could not be stored")
			return
		}
		resp.ParseID = id.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		common.WriteJSONError(w, http.StatusNotImplemented, "persistence is not configured")
		return
	}

	householdID := r.URL.Query().Get("household_id")
	v := common.NewValidator()
	v.Field("household_id", householdID, common.Required)
	if v.HasErrors() {
		common.WriteJSONError(w, http.StatusBadRequest, v.ErrorMessage())
		return
	}

	from, err := parseDateParam(r, "from")
	if err != nil {
		common.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		common.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	parses, err := s.store.ListResults(r.Context(), householdID, from, to)
	if err != nil {
		s.logger.Error("server.list.failed",
			"req_id", common.RequestIDFromContext(r.Context()),
			"error", err,
		)
		common.WriteJSONError(w, common.StatusForError(err), "could not list parses")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"parses":  parses,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		common.WriteJSONError(w, http.StatusNotImplemented, "export is not configured")
		return
	}

	householdID := r.URL.Query().Get("household_id")
	v := common.NewValidator()
	v.Field("household_id", householdID, common.Required)
	if v.HasErrors() {
		common.WriteJSONError(w, http.StatusBadRequest, v.ErrorMessage())
		return
	}

	from, err := parseDateParam(r, "from")
	if err != nil {
		common.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		common.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.exporter.ExportItemsXLSX(r.Context(), householdID, from, to)
	if err != nil {
		s.logger.Error("server.export.failed",
			"req_id", common.RequestIDFromContext(r.Context()),
			"error", err,
		)
		common.WriteJSONError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := fmt.Sprintf("receipt-items-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", name, raw)
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
