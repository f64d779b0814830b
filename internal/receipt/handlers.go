package receipt

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/scouter-app/scouter/internal/imageprep"
	"github.com/scouter-app/scouter/internal/structure"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// handleHealth reports server liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleListRecords returns all records for the caller's organization
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListRecords(orgIDFromContext(r.Context()))
	if err != nil {
		slog.Error("Error listing records", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// uploadRequest is the JSON upload body: base64 image data, optionally as a
// data URI, plus client-side file metadata.
type uploadRequest struct {
	ImageData   string `json:"image_data"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// handleUploadReceipt accepts a receipt image as either a multipart form
// ("file" field) or a JSON body with base64 image data, stores a record and
// kicks off background processing.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	var (
		data        []byte
		filename    string
		contentType string
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req uploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		decoded, err := imageprep.DecodeInput(req.ImageData)
		if err != nil {
			slog.Error("Error decoding image data", "error", err)
			jsonError(w, "Invalid base64 image data", http.StatusBadRequest)
			return
		}
		data = decoded
		filename = req.Filename
		contentType = req.ContentType
	} else {
		// Parse multipart form (max 50MB to handle high-resolution phone photos)
		maxFormSize := int64(50 << 20) // 50MB
		if err := r.ParseMultipartForm(maxFormSize); err != nil {
			slog.Error("Error parsing multipart form", "error", err)
			errorMsg := "Error parsing form"
			if err.Error() == "http: request body too large" {
				errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
			}
			jsonError(w, errorMsg, http.StatusBadRequest)
			return
		}

		f, header, err := r.FormFile("file")
		if err != nil {
			slog.Error("Error getting file from form", "error", err)
			errorMsg := "No file provided"
			if err.Error() == "http: no such file" {
				errorMsg = "No file was selected. Please choose a file to upload."
			}
			jsonError(w, errorMsg, http.StatusBadRequest)
			return
		}
		defer f.Close()

		if header.Size > maxFormSize {
			jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
			return
		}

		data, err = io.ReadAll(f)
		if err != nil {
			slog.Error("Error reading file data", "error", err, "filename", header.Filename)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		filename = header.Filename
		contentType = header.Header.Get("Content-Type")
	}

	if filename == "" {
		filename = "receipt.jpg"
	}
	contentType = normalizeContentType(contentType, filename)

	record, err := s.service.ProcessReceipt(r.Context(), orgIDFromContext(r.Context()), filename, data, contentType)
	if err != nil {
		slog.Error("Error accepting receipt", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(record); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// normalizeContentType fills in a missing or generic content type from the
// filename extension. HEIC/HEIF types are preserved so conversion can
// detect them.
func normalizeContentType(contentType, filename string) string {
	if contentType == "" || contentType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// handleGetRecord returns a single record
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Record ID required", http.StatusBadRequest)
		return
	}
	record, err := s.service.GetRecord(orgIDFromContext(r.Context()), id)
	if err != nil {
		corsError(w, "Record not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetProgress returns the live processing view for a record
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Record ID required", http.StatusBadRequest)
		return
	}
	progress, err := s.service.Progress(orgIDFromContext(r.Context()), id)
	if err != nil {
		corsError(w, "Progress not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(progress); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleVerifyRecord marks a record as user-verified, with optional
// corrected receipt data in the body.
func (s *Server) handleVerifyRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Record ID required", http.StatusBadRequest)
		return
	}

	var req struct {
		Receipt *structure.ReceiptData `json:"receipt_data"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			corsError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	record, err := s.service.VerifyRecord(orgIDFromContext(r.Context()), id, req.Receipt)
	if err != nil {
		slog.Error("Error verifying record", "record_id", id, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleDeleteRecord deletes a record
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Record ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteRecord(orgIDFromContext(r.Context()), id); err != nil {
		corsError(w, "Record not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
