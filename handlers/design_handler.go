package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"brandforgeAPI/internal/types/design"
	"brandforgeAPI/middleware"
	"brandforgeAPI/services"
)

// maxUploadBytes bounds one save request's multipart payload.
const maxUploadBytes = 64 << 20

type DesignHandler struct {
	designService *services.DesignService
}

func NewDesignHandler(designService *services.DesignService) *DesignHandler {
	return &DesignHandler{
		designService: designService,
	}
}

// SaveDesign accepts a multipart form: a "document" field carrying the
// design JSON plus binary parts keyed by element id or the reserved
// background key.
func (h *DesignHandler) SaveDesign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	var doc design.Document
	if err := json.Unmarshal([]byte(r.FormValue("document")), &doc); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid design document JSON")
		return
	}
	doc.UserID = clerkID

	files := make(map[string]services.UploadedFile)
	if r.MultipartForm != nil {
		for key, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			part, err := headers[0].Open()
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Unreadable uploaded file: "+key)
				return
			}
			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Unreadable uploaded file: "+key)
				return
			}
			files[key] = services.UploadedFile{
				Name:        headers[0].Filename,
				ContentType: headers[0].Header.Get("Content-Type"),
				Data:        data,
			}
		}
	}

	result, err := h.designService.SaveDesign(ctx, &services.SaveDesignRequest{
		Document: &doc,
		Files:    files,
	})
	if err != nil {
		if errors.Is(err, services.ErrDuplicateElementID) || errors.Is(err, services.ErrUnmatchedFile) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("SaveDesign failed for user %s: %v", clerkID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save design")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *DesignHandler) GetDesign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	doc, err := h.designService.GetDesign(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			respondWithError(w, http.StatusNotFound, "Design not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch design")
		return
	}

	respondWithJSON(w, http.StatusOK, doc)
}

func (h *DesignHandler) ListDesigns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	domainID := r.URL.Query().Get("domainId")
	if domainID == "" {
		respondWithError(w, http.StatusBadRequest, "Search query parameter 'domainId' is required")
		return
	}

	docs, err := h.designService.ListDesigns(ctx, domainID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list designs")
		return
	}
	if docs == nil {
		docs = []*design.Document{}
	}

	respondWithJSON(w, http.StatusOK, docs)
}

// DeleteDesign removes a document and cascades to its exclusively owned
// assets.
func (h *DesignHandler) DeleteDesign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.designService.DeleteDesign(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			respondWithError(w, http.StatusNotFound, "Design not found")
			return
		}
		log.Printf("DeleteDesign failed for user %s: %v", clerkID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete design")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *DesignHandler) ShareQr(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	qrResponse, err := h.designService.ShareQr(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			respondWithError(w, http.StatusNotFound, "Design not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, qrResponse)
}
