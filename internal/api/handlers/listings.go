// internal/api/handlers/listings.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ps-vitor/caixa-imoveis/internal/repositories"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

type ListingsHandler struct {
	repo repositories.PropertyRepository
	log  *logger.Logger
}

func NewListingsHandler(repo repositories.PropertyRepository, log *logger.Logger) *ListingsHandler {
	return &ListingsHandler{repo: repo, log: log}
}

func (h *ListingsHandler) HandleListings(w http.ResponseWriter, r *http.Request) {
	properties, err := h.repo.FindAll(r.Context())
	if err != nil {
		h.log.Error("erro ao buscar imóveis", "err", err)
		http.Error(w, "erro ao buscar imóveis", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(properties)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
