package http

import (
	"net/http"

	"github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
)

const maxSearchRequestSize = 64 << 10

// searchRequest - тело POST /search. Указатели отличают отсутствующее поле от нуля.
type searchRequest struct {
	Query      string   `json:"query"`
	NumResults *int     `json:"num_results"`
	Threshold  *float64 `json:"threshold"`
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []domain.SearchHit `json:"results"`
}

type SearchHandler struct {
	searchUsecase usecase.SearchUC
	cfg           *cfg.SearchCfg
	logger        logger.Logger
}

func NewSearchHandler(searchUsecase usecase.SearchUC, cfg *cfg.SearchCfg, logger logger.Logger) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase, cfg: cfg, logger: logger}
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, maxSearchRequestSize, &req); err != nil {
		h.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	numResults := h.cfg.DefaultNumResults
	if req.NumResults != nil {
		numResults = *req.NumResults
	}
	threshold := h.cfg.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	res, err := h.searchUsecase.Search(r.Context(), usecase.NewSearchReq(req.Query, numResults, threshold))
	if err != nil {
		code, _ := ToHTTPResponse(err)
		if code >= http.StatusInternalServerError {
			h.logger.Errorf(err, "search %q failed", req.Query)
		} else {
			h.logger.Warnf("%d %s", code, err.Error())
		}
		WriteError(w, err)
		return
	}

	results := res.Results
	if results == nil {
		results = []domain.SearchHit{}
	}
	WriteSuccess(w, http.StatusOK, searchResponse{Query: res.Query, Results: results})
}

func health(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "healthy"})
}
