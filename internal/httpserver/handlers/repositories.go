package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/httpserver/deps"
	"github.com/Tryboy869/gitradar/internal/httpserver/mw"
	"github.com/Tryboy869/gitradar/internal/port"
)

type listResponse struct {
	Count        int                        `json:"count"`
	Repositories []*domain.RepositoryRecord `json:"repositories"`
}

func newListResponse(records []*domain.RepositoryRecord) listResponse {
	if records == nil {
		records = []*domain.RepositoryRecord{}
	}
	return listResponse{Count: len(records), Repositories: records}
}

// ListRepositories GET /api/repositories?language=&category=&min_stars=&q=&sort=&limit=&production_ready=
func ListRepositories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, msg := parseRepositoryQuery(r.URL.Query())
		if msg != "" {
			badRequest(w, msg)
			return
		}
		records, err := d.Catalog.Search(r.Context(), q)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newListResponse(records))
	}
}

// GetRepository GET /api/repositories/{externalID}
func GetRepository(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "externalID"), 10, 64)
		if err != nil || id <= 0 {
			badRequest(w, "externalID 必须是正整数")
			return
		}
		record, err := d.Catalog.Get(r.Context(), id)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

// Categories GET /api/categories
func Categories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := d.Catalog.Categories(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

// Recommendations GET /api/recommendations?limit=, 需要登录
func Recommendations(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseInt(r.URL.Query().Get("limit"))
		if !ok {
			badRequest(w, "limit 必须是整数")
			return
		}
		records, err := d.Catalog.Recommend(r.Context(), mw.UserID(r.Context()), limit)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newListResponse(records))
	}
}

// parseRepositoryQuery 只做类型转换, 取值范围由 CatalogService 校验
func parseRepositoryQuery(values url.Values) (port.RepositoryQuery, string) {
	q := port.RepositoryQuery{
		Language: strings.TrimSpace(values.Get("language")),
		Category: domain.Category(strings.TrimSpace(values.Get("category"))),
		Text:     strings.TrimSpace(values.Get("q")),
		Sort:     port.SortKey(strings.TrimSpace(values.Get("sort"))),
	}

	var ok bool
	if q.MinStars, ok = parseInt(values.Get("min_stars")); !ok {
		return q, "min_stars 必须是整数"
	}
	if q.Limit, ok = parseInt(values.Get("limit")); !ok {
		return q, "limit 必须是整数"
	}
	if v := values.Get("production_ready"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, "production_ready 必须是布尔值"
		}
		q.ProductionReady = b
	}
	return q, ""
}

// parseInt 空串视为 0
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
