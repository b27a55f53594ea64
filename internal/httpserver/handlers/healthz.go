package handlers

import (
	"net/http"

	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string             `json:"status"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Version       string             `json:"version,omitempty"`
	Scan          *domain.ScanStatus `json:"scan,omitempty"`
}

// Healthz 进程存活即返回 200, 附带最近一次扫描的状态
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
		}
		if d.Scan != nil {
			status := d.Scan.Status(r.Context())
			resp.Scan = &status
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, resp)
	}
}
