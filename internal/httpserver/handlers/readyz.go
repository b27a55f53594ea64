package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Tryboy869/gitradar/internal/httpserver/deps"
	"github.com/Tryboy869/gitradar/internal/logger"
)

const defaultPingTimeout = 2 * time.Second

type componentStatus struct {
	OK bool `json:"ok"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz 依次 ping 每个依赖, 任何一个失败返回 503; 错误细节只写日志
func Readyz(d deps.Deps) http.HandlerFunc {
	timeout := d.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	names := make([]string, 0, len(d.Pingers))
	for name := range d.Pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Components: make(map[string]componentStatus, len(names))}

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			err := d.Pingers[name].Ping(ctx)
			cancel()

			if err != nil {
				resp.Ready = false
				resp.Components[name] = componentStatus{OK: false}
				d.Logger.Warn("依赖未就绪", logger.String("component", name), logger.Error(err))
				continue
			}
			resp.Components[name] = componentStatus{OK: true}
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, status, resp)
	}
}
