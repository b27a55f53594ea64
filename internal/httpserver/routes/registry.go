package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Tryboy869/gitradar/internal/httpserver/deps"
)

// Registrar 注册一组路由; 需要依赖的中间件在 Registrar 内部用 r.With 挂载
type Registrar func(r chi.Router, d deps.Deps)

var registry []Registrar

// Register 在 init 中调用
func Register(reg Registrar) {
	registry = append(registry, reg)
}

// RegisterAll 由 httpserver.New 调用一次
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, reg := range registry {
		reg(r, d)
	}
}
