package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// AdminHandler 管理与监控接口
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", s.HandleMetrics)
	mux.HandleFunc("/players", s.HandlePlayers)
	mux.HandleFunc("/admin/config", s.HandleAdminConfig)
	mux.HandleFunc("/ws", s.HandleWS)
	return mux
}

type adminConfig struct {
	PlayerTTLMs  *int64 `json:"playerTTLMs,omitempty"`
	AutoRegister *bool  `json:"autoRegister,omitempty"`
}

// HandleAdminConfig 读取与热更新运行参数，修改在主循环中生效
// GET /admin/config   返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var cur adminConfig
		err := s.exec(r.Context(), func() {
			ttl := s.playerTTL.Milliseconds()
			auto := s.disp.AutoRegister
			cur = adminConfig{PlayerTTLMs: &ttl, AutoRegister: &auto}
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, cur)
	case http.MethodPost:
		var body adminConfig
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.PlayerTTLMs != nil && *body.PlayerTTLMs < 0 {
			http.Error(w, "playerTTLMs must not be negative", http.StatusBadRequest)
			return
		}
		err := s.exec(r.Context(), func() {
			if body.PlayerTTLMs != nil {
				s.playerTTL = time.Duration(*body.PlayerTTLMs) * time.Millisecond
				s.resetSweep()
			}
			if body.AutoRegister != nil {
				s.disp.AutoRegister = *body.AutoRegister
			}
			Log.Infof("config updated: ttl=%v autoRegister=%t", s.playerTTL, s.disp.AutoRegister)
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出运行指标
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"transport": s.cfg.Transport,
		"metrics":   s.metrics.Snapshot(),
	})
}

// HandlePlayers 输出注册表快照
func (s *Server) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	states, err := s.Players(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{"players": viewsOf(states)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
