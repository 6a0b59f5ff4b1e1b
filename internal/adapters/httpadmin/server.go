package httpadmin

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jose-valero/guild-mod-bot/internal/app/service"
)

// Server expone el plano de control mínimo por HTTP: health y recarga de
// behaviour configuration sin reiniciar el bot.
type Server struct {
	secret     string
	behaviours *service.BehaviourService
	mux        *http.ServeMux
}

func New(secret string, behaviours *service.BehaviourService) *Server {
	s := &Server{secret: secret, behaviours: behaviours, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/admin/reload-behaviours", s.handleReload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.secret == "" || r.Header.Get("X-Admin-Secret") != s.secret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := s.behaviours.Load(ctx); err != nil {
		// la config previa queda intacta; se reporta la key ofensora
		log.Printf("reload behaviours: %v", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	_, _ = w.Write([]byte(`{"reloaded":true}`))
}

func (s *Server) Start(addr string) {
	log.Printf("admin http escuchando en %s", addr)
	if err := http.ListenAndServe(addr, s.mux); err != nil {
		log.Printf("admin http: %v", err)
	}
}
