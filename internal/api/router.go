package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/plantops/engine/internal/api/handlers"
	mw "github.com/plantops/engine/internal/api/middleware"
	"github.com/plantops/engine/internal/editor"
	"github.com/plantops/engine/internal/services"
	"github.com/plantops/engine/internal/simulation"
)

type Dependencies struct {
	HMACSecret     []byte
	RateLimitRPS   float64
	RateLimitBurst int

	DB       handlers.Pinger
	Diagrams services.DiagramService
	Sessions *simulation.Registry
	Editor   *editor.Editor
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	if dep.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	}

	// Health endpoints
	hh := handlers.NewHealthHandler(dep.DB)
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	fh := handlers.NewFoldersHandler(dep.Diagrams)
	dh := handlers.NewDiagramsHandler(dep.Diagrams)
	sh := handlers.NewSessionsHandler(dep.Sessions, dep.Diagrams, dep.Editor)
	st := handlers.NewStreamHandler(dep.Sessions)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(mw.Auth(dep.HMACSecret))

		// The stream hijacks the connection, so it stays out of the
		// compressed group.
		api.Get("/sessions/{sessionID}/stream", st.Stream)

		api.Group(func(rest chi.Router) {
			rest.Use(chimid.Compress(5))

			// Folders
			rest.Route("/folders", func(fr chi.Router) {
				fr.Get("/", fh.List)
				fr.Post("/", fh.Create)
				fr.Put("/{id}", fh.Rename)
				fr.Delete("/{id}", fh.Delete)
				fr.Post("/{id}/diagrams", fh.CreateDiagram)
			})

			// Diagrams
			rest.Route("/diagrams", func(dr chi.Router) {
				dr.Put("/", dh.Save)
				dr.Get("/{id}", dh.Get)
				dr.Delete("/{id}", dh.Delete)
			})

			// Sessions
			rest.Route("/sessions", func(sr chi.Router) {
				sr.Post("/", sh.Create)
				sr.Route("/{sessionID}", func(s chi.Router) {
					s.Get("/", sh.Get)
					s.Delete("/", sh.Delete)
					s.Post("/load/{diagramID}", sh.Load)
					s.Post("/save", sh.Save)
					s.Post("/start", sh.Start)
					s.Post("/stop", sh.Stop)
					s.Post("/edit", sh.EditMode)

					s.Post("/nodes", sh.AddNode)
					s.Delete("/nodes/{nodeID}", sh.RemoveNode)
					s.Put("/nodes/{nodeID}/position", sh.MoveNode)
					s.Put("/nodes/{nodeID}/config", sh.Configure)
					s.Put("/nodes/{nodeID}/force", sh.Force)

					s.Post("/edges", sh.Connect)
					s.Delete("/edges/{edgeID}", sh.Disconnect)
				})
			})
		})
	})

	return r
}
