package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vepbot/internal/auth"
	"vepbot/internal/config"
	"vepbot/internal/contacts"
	"vepbot/internal/http/handler"
	mw "vepbot/internal/http/middleware"
	"vepbot/internal/jobs"
	"vepbot/internal/templates"
)

// NewRouter mounts the operator API. runner executes manual scheduler passes.
func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, runner handler.Runner, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc, AllowRegistration: cfg.AllowRegistration}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	jobRepo := &jobs.Repo{DB: db}
	jobH := &handler.JobHandler{Jobs: jobRepo, Loc: cfg.Scheduler.Location()}
	tmplH := &handler.TemplateHandler{Store: &templates.Repo{DB: db}}
	contactH := &handler.ContactHandler{Store: &contacts.Repo{DB: db}}
	schedH := &handler.SchedulerHandler{Runner: runner, Stats: jobRepo, Log: log}
	me := &handler.MeHandler{}

	trigger := mw.NewRateLimiter(cfg.TriggerRPS, 1)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/me", me.Me)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobH.Create)
			r.Get("/", jobH.List)
			r.Get("/{id}", jobH.Get)
			r.Delete("/{id}", jobH.Delete)
			r.Get("/{id}/deliveries", jobH.Deliveries)
		})

		r.Get("/templates", tmplH.List)
		r.Put("/templates/{category}", tmplH.Put)

		r.Post("/contacts", contactH.Create)
		r.Get("/contacts", contactH.List)

		r.With(trigger.Middleware).Post("/scheduler/run", schedH.Run)
		r.Get("/scheduler/stats", schedH.Counts)
	})

	return r
}
