package httpserver

import (
	"log"
	"net/http"

	"github.com/minhvt/invoice-dash-back/internal/http/handlers"
	"github.com/minhvt/invoice-dash-back/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/jobs", deps.API.Jobs)
	mux.HandleFunc("/v1/jobs/", deps.API.JobByID)
	mux.HandleFunc("/v1/files", deps.API.Files)
	mux.HandleFunc("/v1/files/", deps.API.FileByID)
	mux.HandleFunc("/v1/invoices/export", deps.API.ExportInvoices)
	mux.HandleFunc("/v1/invoices/", deps.API.InvoiceByID)
	mux.HandleFunc("/v1/events", deps.API.Events)
	mux.HandleFunc("/v1/parser/callback", deps.API.ParserCallback)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
