package internal

import (
	"net/http"

	"lbgateway/internal/balancer"
	"lbgateway/internal/config"
	"lbgateway/internal/gateway"
	"lbgateway/internal/handlers"
	"lbgateway/internal/middlewares"
)

// Router wires the public surface: GET /health, GET /config, and the
// /proxy/... forwarding pipeline, all behind the recovery/logging
// middleware chain.
type Router struct {
	handler http.Handler
}

// NewRouter builds the public router. pipeline serves everything under
// ProxyPrefix; mgr and lb back the two introspection endpoints.
func NewRouter(mgr *config.Manager, lb *balancer.LoadBalancer, pipeline *gateway.Pipeline) *Router {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health(mgr, lb))
	mux.HandleFunc("GET /config", handlers.Config(mgr))
	mux.Handle(gateway.ProxyPrefix+"/", pipeline)

	chain := middlewares.Recovery()(
		middlewares.CorrelationID(
			middlewares.RequestID(
				middlewares.RequestLog(
					middlewares.SecurityHeaders(mux),
				),
			),
		),
	)

	return &Router{handler: chain}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}
