package server

import "net/http"

// Routes are the handlers a server mounts. Nil handlers are left out.
type Routes struct {
	Tiles        http.Handler
	Sample       http.Handler
	SampleStream http.Handler
	Status       http.Handler
	StatusStream http.Handler
	Metadata     http.Handler
}

// NewMux mounts routes under /tiles/, /sample, /sample/ws, /status,
// /status/stream and /metadata, plus /healthz.
func NewMux(routes Routes) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	mount := func(pattern string, h http.Handler) {
		if h != nil {
			mux.Handle(pattern, withCORS(h))
		}
	}
	mount("/tiles/", routes.Tiles)
	mount("/sample", routes.Sample)
	mount("/sample/ws", routes.SampleStream)
	mount("/status", routes.Status)
	mount("/status/stream", routes.StatusStream)
	mount("/metadata", routes.Metadata)
	return mux
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
