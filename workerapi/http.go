package workerapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/kedgaks/golos/protocol"
)

// Querier runs a worker API method against a consistent view of the chain
// state.
type Querier interface {
	QueryWorker(method string, params []byte) ([]byte, error)
}

type handler struct {
	q Querier
}

// NewRouter serves every method at GET /api/worker/{method}, with params
// taken from the URL query, and at POST with a JSON body.
func NewRouter(q Querier) http.Handler {
	h := &handler{q: q}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/worker", func(r chi.Router) {
		r.Get("/", h.methods)
		r.Get("/{method}", h.get)
		r.Post("/{method}", h.post)
	})
	return r
}

func (h *handler) methods(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Methods)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	params, err := paramsFromURL(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.run(w, chi.URLParam(r, "method"), params)
}

func (h *handler) post(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	h.run(w, chi.URLParam(r, "method"), body)
}

func (h *handler) run(w http.ResponseWriter, method string, params []byte) {
	res, err := h.q.QueryWorker(method, params)
	switch {
	case errors.Is(err, ErrUnknownMethod):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, protocol.ErrInvalidParameter):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(res)
}

// paramsFromURL turns query parameters into a JSON params object. select_*
// parameters are lists, given comma separated or repeated.
func paramsFromURL(values url.Values) ([]byte, error) {
	m := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		switch {
		case key == "limit":
			n, err := strconv.Atoi(vals[len(vals)-1])
			if err != nil {
				return nil, invalid("limit", "not a number")
			}
			m[key] = n
		case strings.HasPrefix(key, "select_"):
			var list []string
			for _, v := range vals {
				for _, item := range strings.Split(v, ",") {
					if item = strings.TrimSpace(item); item != "" {
						list = append(list, item)
					}
				}
			}
			m[key] = list
		default:
			m[key] = vals[len(vals)-1]
		}
	}
	return json.Marshal(m)
}

// ListenAndServe serves h on addr until ctx is done.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.Info("Worker API listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
