// Package health reports dependency reachability and which secrets are set.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/httpx"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// DepStatus carries reachability only; failure detail goes to the log.
type DepStatus struct {
	Connected bool `json:"connected"`
}

type Report struct {
	OK   bool                 `json:"ok"`
	Env  map[string]bool      `json:"env"`
	Deps map[string]DepStatus `json:"deps"`
	TS   time.Time            `json:"ts"`
}

// Handler serves the health report. Env holds only presence flags, never values.
type Handler struct {
	deps map[string]Pinger
	env  map[string]bool
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewHandler(deps map[string]Pinger, env map[string]bool, log logrus.FieldLogger) *Handler {
	return &Handler{deps: deps, env: env, log: log, now: time.Now}
}

// Check pings every dependency concurrently.
func (h *Handler) Check(ctx context.Context) Report {
	rep := Report{OK: true, Env: h.env, Deps: make(map[string]DepStatus, len(h.deps)), TS: h.now().UTC()}

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()

			st := DepStatus{Connected: true}
			if err := p.Ping(pctx); err != nil {
				st = DepStatus{}
				h.log.WithError(err).WithField("dependency", name).Warn("health check failed")
			}
			mu.Lock()
			rep.Deps[name] = st
			if !st.Connected {
				rep.OK = false
			}
			mu.Unlock()
		}(name, h.deps[name])
	}
	wg.Wait()
	return rep
}

// ServeHTTP writes the report; 503 when any dependency is down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rep := h.Check(r.Context())
	status := http.StatusOK
	if !rep.OK {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, rep)
}
