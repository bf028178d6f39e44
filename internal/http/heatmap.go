package httpx

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/splax/heatlens/internal/service/telemetry"
	"github.com/splax/heatlens/internal/ws"
)

func (r *Router) handleEstimate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		URL  string `json:"url"`
		HTML string `json:"html"`
	}
	switch err := readJSON(w, req, r.settings.MaxHTMLBytes, &payload); {
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "html payload too large")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.HTML) == "" {
		writeError(w, http.StatusBadRequest, "html is required")
		return
	}
	start := time.Now()
	result := r.estimator.EstimateHTML(payload.HTML, strings.TrimSpace(payload.URL))
	r.recordEstimate(time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleSnapshot(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	q := req.URL.Query()
	period, err := parsePeriod(q, "start", "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sel := telemetry.Selection{
		SiteID: q.Get("site_id"),
		Path:   q.Get("path"),
		Device: q.Get("device"),
		Period: period,
	}
	if !r.authorizeSite(w, req, strings.TrimSpace(sel.SiteID)) {
		return
	}
	snap, err := r.telemetry.Snapshot(req.Context(), sel)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	r.recordAggregate(snap.TotalPV)
	writeJSON(w, http.StatusOK, snap)
}

func (r *Router) handleCompare(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	q := req.URL.Query()
	a, err := requirePeriod(q, "start_a", "end_a")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := requirePeriod(q, "start_b", "end_b")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	siteID := strings.TrimSpace(q.Get("site_id"))
	if !r.authorizeSite(w, req, siteID) {
		return
	}
	cmp, err := r.telemetry.Compare(req.Context(), siteID, q.Get("path"), q.Get("device"), a, b)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	r.recordAggregate(cmp.PeriodA.TotalPV)
	r.recordAggregate(cmp.PeriodB.TotalPV)
	writeJSON(w, http.StatusOK, cmp)
}

func (r *Router) handleInsights(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	q := req.URL.Query()
	days, err := parseDays(q.Get("days"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	siteID := strings.TrimSpace(q.Get("site_id"))
	if !r.authorizeSite(w, req, siteID) {
		return
	}
	report, err := r.telemetry.Insights(req.Context(), siteID, days)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// streamSite validates the site of a live insight request.
func (r *Router) streamSite(w http.ResponseWriter, req *http.Request) (string, bool) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return "", false
	}
	if r.hub == nil || r.stream == nil {
		writeError(w, http.StatusServiceUnavailable, "insight stream unavailable")
		return "", false
	}
	siteID := strings.TrimSpace(req.URL.Query().Get("site_id"))
	if siteID == "" {
		writeError(w, http.StatusBadRequest, "site_id query parameter required")
		return "", false
	}
	if !r.authorizeSite(w, req, siteID) {
		return "", false
	}
	return siteID, true
}

func (r *Router) handleInsightsWS(w http.ResponseWriter, req *http.Request) {
	siteID, ok := r.streamSite(w, req)
	if !ok {
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	if payload, err := r.stream.Payload(req.Context(), siteID); err != nil {
		r.logger.Warn("initial insight payload failed", "site_id", siteID, "error", err)
	} else if err := client.Send(payload); err != nil {
		return
	}
	r.hub.Register(siteID, client)
	go func() {
		defer func() {
			r.hub.Unregister(siteID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleInsightsSSE(w http.ResponseWriter, req *http.Request) {
	siteID, ok := r.streamSite(w, req)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	if payload, err := r.stream.Payload(req.Context(), siteID); err != nil {
		r.logger.Warn("initial insight payload failed", "site_id", siteID, "error", err)
	} else if err := client.Send(payload); err != nil {
		return
	}
	r.hub.Register(siteID, client)
	defer func() {
		r.hub.Unregister(siteID, client)
		client.Close()
	}()

	ticker := time.NewTicker(r.settings.HeartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	if telemetry.IsValidationError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	r.logger.Error("telemetry query failed", "error", err, "path", req.URL.Path)
	writeError(w, http.StatusInternalServerError, "telemetry query failed")
}
