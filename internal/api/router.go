package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pulsedash/pulsedash/internal/middleware"
	"github.com/pulsedash/pulsedash/internal/services"
)

const dateLayout = "2006-01-02"

// Router wires the HTTP surface to the services. Every route under /api
// except login requires a valid bearer token; mutations additionally require
// the admin role, enforced inside the services.
type Router struct {
	store        Store
	auth         *services.AuthService
	clusters     *services.ClusterService
	posts        *services.PostService
	responses    *services.ResponseService
	sentiment    *services.SentimentService
	dashboard    *services.DashboardService
	demographics *services.DemographicService
}

func NewRouter(store Store, boundaries services.BoundaryProvider, pageSize int) *Router {
	return &Router{
		store:        store,
		auth:         services.NewAuthService(store, middleware.SignToken),
		clusters:     services.NewClusterService(store),
		posts:        services.NewPostService(store),
		responses:    services.NewResponseService(store),
		sentiment:    services.NewSentimentService(store, pageSize),
		dashboard:    services.NewDashboardService(store),
		demographics: services.NewDemographicService(store, boundaries),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/login", rt.handleLogin)           // POST
	mux.HandleFunc("/api/auth/register", rt.handleRegister)     // POST (admin)
	mux.HandleFunc("/api/dashboard", rt.handleDashboard)        // GET
	mux.HandleFunc("/api/clusters/summary", rt.handleClusterSummary) // GET
	mux.HandleFunc("/api/clusters", rt.handleClusters)          // GET, POST
	mux.HandleFunc("/api/clusters/", rt.handleClusterScoped)    // GET/PUT/DELETE /api/clusters/{id}
	mux.HandleFunc("/api/posts", rt.handlePosts)                // GET, POST
	mux.HandleFunc("/api/posts/", rt.handlePostScoped)          // GET/PUT/DELETE /api/posts/{id}
	mux.HandleFunc("/api/responses/bulk", rt.handleBulkResponses) // POST
	mux.HandleFunc("/api/responses/", rt.handleResponseScoped)  // PUT/DELETE /api/responses/{id}
	mux.HandleFunc("/api/agegroups", rt.handleAgeGroups)        // GET, POST
	mux.HandleFunc("/api/agegroups/", rt.handleAgeGroupScoped)  // DELETE /api/agegroups/{id}
	mux.HandleFunc("/api/regions", rt.handleRegions)            // GET, POST
	mux.HandleFunc("/api/regions/", rt.handleRegionScoped)      // DELETE /api/regions/{id}
	mux.HandleFunc("/api/sentiment", rt.handleSentiment)        // GET
	mux.HandleFunc("/api/sentiment/export", rt.handleSentimentExport) // GET
	mux.HandleFunc("/api/demographics", rt.handleDemographics)  // GET
	mux.HandleFunc("/api/audit", rt.handleAudit)                // GET (admin)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	if se, ok := services.AsServiceError(err); ok {
		msg = se.Message
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusUnprocessableEntity
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		case services.ErrorBadGateway:
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// requireSession resolves the caller's session or writes a 401. Both roles
// pass; role checks happen in the services.
func requireSession(w http.ResponseWriter, r *http.Request) (services.Session, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return services.Session{}, false
	}
	return session, true
}

// parsePage reads the page query parameter. Anything non-numeric falls back
// to page 1; out-of-range values are clamped downstream.
func parsePage(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return n
}

func parsePostID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("post")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.NewInvalidError("post query parameter required")
	}
	return id, nil
}

// parseCriteria builds filter criteria from query parameters. Absent or
// empty parameters leave the dimension unfiltered.
func parseCriteria(r *http.Request) (services.Criteria, error) {
	q := r.URL.Query()
	var c services.Criteria
	if raw := q.Get("gender"); raw != "" {
		g, ok := services.ParseGender(raw)
		if !ok {
			return c, services.NewInvalidError("unknown gender code " + strconv.Quote(raw))
		}
		c.Gender = &g
	}
	if raw := q.Get("age_group"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c, services.NewInvalidError("age_group must be an id")
		}
		ref := services.RefFromID(id)
		c.AgeGroup = &ref
	}
	if raw := q.Get("region"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c, services.NewInvalidError("region must be an id")
		}
		ref := services.RefFromID(id)
		c.Region = &ref
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return c, services.NewInvalidError("from must be YYYY-MM-DD")
		}
		c.DateFrom = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return c, services.NewInvalidError("to must be YYYY-MM-DD")
		}
		c.DateTo = &t
	}
	return c, nil
}

func pathID(r *http.Request, prefix string) (int64, error) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	id, err := strconv.ParseInt(strings.Trim(rest, "/"), 10, 64)
	if err != nil || id < 0 {
		return 0, services.NewInvalidError("invalid id in path")
	}
	return id, nil
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json body"))
		return
	}
	res, err := rt.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "username": res.Username, "role": res.Role})
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json body"))
		return
	}
	u, err := rt.auth.Register(session, req.Username, req.Password, services.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"username": u.Username, "role": u.Role})
}

// GET /api/dashboard
func (rt *Router) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r); !ok {
		return
	}
	summary, err := rt.dashboard.Summary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /api/clusters/summary
func (rt *Router) handleClusterSummary(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r); !ok {
		return
	}
	rows, err := rt.dashboard.ClusterView()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": rows})
}

// GET, POST /api/clusters
func (rt *Router) handleClusters(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := rt.clusters.List()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"clusters": list})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, services.NewInvalidError("invalid json body"))
			return
		}
		created, err := rt.clusters.Create(session, req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET/PUT/DELETE /api/clusters/{id}
func (rt *Router) handleClusterScoped(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "/api/clusters/")
	if err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		c, err := rt.clusters.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, services.NewInvalidError("invalid json body"))
			return
		}
		updated, err := rt.clusters.Update(session, id, req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := rt.clusters.Delete(session, id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type postBody struct {
	ClusterID   int64  `json:"cluster_id"`
	PublishDate string `json:"publish_date"`
	Link        string `json:"link"`
	Message     string `json:"message"`
}

func (b postBody) toInput() (services.PostInput, error) {
	in := services.PostInput{ClusterID: b.ClusterID, Link: b.Link, Message: b.Message}
	if b.PublishDate != "" {
		t, err := time.Parse(dateLayout, b.PublishDate)
		if err != nil {
			return in, services.NewInvalidError("publish_date must be YYYY-MM-DD")
		}
		in.PublishDate = t
	}
	return in, nil
}

// GET, POST /api/posts
func (rt *Router) handlePosts(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		var clusterID *int64
		if raw := r.URL.Query().Get("cluster"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, services.NewInvalidError("cluster must be an id"))
				return
			}
			clusterID = &id
		}
		list, err := rt.posts.List(clusterID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": list})
	case http.MethodPost:
		var req postBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, services.NewInvalidError("invalid json body"))
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeError(w, err)
			return
		}
		created, err := rt.posts.Create(session, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET/PUT/DELETE /api/posts/{id}
func (rt *Router) handlePostScoped(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "/api/posts/")
	if err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := rt.posts.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var req postBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, services.NewInvalidError("invalid json body"))
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeError(w, err)
			return
		}
		updated, err := rt.posts.Update(session, id, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := rt.posts.Delete(session, id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type responseBody struct {
	Date       string `json:"date"`
	Message    string `json:"message"`
	Submitter  string `json:"submitter"`
	AgeGroupID int64  `json:"age_group_id"`
	Gender     string `json:"gender"`
	RegionID   int64  `json:"region_id"`
	Sentiment  string `json:"sentiment"`
}

func (b responseBody) toInput() (services.ResponseInput, error) {
	in := services.ResponseInput{
		Message:   b.Message,
		Submitter: b.Submitter,
		AgeGroup:  services.RefFromID(b.AgeGroupID),
		Gender:    services.Gender(b.Gender),
		Region:    services.RefFromID(b.RegionID),
		Sentiment: services.Sentiment(b.Sentiment),
	}
	if b.Date != "" {
		t, err := time.Parse(dateLayout, b.Date)
		if err != nil {
			return in, services.NewInvalidError("date must be YYYY-MM-DD")
		}
		in.Date = t
	}
	return in, nil
}

// POST /api/responses/bulk
// { post_id: n, responses: [{date, message, submitter, age_group_id, gender, region_id, sentiment}] }
func (rt *Router) handleBulkResponses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req struct {
		PostID    int64          `json:"post_id"`
		Responses []responseBody `json:"responses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid json body"))
		return
	}
	inputs := make([]services.ResponseInput, 0, len(req.Responses))
	for _, b := range req.Responses {
		in, err := b.toInput()
		if err != nil {
			writeError(w, err)
			return
		}
		inputs = append(inputs, in)
	}
	n, err := rt.responses.BulkAdd(session, req.PostID, inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "count": n})
}

// PUT/DELETE /api/responses/{id}
func (rt *Router) handleResponseScoped(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "/api/responses/")
	if err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req responseBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, services.NewInvalidError("invalid json body"))
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeError(w, err)
			return
		}
		updated, err := rt.responses.Edit(session, id, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := rt.responses.Delete(session, id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET, POST /api/agegroups
func (rt *Router) handleAgeGroups(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := rt.responses.ListAgeGroups()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"age_groups": list})
	case http.MethodPost:
		var req struct {
			Label string `json:"label"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, services.NewInvalidError("invalid json body"))
			return
		}
		created, err := rt.responses.CreateAgeGroup(session, req.Label)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// DELETE /api/agegroups/{id}
func (rt *Router) handleAgeGroupScoped(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := pathID(r, "/api/agegroups/")
	if err != nil {
		writeError(w, err)
		return
	}
	reassigned, err := rt.responses.DeleteAgeGroup(session, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reassigned": reassigned})
}

// GET, POST /api/regions
func (rt *Router) handleRegions(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := rt.responses.ListRegions()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"regions": list})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, services.NewInvalidError("invalid json body"))
			return
		}
		created, err := rt.responses.CreateRegion(session, req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// DELETE /api/regions/{id}
func (rt *Router) handleRegionScoped(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := pathID(r, "/api/regions/")
	if err != nil {
		writeError(w, err)
		return
	}
	reassigned, err := rt.responses.DeleteRegion(session, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reassigned": reassigned})
}

// GET /api/sentiment?post=&gender=&age_group=&region=&from=&to=&page=&mode=
// mode selects the payload: full (default), chart, page, count.
func (rt *Router) handleSentiment(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r); !ok {
		return
	}
	postID, err := parsePostID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := parseCriteria(r)
	if err != nil {
		writeError(w, err)
		return
	}
	switch r.URL.Query().Get("mode") {
	case "", "full":
		view, err := rt.sentiment.View(postID, c, parsePage(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case "chart":
		dist, err := rt.sentiment.ChartPayload(postID, c)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dist)
	case "page":
		page, err := rt.sentiment.PagePayload(postID, c, parsePage(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case "count":
		n, err := rt.sentiment.CountFiltered(postID, c)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"count": n})
	default:
		writeError(w, services.NewInvalidError("unsupported mode"))
	}
}

// GET /api/sentiment/export?post=&...filters
func (rt *Router) handleSentimentExport(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r); !ok {
		return
	}
	postID, err := parsePostID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := parseCriteria(r)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := rt.sentiment.ExportCSV(postID, c)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=sentiment.csv")
	_, _ = w.Write(b)
}

// GET /api/demographics?post=
func (rt *Router) handleDemographics(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r); !ok {
		return
	}
	postID, err := parsePostID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := rt.demographics.View(r.Context(), postID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GET /api/audit
func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if !session.IsAdmin() {
		writeError(w, services.NewForbiddenError("admin privileges required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": rt.store.ListAudit()})
}
