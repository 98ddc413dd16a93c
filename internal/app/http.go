package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"codex/api/internal/rbac"
	"codex/api/internal/search"
	"codex/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{"ok": status == "ready", "status": status, "checks": checks})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/summary" {
		counts, err := s.service.Summary(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"documents": counts.Documents,
			"pending":   counts.Pending,
			"flagged":   counts.Flagged,
			"featured":  counts.Featured,
		})
		return
	}

	segments := splitPath(r.URL.Path)
	if len(segments) < 2 || segments[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch segments[1] {
	case "systems":
		s.handleSystems(w, r, segments[2:])
	case "documents":
		s.handleDocuments(w, r, segments[2:])
	case "rankings":
		s.handleRankings(w, r)
	case "search":
		s.handleSearch(w, r)
	case "moderation":
		s.handleModerationStats(w, r, segments[2:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSystems(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		if err := s.service.RequireRole(r.Context(), actorID(r), rbac.ActionAdmin); err != nil {
			s.fail(w, err)
			return
		}
		var body struct {
			ID                 string                      `json:"id"`
			Name               string                      `json:"name"`
			Status             string                      `json:"status"`
			MaintenanceMessage string                      `json:"maintenanceMessage"`
			SortOrder          int                         `json:"sortOrder"`
			Schemas            map[string]store.TypeSchema `json:"schemas"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		system, err := s.service.Registry.Register(r.Context(), store.GameSystem{
			ID:                 body.ID,
			Name:               body.Name,
			Status:             body.Status,
			MaintenanceMessage: body.MaintenanceMessage,
			SortOrder:          body.SortOrder,
			Schemas:            body.Schemas,
		})
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, system)

	case len(rest) == 0 && r.Method == http.MethodGet:
		var (
			systems any
			err     error
		)
		if r.URL.Query().Get("all") == "true" {
			systems, err = s.service.Registry.ListAll(r.Context())
		} else {
			systems, err = s.service.Registry.ListActive(r.Context())
		}
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"systems": systems})

	case len(rest) == 1 && r.Method == http.MethodGet:
		system, err := s.service.Registry.Get(r.Context(), rest[0])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, system)

	case len(rest) == 2 && rest[1] == "maintenance" && r.Method == http.MethodPost:
		if err := s.service.RequireRole(r.Context(), actorID(r), rbac.ActionAdmin); err != nil {
			s.fail(w, err)
			return
		}
		var body struct {
			Message string `json:"message"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		system, err := s.service.Registry.SetMaintenance(r.Context(), rest[0], body.Message)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, system)

	case len(rest) == 2 && rest[1] == "maintenance" && r.Method == http.MethodDelete:
		if err := s.service.RequireRole(r.Context(), actorID(r), rbac.ActionAdmin); err != nil {
			s.fail(w, err)
			return
		}
		system, err := s.service.Registry.ClearMaintenance(r.Context(), rest[0])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, system)

	case len(rest) == 2 && rest[1] == "types" && r.Method == http.MethodGet:
		rows, err := s.service.Matrix.List(r.Context(), rest[0])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"types": rows})

	case len(rest) == 2 && rest[1] == "types" && r.Method == http.MethodPost:
		if err := s.service.RequireRole(r.Context(), actorID(r), rbac.ActionAdmin); err != nil {
			s.fail(w, err)
			return
		}
		if err := s.service.Matrix.InitializeSystem(r.Context(), rest[0]); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"initialized": true})

	case len(rest) == 3 && rest[1] == "types" && rest[2] == "order" && r.Method == http.MethodPut:
		if err := s.service.RequireRole(r.Context(), actorID(r), rbac.ActionAdmin); err != nil {
			s.fail(w, err)
			return
		}
		var body struct {
			Types []string `json:"types"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		orders := make([]store.TypeOrder, 0, len(body.Types))
		for i, documentType := range body.Types {
			orders = append(orders, store.TypeOrder{DocumentType: documentType, SortOrder: i})
		}
		if err := s.service.Matrix.Reorder(r.Context(), rest[0], orders); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reordered": true})

	case len(rest) == 3 && rest[1] == "types" && r.Method == http.MethodPut:
		if err := s.service.RequireRole(r.Context(), actorID(r), rbac.ActionAdmin); err != nil {
			s.fail(w, err)
			return
		}
		var body struct {
			Active bool `json:"active"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Matrix.Toggle(r.Context(), rest[2], rest[0], body.Active)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"row": result.Row, "changed": result.Changed})

	case len(rest) == 3 && rest[1] == "availability" && r.Method == http.MethodGet:
		availability, err := s.service.Matrix.IsAvailable(r.Context(), rest[2], rest[0])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availability)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleDocuments(w http.ResponseWriter, r *http.Request, rest []string) {
	actor := actorID(r)

	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var body CreateDocumentInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if actor == "" {
			doc, claimKey, err := s.service.Documents.CreateAnonymous(r.Context(), body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"document": doc, "claimKey": claimKey})
			return
		}
		body.OwnerID = actor
		doc, err := s.service.Documents.Create(r.Context(), body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"document": doc})

	case len(rest) == 0 && r.Method == http.MethodGet:
		filters := documentFilters(r)
		var viewer *string
		if actor != "" {
			viewer = &actor
		}
		documents, err := s.service.Documents.FindVisibleTo(r.Context(), viewer, filters)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": documents})

	case len(rest) == 1 && rest[0] == "featured" && r.Method == http.MethodGet:
		documents, err := s.service.Documents.FindFeatured(r.Context(), r.URL.Query().Get("system"), r.URL.Query().Get("type"))
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": documents})

	case len(rest) == 1 && rest[0] == "queue" && r.Method == http.MethodGet:
		documents, err := s.service.Documents.FindPendingModeration(r.Context(), actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": documents})

	case len(rest) == 1 && r.Method == http.MethodGet:
		var viewer *string
		if actor != "" {
			viewer = &actor
		}
		doc, err := s.service.Documents.Get(r.Context(), rest[0], viewer)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 1 && r.Method == http.MethodPut:
		var body struct {
			Title   string          `json:"title"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		doc, err := s.service.Documents.UpdateContent(r.Context(), rest[0], actor, body.Title, body.Payload)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.Documents.Delete(r.Context(), rest[0], actor); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	case len(rest) == 2 && rest[1] == "claim" && r.Method == http.MethodPost:
		var body struct {
			ClaimKey string `json:"claimKey"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		doc, err := s.service.Documents.Claim(r.Context(), rest[0], body.ClaimKey, actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 2 && rest[1] == "publish" && r.Method == http.MethodPost:
		doc, err := s.service.Documents.Publish(r.Context(), rest[0], actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 2 && rest[1] == "visibility" && r.Method == http.MethodPut:
		var body struct {
			Visibility string `json:"visibility"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		doc, err := s.service.ChangeVisibility(r.Context(), rest[0], body.Visibility, actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 2 && rest[1] == "moderate" && r.Method == http.MethodPost:
		var body struct {
			Status string `json:"status"`
			Reason string `json:"reason"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		doc, err := s.service.Moderate(r.Context(), rest[0], body.Status, actor, body.Reason)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 2 && rest[1] == "feature" && r.Method == http.MethodPost:
		var body struct {
			Justification string `json:"justification"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		doc, err := s.service.Documents.Feature(r.Context(), rest[0], actor, body.Justification)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 2 && rest[1] == "feature" && r.Method == http.MethodDelete:
		doc, err := s.service.Documents.Unfeature(r.Context(), rest[0], actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 2 && rest[1] == "archive" && r.Method == http.MethodPost:
		doc, err := s.service.Documents.Archive(r.Context(), rest[0], actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 2 && rest[1] == "restore" && r.Method == http.MethodPost:
		doc, err := s.service.Documents.Restore(r.Context(), rest[0], actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case len(rest) == 2 && rest[1] == "report" && r.Method == http.MethodPost:
		var body struct {
			Reason string `json:"reason"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Report(r.Context(), rest[0], actor, body.Reason)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)

	case len(rest) == 2 && rest[1] == "log" && r.Method == http.MethodGet:
		entries, err := s.service.Moderation.History(r.Context(), rest[0], actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})

	case len(rest) == 2 && rest[1] == "revisions" && r.Method == http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		history, err := s.service.RevisionHistory(r.Context(), rest[0], actor, limit)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"revisions": history})

	case len(rest) == 3 && rest[1] == "revisions" && r.Method == http.MethodGet:
		payload, err := s.service.RevisionPayload(r.Context(), rest[0], rest[2], actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hash": rest[2], "payload": json.RawMessage(payload)})

	case len(rest) == 2 && rest[1] == "export" && r.Method == http.MethodPost:
		ref, err := s.service.ExportDocument(r.Context(), rest[0], actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"artifact": ref})

	case len(rest) == 2 && rest[1] == "votes" && r.Method == http.MethodPost:
		s.handleCastVote(w, r, rest[0], actor, false)

	case len(rest) == 2 && rest[1] == "votes" && r.Method == http.MethodPut:
		s.handleCastVote(w, r, rest[0], actor, true)

	case len(rest) == 2 && rest[1] == "votes" && r.Method == http.MethodDelete:
		voter := r.URL.Query().Get("voter")
		if voter == "" {
			voter = actor
		}
		if err := s.service.Votes.Delete(r.Context(), rest[0], voter, actor); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	case len(rest) == 2 && rest[1] == "votes" && r.Method == http.MethodGet:
		aggregate, err := s.service.Votes.Aggregate(r.Context(), rest[0])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, aggregate)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleCastVote(w http.ResponseWriter, r *http.Request, documentID, actor string, revise bool) {
	var body CastVoteInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	body.DocumentID = documentID
	body.VoterID = actor

	var (
		vote any
		err  error
	)
	if revise {
		vote, err = s.service.Votes.Revise(r.Context(), body)
	} else {
		vote, err = s.service.Votes.Cast(r.Context(), body)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	response := s.service.SearchDocuments(search.Query{
		Text:         query.Get("q"),
		GameSystemID: query.Get("system"),
		DocumentType: query.Get("type"),
		Limit:        limit,
		Offset:       offset,
	})
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	query := r.URL.Query()
	criterion := query.Get("criterion")
	if criterion == "" {
		criterion = "overall"
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	ranked, err := s.service.Votes.Rank(r.Context(), criterion, query.Get("system"), query.Get("type"), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"criterion": criterion, "documents": ranked})
}

func (s *HTTPServer) handleModerationStats(w http.ResponseWriter, r *http.Request, rest []string) {
	if r.Method != http.MethodGet || len(rest) != 2 || rest[0] != "stats" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	actor := actorID(r)
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	window := time.Duration(days) * 24 * time.Hour

	switch rest[1] {
	case "actions":
		stats, err := s.service.Moderation.StatsByAction(r.Context(), actor, window)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"actions": stats})
	case "moderators":
		stats, err := s.service.Moderation.StatsByModerator(r.Context(), actor, window)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"moderators": stats})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("http: %v", err)
	}
	writeError(w, status, code, message, details)
}

func documentFilters(r *http.Request) store.DocumentFilters {
	query := r.URL.Query()
	return store.DocumentFilters{
		GameSystemID: query.Get("system"),
		DocumentType: query.Get("type"),
		OwnerID:      query.Get("owner"),
	}
}

// actorID returns the caller's identity as asserted by the gateway in front
// of this service. Authentication itself happens upstream.
func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Actor-ID"))
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Actor-ID, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus(), domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrImmutableLog) {
		return http.StatusConflict, "LOG_IMMUTABLE", "Moderation log entries cannot be changed", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
