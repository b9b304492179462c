package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Clark-Hu/content-rating/internal/domain"
	"github.com/Clark-Hu/content-rating/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type contentCreateRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type contentListResponse struct {
	Items      []contentResponse `json:"items"`
	NextCursor *string           `json:"nextCursor,omitempty"`
}

type contentResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Score      *float64 `json:"score"`
	ScoreCount int64    `json:"scoreCount"`
	UserScore  *int     `json:"userScore,omitempty"`
}

type ratingRequest struct {
	Score int `json:"score"`
}

type ratingResponse struct {
	ContentID string `json:"contentId"`
	UserID    string `json:"userId"`
	Score     int    `json:"score"`
}

type scoreResponse struct {
	Score      *float64 `json:"score"`
	ScoreCount int64    `json:"scoreCount"`
}

// listParams carries the parsed query parameters for the content listing.
type listParams struct {
	filters repository.ContentListFilters
	userID  string
}

func (s *Server) handleListContents(w http.ResponseWriter, r *http.Request) {
	params, err := buildListParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Contents.List(r.Context(), params.filters)
	if err != nil {
		s.logger.Printf("list contents error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list contents")
		return
	}

	userScores := map[string]int{}
	if userID := resolveUserID(r, params); userID != "" && len(result.Items) > 0 {
		ids := make([]string, 0, len(result.Items))
		for _, content := range result.Items {
			ids = append(ids, content.ID)
		}
		userScores, err = s.repo.Ratings.ScoresForUser(r.Context(), userID, ids)
		if err != nil {
			s.logger.Printf("attach user scores error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list contents")
			return
		}
	}

	items := make([]contentResponse, 0, len(result.Items))
	for _, content := range result.Items {
		item := toContentResponse(content)
		if score, ok := userScores[content.ID]; ok {
			userScore := score
			item.UserScore = &userScore
		}
		items = append(items, item)
	}

	resp := contentListResponse{Items: items}
	if result.NextCursor != nil {
		resp.NextCursor = result.NextCursor
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func buildListParams(query url.Values) (listParams, error) {
	var params listParams

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		params.filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil {
			return params, fmt.Errorf("invalid limit value")
		}
		params.filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return params, fmt.Errorf("invalid cursor")
		}
		params.filters.Cursor = cursor
	}
	params.userID = strings.TrimSpace(query.Get("user_id"))
	return params, nil
}

// resolveUserID prefers the X-User-Id header and falls back to the user_id
// query parameter, mirroring how raters identify themselves on submission.
func resolveUserID(r *http.Request, params listParams) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-Id")); id != "" {
		return id
	}
	return params.userID
}

func (s *Server) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	var req contentCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required")
		return
	}

	content, err := s.repo.Contents.Create(r.Context(), repository.ContentCreateParams{
		Title: strings.TrimSpace(req.Title),
		Body:  req.Body,
	})
	if err != nil {
		s.logger.Printf("create content error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create content")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/contents/%s", url.PathEscape(content.ID)))
	s.respondJSON(w, http.StatusCreated, toContentResponse(content))
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	contentID, err := decodeContentIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if userID == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	if _, err := s.repo.Contents.GetByID(r.Context(), contentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("fetch content for rating failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process rating")
		return
	}

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	// The engine never mints identities; it only needs a stable row for the
	// supplied id, created here on the caller's behalf.
	if err := s.repo.Users.Ensure(r.Context(), userID); err != nil {
		s.logger.Printf("ensure user error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process rating")
		return
	}

	rating, created, err := s.repo.Ratings.Submit(r.Context(), repository.SubmitParams{
		UserID:    userID,
		ContentID: contentID,
		Score:     req.Score,
		ScoredAt:  time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidScore) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "score must be an integer between 0 and 5")
			return
		}
		s.logger.Printf("submit rating error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process rating")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, ratingResponse{
		ContentID: rating.ContentID,
		UserID:    rating.UserID,
		Score:     rating.Score,
	})
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	contentID, err := decodeContentIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	content, err := s.repo.Contents.GetByID(r.Context(), contentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("fetch content for score failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch score")
		return
	}

	s.respondJSON(w, http.StatusOK, scoreResponse{
		Score:      content.Score(),
		ScoreCount: content.ScoreCount,
	})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func toContentResponse(content domain.Content) contentResponse {
	return contentResponse{
		ID:         content.ID,
		Title:      content.Title,
		Score:      content.Score(),
		ScoreCount: content.ScoreCount,
	}
}

func decodeContentIDParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "contentID")
	if raw == "" {
		return "", fmt.Errorf("missing content id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid content id")
	}
	return id.String(), nil
}

func (s *Server) verifyBearer(header string) bool {
	if header == "" {
		return false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token == s.cfg.AuthToken
}
