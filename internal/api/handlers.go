package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khanglvm/persona-search/internal/identity"
	"github.com/khanglvm/persona-search/internal/learning"
	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/storage"
)

type interactionRequest struct {
	UserID     string `json:"user_id"`
	QueryID    string `json:"query_id" validate:"required"`
	ClickedURL string `json:"clicked_url" validate:"required"`
	Rank       int    `json:"rank" validate:"gte=0"`
	ActionType string `json:"action_type" validate:"omitempty,oneof=click positive_feedback negative_feedback"`
}

type interactionResponse struct {
	InteractionID string `json:"interaction_id"`
	Status        string `json:"status"`
}

type keywordRequest struct {
	UserID  string `json:"user_id"`
	Keyword string `json:"keyword" validate:"required"`
}

type addExplicitRequest struct {
	UserID  string   `json:"user_id"`
	Keyword string   `json:"keyword" validate:"required"`
	Weight  *float64 `json:"weight" validate:"omitempty,gte=0,lte=1"`
}

type bulkUpdateRequest struct {
	UserID  string                 `json:"user_id"`
	Updates []profile.WeightUpdate `json:"updates" validate:"required,min=1,dive"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	resp, err := s.search.Search(r.Context(), userFromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	user := identity.EffectiveUser(userFromContext(r.Context()), req.UserID)
	event := learning.NewInteractionEvent(user, req.QueryID, req.ClickedURL, req.Rank, storage.ActionType(req.ActionType), s.now())
	if s.tracker != nil {
		s.tracker.TrackInteraction(event)
	}

	writeJSON(w, http.StatusOK, interactionResponse{InteractionID: event.ID, Status: "logged"})
}

func (s *Server) handleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	s.rebuildAndWrite(w, r, userFromContext(r.Context()))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	s.rebuildAndWrite(w, r, chi.URLParam(r, "user_id"))
}

func (s *Server) rebuildAndWrite(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := s.profiles.Rebuild(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAddExplicit(w http.ResponseWriter, r *http.Request) {
	var req addExplicitRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	weight := 1.0
	if req.Weight != nil {
		weight = *req.Weight
	}

	p, err := s.profiles.Promote(r.Context(), s.effectiveUser(r, req.UserID), req.Keyword, weight)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	p, err := s.profiles.UpdateExplicit(r.Context(), s.effectiveUser(r, req.UserID), req.Updates)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRemoveExplicit(w http.ResponseWriter, r *http.Request) {
	var req keywordRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	p, err := s.profiles.RemoveExplicit(r.Context(), s.effectiveUser(r, req.UserID), req.Keyword)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleExclude records the exclusion and rebuilds so the keyword leaves the
// implicit interests right away.
func (s *Server) handleExclude(w http.ResponseWriter, r *http.Request) {
	s.editAndRebuild(w, r, s.profiles.Exclude)
}

// handleRestore lifts an exclusion and rebuilds so the keyword can return.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	s.editAndRebuild(w, r, s.profiles.Unexclude)
}

func (s *Server) editAndRebuild(w http.ResponseWriter, r *http.Request, edit func(context.Context, string, string) (*storage.Profile, error)) {
	var req keywordRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	user := s.effectiveUser(r, req.UserID)
	if _, err := edit(r.Context(), user, req.Keyword); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.rebuildAndWrite(w, r, user)
}

func (s *Server) effectiveUser(r *http.Request, requested string) string {
	return identity.EffectiveUser(userFromContext(r.Context()), requested)
}
