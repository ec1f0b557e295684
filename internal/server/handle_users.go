package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecoquest/ecoquest/internal/quest"
)

func handleCreateDemoUser(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DemoUserRequest
		if err := readOptionalJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if fields := validateRequest(req); fields != nil {
			writeValidationError(w, fields)
			return
		}

		u, err := svc.CreateDemoUser(r.Context(), req.Name)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func handleProfile(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Profile(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleAchievements(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Achievements(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleUpdateLocation(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LocationRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if fields := validateRequest(req); fields != nil {
			writeValidationError(w, fields)
			return
		}

		u, err := svc.UpdateLocation(r.Context(), chi.URLParam(r, "userId"), req.location())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
