package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
	"github.com/ecoquest/ecoquest/internal/quest"
)

type HintResponse struct {
	Hint string `json:"hint"`
}

func handleCreateHunt(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateHuntRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if fields := validateRequest(req); fields != nil {
			writeValidationError(w, fields)
			return
		}

		h, err := svc.CreateHunt(r.Context(), quest.CreateHuntInput{
			UserID:   req.UserID,
			Theme:    ecoquest.Theme(req.Theme),
			Location: req.Location.location(),
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, h)
	}
}

func handleGetHunt(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := svc.GetHunt(r.Context(), chi.URLParam(r, "huntId"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

func handleActiveHunt(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := svc.ActiveHunt(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

func handleUserHunts(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hunts, err := svc.UserHunts(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, hunts)
	}
}

func handleCompleteStop(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteStopRequest
		if err := readOptionalJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if fields := validateRequest(req); fields != nil {
			writeValidationError(w, fields)
			return
		}

		res, err := svc.CompleteStop(r.Context(),
			chi.URLParam(r, "huntId"),
			chi.URLParam(r, "stopId"),
			ecoquest.Submission{Answer: req.Answer, PhotoData: req.PhotoData},
		)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleHint(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hint, err := svc.Hint(r.Context(), chi.URLParam(r, "huntId"), chi.URLParam(r, "stopId"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, HintResponse{Hint: hint})
	}
}

func handlePauseHunt(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := svc.Pause(r.Context(), chi.URLParam(r, "huntId"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

func handleResumeHunt(svc *quest.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := svc.Resume(r.Context(), chi.URLParam(r, "huntId"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}
