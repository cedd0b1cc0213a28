package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/followup-todo/todo-sync-backend/internal/service"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.helloHandler)
	r.Get("/health", s.healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/send-code", s.sendCodeHandler)
		r.Post("/verify", s.verifyCodeHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/auth/sign-out", s.signOutHandler)
		r.Post("/import", s.importHandler)

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", s.listTodosHandler)
			r.Post("/", s.createTodoHandler)
			r.Post("/{id}/toggle", s.toggleTodoHandler)
			r.Delete("/{id}", s.deleteTodoHandler)
			r.Put("/{id}/follow-up", s.setFollowUpHandler)
			r.Put("/{id}/notes", s.updateNotesHandler)
			r.Get("/{id}/calendar.ics", s.calendarHandler)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", s.getProfileHandler)
			r.Put("/", s.updateProfileHandler)
		})

		r.Get("/subscribe", s.subscribeHandler)
	})

	return r
}

func (s *Server) helloHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Todo sync backend"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

type sendCodeRequest struct {
	Email string `json:"email"`
}

func (s *Server) sendCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.auth.SendCode(r.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrEmailRequired) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error dispatching login code: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to send login code")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Check your email for the login code"})
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) verifyCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.auth.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailRequired), errors.Is(err, service.ErrCodeRequired):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidCode):
			// Surfaced verbatim; the client stays on the code form.
			respondWithError(w, http.StatusUnauthorized, err.Error())
		default:
			log.Printf("Error verifying login code: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to verify login code")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// signOutHandler tears down every live subscription for the user. The
// client discards its token, todo cache and session-freshness marker; a
// fresh load lands back on the auth screen.
func (s *Server) signOutHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	s.hub.CloseUser(userID)
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message":          "Signed out",
		"sessionStartedAt": nil,
	})
}

func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	// Migration never fails the bootstrap: malformed legacy data or
	// backend trouble both come back as a skipped result.
	result := s.migration.ImportLegacy(r.Context(), userIDFrom(r), payload)
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todos.ListTodos(r.Context(), userIDFrom(r))
	if err != nil {
		log.Printf("Error calling ListTodos service: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve todos")
		return
	}
	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTodoRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&req)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		if errors.As(err, &syntaxError) {
			msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
			respondWithError(w, http.StatusBadRequest, msg)
		} else if errors.Is(err, io.ErrUnexpectedEOF) {
			respondWithError(w, http.StatusBadRequest, "Request body contains badly-formed JSON")
		} else if errors.As(err, &unmarshalTypeError) {
			msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
			respondWithError(w, http.StatusBadRequest, msg)
		} else if strings.HasPrefix(err.Error(), "json: unknown field ") {
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Request body contains unknown field %s", fieldName))
		} else if errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "Request body must not be empty")
		} else {
			log.Printf("Error decoding create todo request: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Error processing request")
		}
		return
	}

	todo, err := s.todos.CreateTodo(r.Context(), userIDFrom(r), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyText) {
			respondWithError(w, http.StatusBadRequest, err.Error())
		} else {
			log.Printf("Error calling CreateTodo service: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create todo")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, todo)
}

func (s *Server) toggleTodoHandler(w http.ResponseWriter, r *http.Request) {
	todo, err := s.todos.ToggleTodo(r.Context(), userIDFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondTodoError(w, err, "ToggleTodo")
		return
	}
	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.todos.DeleteTodo(r.Context(), userIDFrom(r), chi.URLParam(r, "id")); err != nil {
		s.respondTodoError(w, err, "DeleteTodo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setFollowUpHandler(w http.ResponseWriter, r *http.Request) {
	var req service.FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	todo, err := s.todos.SetFollowUp(r.Context(), userIDFrom(r), chi.URLParam(r, "id"), req)
	if err != nil {
		if errors.Is(err, service.ErrMissingDateTime) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondTodoError(w, err, "SetFollowUp")
		return
	}
	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) updateNotesHandler(w http.ResponseWriter, r *http.Request) {
	var req service.NotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	todo, err := s.todos.UpdateNotes(r.Context(), userIDFrom(r), chi.URLParam(r, "id"), req)
	if err != nil {
		if errors.Is(err, service.ErrNoFollowUp) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondTodoError(w, err, "UpdateNotes")
		return
	}
	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	filename, payload, err := s.todos.CalendarInvite(r.Context(), userIDFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrNoFollowUp) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondTodoError(w, err, "CalendarInvite")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.GetProfile(r.Context(), userIDFrom(r), emailFrom(r))
	if err != nil {
		log.Printf("Error calling GetProfile service: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := s.profiles.UpdateProfile(r.Context(), userIDFrom(r), emailFrom(r), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAccentColor) || errors.Is(err, service.ErrInvalidTheme) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error calling UpdateProfile service: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (s *Server) respondTodoError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, service.ErrTodoNotFound) {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	log.Printf("Error calling %s service: %v", op, err)
	respondWithError(w, http.StatusInternalServerError, "Failed to process todo")
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling JSON response: %v", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
