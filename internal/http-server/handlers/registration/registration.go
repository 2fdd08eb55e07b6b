package registration

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"sortec/entity"
	"sortec/lib/api/response"
	"sortec/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Submit(ctx context.Context, candidate *entity.Participant) (*entity.Registration, error)
	Approve(ctx context.Context, id string) (*entity.Decision, error)
	Deny(ctx context.Context, id string) (*entity.Decision, error)
	Update(ctx context.Context, id string, update *entity.ParticipantUpdate) (*entity.Registration, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) iter.Seq2[*entity.Registration, error]
	GetById(ctx context.Context, id string) (*entity.Registration, error)
	GetByCode(ctx context.Context, code string) (*entity.Registration, error)
	Count(ctx context.Context) (int64, error)
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.registration"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// List returns all registrations, optionally filtered with ?status=.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var filter entity.Status
		if s := r.URL.Query().Get("status"); s != "" {
			status, err := entity.ParseStatus(s)
			if err != nil {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Fail("Invalid status filter", entity.ValidationError{
					Fields: []entity.FieldError{{Field: "status", Rule: "oneof"}},
				}))
				return
			}
			filter = status
		}

		registrations := make([]*entity.Registration, 0)
		for reg, err := range handler.List(r.Context()) {
			if err != nil {
				failed(w, r, logger, err)
				return
			}
			if filter != "" && reg.Status != filter {
				continue
			}
			registrations = append(registrations, reg)
		}
		logger.With(slog.Int("count", len(registrations))).Debug("registrations listed")

		render.JSON(w, r, response.Ok(registrations))
	}
}

func Count(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		count, err := handler.Count(r.Context())
		if err != nil {
			failed(w, r, logger, err)
			return
		}
		render.JSON(w, r, response.Ok(map[string]int64{"count": count}))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := requestLogger(log, r).With(slog.String("id", id))

		reg, err := handler.GetById(r.Context(), id)
		if err != nil {
			failed(w, r, logger, err)
			return
		}
		if reg == nil {
			notFound(w, r, fmt.Sprintf("Registration %s not found", id))
			return
		}
		render.JSON(w, r, response.Ok(reg))
	}
}

func GetByCode(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		logger := requestLogger(log, r).With(slog.String("contest_code", code))

		reg, err := handler.GetByCode(r.Context(), code)
		if err != nil {
			failed(w, r, logger, err)
			return
		}
		if reg == nil {
			notFound(w, r, fmt.Sprintf("Registration with code %s not found", code))
			return
		}
		render.JSON(w, r, response.Ok(reg))
	}
}

// Create submits a new registration. Validation is left to the workflow so
// that every violated field is reported at once.
func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var candidate entity.Participant
		if err := render.DecodeJSON(r.Body, &candidate); err != nil {
			logger.Warn("decode request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		reg, err := handler.Submit(r.Context(), &candidate)
		if err != nil {
			failed(w, r, logger, err)
			return
		}
		logger.With(
			slog.String("id", reg.Id),
			slog.String("contest_code", reg.Code()),
		).Debug("registration created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(reg))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := requestLogger(log, r).With(slog.String("id", id))

		var update entity.ParticipantUpdate
		if err := render.DecodeJSON(r.Body, &update); err != nil {
			logger.Warn("decode request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		reg, err := handler.Update(r.Context(), id, &update)
		if err != nil {
			failed(w, r, logger, err)
			return
		}
		render.JSON(w, r, response.Ok(reg))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := requestLogger(log, r).With(slog.String("id", id))

		if err := handler.Remove(r.Context(), id); err != nil {
			failed(w, r, logger, err)
			return
		}
		render.NoContent(w, r)
	}
}

func Approve(log *slog.Logger, handler Core) http.HandlerFunc {
	return decide(log, handler.Approve)
}

func Deny(log *slog.Logger, handler Core) http.HandlerFunc {
	return decide(log, handler.Deny)
}

func decide(log *slog.Logger, fn func(context.Context, string) (*entity.Decision, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := requestLogger(log, r).With(slog.String("id", id))

		decision, err := fn(r.Context(), id)
		if err != nil {
			failed(w, r, logger, err)
			return
		}

		status, message := decisionStatus(decision)
		render.Status(r, status)
		render.JSON(w, r, response.Message(decision, message))
	}
}

func decisionStatus(d *entity.Decision) (int, string) {
	switch d.Outcome {
	case entity.OutcomeApplied:
		return http.StatusOK, fmt.Sprintf("Registration %s", d.Registration.Status)
	case entity.OutcomeAlreadyHandled:
		return http.StatusAlreadyReported, fmt.Sprintf("Registration already %s", d.Registration.Status)
	default:
		return http.StatusConflict, fmt.Sprintf("Registration is already %s", d.Registration.Status)
	}
}

// failed maps workflow errors to responses.
func failed(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *entity.ValidationError
	var aerr *entity.AllocationError
	var serr *entity.StorageError

	switch {
	case errors.As(err, &verr):
		logger.Debug("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Fail("Validation failed", verr))
	case errors.Is(err, entity.ErrNotFound):
		notFound(w, r, "Registration not found")
	case errors.As(err, &aerr):
		logger.Error("allocate contest code", sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("Contest code not available, try again later"))
	case errors.As(err, &serr):
		logger.Error("storage", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Storage not available"))
	default:
		logger.Error("request failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Internal error"))
	}
}

func notFound(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, response.Error(message))
}
