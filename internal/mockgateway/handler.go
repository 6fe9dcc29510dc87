package mockgateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"gemnet/internal/platform/middleware"
	"gemnet/internal/registration/models"
	"gemnet/internal/registration/ports"
	"gemnet/pkg/email"
	"gemnet/pkg/platform/audit"
	"gemnet/pkg/platform/audit/publisher"
	"gemnet/pkg/platform/audit/store/memory"
	"gemnet/pkg/platform/sentinel"
	"gemnet/pkg/requestcontext"
)

const (
	// maxUploadSize caps verification image uploads.
	maxUploadSize = 10 << 20

	// tokenTTL is the lifetime of the auth token issued at completion.
	tokenTTL = 24 * time.Hour
)

// Handler serves the mock verification backend's HTTP API.
type Handler struct {
	store          UserStore
	verifier       *NICVerifier
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	auditTrail     *memory.InMemoryStore
	jwtSigningKey  []byte
	clock          func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithAuditPublisher sets the audit publisher.
func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(h *Handler) {
		h.auditPublisher = publisher
	}
}

// WithJWTSigningKey sets the HS256 key for issued auth tokens.
func WithJWTSigningKey(key []byte) Option {
	return func(h *Handler) {
		if len(key) > 0 {
			h.jwtSigningKey = key
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(h *Handler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// New constructs a Handler. The user store and verifier are required.
func New(store UserStore, verifier *NICVerifier, opts ...Option) (*Handler, error) {
	if store == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("nic verifier is required")
	}
	h := &Handler{
		store:         store,
		verifier:      verifier,
		logger:        slog.Default(),
		jwtSigningKey: []byte("dev-only-signing-key"),
		clock:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	// Without an external publisher, events land in an in-process trail
	// served at /api/auth/audit/{userID} so tests and local runs can
	// inspect what the flow recorded.
	if h.auditPublisher == nil {
		h.auditTrail = memory.NewInMemoryStore()
		h.auditPublisher = publisher.NewPublisher(h.auditTrail)
	}
	return h, nil
}

// Router builds the HTTP surface with the standard middleware chain.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Device)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/verify-face/{userID}", h.handleVerifyFace)
		r.Post("/auth/verify-nic/{userID}", h.handleVerifyNIC)
		r.Get("/auth/health", h.handleHealth)
		if h.auditTrail != nil {
			r.Get("/auth/audit/{userID}", h.handleAuditTrail)
		}
	})
	return r
}

// handleAuditTrail returns the in-process audit trail for one user. Only
// mounted when no external publisher is configured.
func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	events, err := h.auditTrail.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "audit trail", Data: events})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" || req.NICNumber == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "email, password and nicNumber are required"})
		return
	}
	// Names are optional on the wire; a client that omits them gets a
	// best-effort guess from the email local part.
	if req.FirstName == "" && req.LastName == "" {
		req.FirstName, req.LastName = email.DeriveNameFromEmail(req.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "internal error"})
		return
	}

	user := &User{
		ID:           uuid.New(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: string(hash),
		PhoneNumber:  req.PhoneNumber,
		Address:      req.Address,
		DateOfBirth:  req.DateOfBirth,
		NICNumber:    req.NICNumber,
		Device:       requestcontext.Device(ctx),
		RegisteredAt: h.clock(),
	}

	if err := h.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			writeJSON(w, http.StatusConflict, envelope{Success: false, Message: "email already registered"})
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "internal error"})
		return
	}

	ports.LogAudit(ctx, h.logger, h.auditPublisher, audit.Event{
		Action: string(audit.EventUserRegistered),
		UserID: user.ID.String(),
		Device: user.Device,
	})

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "registration successful",
		Data:    user.ID.String(),
	})
}

func (h *Handler) handleVerifyFace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}

	if !h.readUpload(w, r, "faceImage") {
		return
	}

	user.FaceVerified = true
	if err := h.store.Update(ctx, user); err != nil {
		h.logger.ErrorContext(ctx, "failed to update user", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "face verification successful"})
}

func (h *Handler) handleVerifyNIC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.writeNICRejection(w, models.CodeUserNotFound)
		return
	}
	user, err := h.store.GetByID(ctx, userID)
	if err != nil {
		h.writeNICRejection(w, models.CodeUserNotFound)
		return
	}

	if !user.FaceVerified {
		h.writeNICRejection(w, models.CodeMissingFaceImage)
		return
	}

	if !h.readUpload(w, r, "nicImage") {
		return
	}

	if failure := h.verifier.Verdict(user.NICNumber); failure != nil {
		ports.LogAudit(ctx, h.logger, h.auditPublisher, audit.Event{
			Action: string(audit.EventAttemptFailed),
			UserID: user.ID.String(),
		}, "reason", string(failure.Code))
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			Success: false,
			Message: failure.Message,
			Data: nicRejection{
				Error:       string(failure.Code),
				UserMessage: failure.Message,
				Suggestions: failure.Suggestions,
			},
		})
		return
	}

	user.NicVerified = true
	if err := h.store.Update(ctx, user); err != nil {
		h.logger.ErrorContext(ctx, "failed to update user", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "internal error"})
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue auth token", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "internal error"})
		return
	}

	ports.LogAudit(ctx, h.logger, h.auditPublisher, audit.Event{
		Action: string(audit.EventAuthTokenIssued),
		UserID: user.ID.String(),
	})

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "NIC verification successful",
		Data:    map[string]string{"authToken": token},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "ok"})
}

// lookupUser resolves the {userID} path parameter, writing the error
// response itself when the user cannot be found.
func (h *Handler) lookupUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "user not found"})
		return nil, false
	}
	user, err := h.store.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "user not found"})
		return nil, false
	}
	return user, true
}

// readUpload checks that exactly the named multipart file is present and
// within the size cap, writing the error response itself on violation.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, field string) bool {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid upload"})
		return false
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: field + " file is required"})
		return false
	}
	file.Close()
	return true
}

func (h *Handler) writeNICRejection(w http.ResponseWriter, code models.FailureCode) {
	failure := models.ClassifyNICFailure(code, "", nil)
	writeJSON(w, http.StatusUnprocessableEntity, envelope{
		Success: false,
		Message: failure.Message,
		Data: nicRejection{
			Error:       string(failure.Code),
			UserMessage: failure.Message,
			Suggestions: failure.Suggestions,
		},
	})
}

// issueToken mints the HS256 auth token handed out when the flow completes.
func (h *Handler) issueToken(user *User) (string, error) {
	now := h.clock()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSigningKey)
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
