package supportstub

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// Server implements the /support HTTP surface the console consumes, for
// development and integration testing.
type Server struct {
	store     Store
	logger    *zap.Logger
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewServer constructs the stub.
func NewServer(store Store, logger *zap.Logger, jwtSecret string, tokenTTLMinutes int) *Server {
	if tokenTTLMinutes <= 0 {
		tokenTTLMinutes = 480
	}
	return &Server{
		store:     store,
		logger:    logger,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  time.Duration(tokenTTLMinutes) * time.Minute,
	}
}

type stubClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ErrorHandler translates domain errors into HTTP statuses. Install it as the
// fiber app's error handler so the stub answers 401/404 instead of a blanket
// 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
		"error": fiber.Map{"code": domainErr.Code, "message": domainErr.Message},
	})
}

// Register wires the stub's routes onto a fiber app.
func (s *Server) Register(app *fiber.App) {
	support := app.Group("/support")
	support.Post("/auth/login", s.login)

	protected := support.Group("", s.requireToken)
	protected.Get("/tickets", s.listTickets)
	protected.Get("/tickets/technician/:id", s.listTechnicianTickets)
	protected.Get("/tickets/:id", s.getTicket)
	protected.Put("/tickets/:id/assign", s.assignTicket)
	protected.Put("/tickets/:id", s.updateStatus)
	protected.Post("/tickets/:id/notes", s.addNote)
	protected.Get("/technicians", s.listTechnicians)
}

func (s *Server) login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	account, err := s.store.AccountByEmail(c.Context(), req.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	now := time.Now()
	claims := &stubClaims{
		Name:  account.Name,
		Email: account.Email,
		Role:  account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"_id":   account.ID,
			"name":  account.Name,
			"email": account.Email,
			"role":  account.Role,
		},
	})
}

func (s *Server) requireToken(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("missing bearer token")
	}
	claims := &stubClaims{}
	parsed, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return apperrors.NewUnauthorized("invalid token")
	}
	c.Locals("actor_name", claims.Name)
	return c.Next()
}

func (s *Server) listTickets(c *fiber.Ctx) error {
	statuses := splitStatuses(c.Query("status"))
	tickets, err := s.store.ListTickets(c.Context(), statuses)
	if err != nil {
		return err
	}
	return c.JSON(tickets)
}

func (s *Server) getTicket(c *fiber.Ctx) error {
	ticket, err := s.store.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

func (s *Server) listTechnicianTickets(c *fiber.Ctx) error {
	statuses := splitStatuses(c.Query("status"))
	tickets, err := s.store.ListByTechnician(c.Context(), c.Params("id"), statuses)
	if err != nil {
		return err
	}
	return c.JSON(tickets)
}

func (s *Server) assignTicket(c *fiber.Ctx) error {
	var req struct {
		TechnicianID string `json:"technicianId"`
		Priority     string `json:"priority"`
		Notes        string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TechnicianID == "" || req.Priority == "" {
		return apperrors.NewValidationError("technicianId and priority required", nil)
	}
	actor, _ := c.Locals("actor_name").(string)
	ticket, err := s.store.Assign(c.Context(), c.Params("id"), AssignInput{
		TechnicianID: req.TechnicianID,
		Priority:     req.Priority,
		Notes:        req.Notes,
		ActorName:    actor,
	})
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

func (s *Server) updateStatus(c *fiber.Ctx) error {
	var req struct {
		Status     string `json:"status"`
		Resolution string `json:"resolution"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := s.store.UpdateStatus(c.Context(), c.Params("id"), req.Status, req.Resolution)
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

func (s *Server) addNote(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("content required", nil)
	}
	actor, _ := c.Locals("actor_name").(string)
	err := s.store.AddNote(c.Context(), c.Params("id"), Note{
		Content:   strings.TrimSpace(req.Content),
		CreatedBy: actor,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "note added"})
}

func (s *Server) listTechnicians(c *fiber.Ctx) error {
	technicians, err := s.store.ListTechnicians(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(technicians)
}

func splitStatuses(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			statuses = append(statuses, part)
		}
	}
	return statuses
}
