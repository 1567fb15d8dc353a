// Package fake provides an in-process portal backend for testing.
//
// fake.NewServer starts an HTTP server implementing every endpoint the
// SDK consumes, seeded via Option functions and minting real signed
// access tokens, so tests exercise the full client stack without an
// external backend. fake.NewClient returns a *portal.Client fully wired
// against such a server.
package fake

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	portal "github.com/carelink/portal-go"
	"github.com/carelink/portal-go/guard"
	"github.com/carelink/portal-go/rest"
	"github.com/carelink/portal-go/session"
	"github.com/carelink/portal-go/tokenstore"
	"github.com/carelink/portal-go/transport"
)

type account struct {
	id             int64
	username       string
	password       string
	email          string
	role           portal.Role
	age            int
	address        string
	specialization string
}

type state struct {
	mu           sync.RWMutex
	byUsername   map[string]*account
	byID         map[int64]*account
	appointments map[int64]*portal.Appointment
	vitals       map[int64][]portal.Vital
	nextUserID   int64
	nextApptID   int64
	nextVitalID  int64
	secret       []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	now          func() time.Time
}

// Option configures the fake backend.
type Option func(*state)

// WithPatient seeds a patient account.
func WithPatient(username, password, email string) Option {
	return func(s *state) { s.addAccount(username, password, email, portal.RolePatient, "") }
}

// WithDoctor seeds a doctor account.
func WithDoctor(username, password, email, specialization string) Option {
	return func(s *state) { s.addAccount(username, password, email, portal.RoleDoctor, specialization) }
}

// WithRawRole seeds an account whose role string is stored verbatim, for
// exercising role normalization at the client boundary.
func WithRawRole(username, password, email, rawRole string) Option {
	return func(s *state) {
		a := s.addAccount(username, password, email, portal.RoleUnknown, "")
		a.role = portal.Role(rawRole)
	}
}

// WithAppointment seeds an appointment between two seeded users.
func WithAppointment(patientName, doctorName string, at time.Time) Option {
	return func(s *state) {
		s.nextApptID++
		s.appointments[s.nextApptID] = &portal.Appointment{
			ID:          s.nextApptID,
			PatientName: patientName,
			DoctorName:  doctorName,
			ScheduledAt: at,
			Status:      "SCHEDULED",
		}
	}
}

// WithVital seeds a vitals reading for a seeded user.
func WithVital(username string, v portal.Vital) Option {
	return func(s *state) {
		if a, ok := s.byUsername[username]; ok {
			s.nextVitalID++
			v.ID = s.nextVitalID
			s.vitals[a.id] = append(s.vitals[a.id], v)
		}
	}
}

// WithAccessTTL sets the lifetime of minted access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(s *state) { s.accessTTL = d }
}

// WithClock sets the backend clock (for minting expired tokens).
func WithClock(now func() time.Time) Option {
	return func(s *state) { s.now = now }
}

func (s *state) addAccount(username, password, email string, role portal.Role, specialization string) *account {
	s.nextUserID++
	a := &account{
		id:             s.nextUserID,
		username:       username,
		password:       password,
		email:          email,
		role:           role,
		specialization: specialization,
	}
	s.byUsername[username] = a
	s.byID[a.id] = a
	return a
}

// Server is an in-process portal backend.
type Server struct {
	*httptest.Server
	st *state
}

// NewServer starts a fake backend with the given seed data.
func NewServer(opts ...Option) *Server {
	st := &state{
		byUsername:   make(map[string]*account),
		byID:         make(map[int64]*account),
		appointments: make(map[int64]*portal.Appointment),
		vitals:       make(map[int64][]portal.Vital),
		secret:       []byte("fake-portal-signing-key"),
		accessTTL:    time.Hour,
		refreshTTL:   7 * 24 * time.Hour,
		now:          time.Now,
	}
	for _, o := range opts {
		o(st)
	}

	s := &Server{st: st}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/register/", s.handleRegister)
	r.POST("/login/", s.handleLogin)

	authed := r.Group("/", s.requireAuth)
	authed.GET("/profile/", s.handleGetProfile)
	authed.PUT("/profile/", s.handleUpdateProfile)
	authed.GET("/appointments/", s.handleListAppointments)
	authed.POST("/appointments/", s.handleCreateAppointment)
	authed.POST("/appointments/:id/cancel/", s.handleCancelAppointment)
	authed.POST("/appointments/:id/complete/", s.handleCompleteAppointment)
	authed.GET("/vitals/", s.handleListVitals)
	authed.POST("/vitals/", s.handleCreateVital)
	authed.GET("/doctors/", s.handleListDoctors)
	authed.GET("/doctor/patients/", s.handleListPatients)

	s.Server = httptest.NewServer(r)
	return s
}

// MintToken signs an access token for a seeded user with the given TTL.
// Useful for seeding token stores in startup tests.
func (s *Server) MintToken(username string, ttl time.Duration) (string, error) {
	s.st.mu.RLock()
	a, ok := s.st.byUsername[username]
	s.st.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("fake: unknown user %q", username)
	}
	return s.mint(a.id, ttl)
}

func (s *Server) mint(userID int64, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     s.st.now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.st.secret)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req portal.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password are required"})
		return
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if _, exists := s.st.byUsername[req.Username]; exists {
		c.JSON(http.StatusConflict, gin.H{"detail": "username already taken"})
		return
	}
	role, ok := portal.ParseRole(req.Role)
	if !ok {
		role = portal.RolePatient
	}
	s.st.addAccount(req.Username, req.Password, req.Email, role, "")
	c.JSON(http.StatusCreated, gin.H{"username": req.Username})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req portal.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}

	s.st.mu.RLock()
	a, ok := s.st.byUsername[req.Username]
	s.st.mu.RUnlock()
	if !ok || a.password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid credentials"})
		return
	}

	access, err := s.mint(a.id, s.st.accessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "token minting failed"})
		return
	}
	refresh, err := s.mint(a.id, s.st.refreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "token minting failed"})
		return
	}
	c.JSON(http.StatusOK, portal.CredentialPair{Access: access, Refresh: refresh})
}

// requireAuth verifies the bearer token and stores the caller's identity
// in both the gin context and the request context.
func (s *Server) requireAuth(c *gin.Context) {
	raw := extractBearerToken(c.Request)
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing authorization token"})
		return
	}

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.st.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.st.now))
	if err != nil || !parsed.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
		return
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
		return
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
		return
	}

	s.st.mu.RLock()
	a, ok := s.st.byID[int64(userID)]
	s.st.mu.RUnlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "unknown user"})
		return
	}

	ctx := portal.WithIdentity(c.Request.Context(), portal.Identity{
		ID:       a.id,
		Username: a.username,
		Email:    a.email,
	})
	ctx = portal.WithRole(ctx, a.role)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func (s *Server) caller(c *gin.Context) *account {
	id, _ := portal.IdentityFromContext(c.Request.Context())
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	return s.st.byID[id.ID]
}

func (s *Server) handleGetProfile(c *gin.Context) {
	a := s.caller(c)
	c.JSON(http.StatusOK, portal.Profile{
		User:           portal.UserInfo{Username: a.username, Email: a.email},
		Role:           string(a.role),
		Age:            a.age,
		Address:        a.address,
		Specialization: a.specialization,
	})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var update portal.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}

	a := s.caller(c)
	s.st.mu.Lock()
	if update.Email != "" {
		a.email = update.Email
	}
	if update.Age != 0 {
		a.age = update.Age
	}
	if update.Address != "" {
		a.address = update.Address
	}
	if update.Specialization != "" {
		a.specialization = update.Specialization
	}
	s.st.mu.Unlock()

	s.handleGetProfile(c)
}

func (s *Server) handleListAppointments(c *gin.Context) {
	a := s.caller(c)
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := make([]portal.Appointment, 0)
	for _, appt := range s.st.appointments {
		if appt.PatientName == a.username || appt.DoctorName == a.username {
			out = append(out, *appt)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateAppointment(c *gin.Context) {
	var req portal.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}

	a := s.caller(c)
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	doctor, ok := s.st.byID[req.DoctorID]
	if !ok || doctor.role != portal.RoleDoctor {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unknown doctor"})
		return
	}

	s.st.nextApptID++
	appt := &portal.Appointment{
		ID:          s.st.nextApptID,
		PatientName: a.username,
		DoctorName:  doctor.username,
		ScheduledAt: req.ScheduledAt,
		Status:      "SCHEDULED",
		Notes:       req.Notes,
	}
	s.st.appointments[appt.ID] = appt
	c.JSON(http.StatusCreated, appt)
}

func (s *Server) setAppointmentStatus(c *gin.Context, status string) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid appointment id"})
		return
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	appt, ok := s.st.appointments[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "appointment not found"})
		return
	}
	appt.Status = status
	c.JSON(http.StatusOK, appt)
}

func (s *Server) handleCancelAppointment(c *gin.Context) {
	s.setAppointmentStatus(c, "CANCELLED")
}

func (s *Server) handleCompleteAppointment(c *gin.Context) {
	s.setAppointmentStatus(c, "COMPLETED")
}

func (s *Server) handleListVitals(c *gin.Context) {
	a := s.caller(c)
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := s.st.vitals[a.id]
	if out == nil {
		out = []portal.Vital{}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateVital(c *gin.Context) {
	var v portal.Vital
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}

	a := s.caller(c)
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.nextVitalID++
	v.ID = s.st.nextVitalID
	if v.RecordedAt.IsZero() {
		v.RecordedAt = s.st.now()
	}
	s.st.vitals[a.id] = append(s.st.vitals[a.id], v)
	c.JSON(http.StatusCreated, v)
}

func (s *Server) handleListDoctors(c *gin.Context) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := make([]portal.Doctor, 0)
	for _, a := range s.st.byID {
		if a.role == portal.RoleDoctor {
			out = append(out, portal.Doctor{ID: a.id, Name: a.username, Specialization: a.specialization})
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListPatients(c *gin.Context) {
	if portal.RoleFromContext(c.Request.Context()) != portal.RoleDoctor {
		c.JSON(http.StatusForbidden, gin.H{"detail": "doctors only"})
		return
	}

	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	out := make([]portal.Patient, 0)
	for _, a := range s.st.byID {
		if a.role == portal.RolePatient {
			out = append(out, portal.Patient{ID: a.id, Username: a.username, Email: a.email})
		}
	}
	c.JSON(http.StatusOK, out)
}

// extractBearerToken pulls the token out of the Authorization header.
func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// NewClient creates a *portal.Client with the full SDK stack wired to the
// fake backend: in-memory token store, observable session, bearer
// transport, REST client, session manager and route policy.
func NewClient(srv *Server, opts ...portal.Option) (*portal.Client, error) {
	store := tokenstore.NewMemory()
	sess := session.NewSession()

	auth, err := transport.New(srv.URL, sess, store)
	if err != nil {
		return nil, err
	}
	httpClient := transport.NewHTTPClient(auth, 5*time.Second)

	api := rest.New(srv.URL, rest.WithHTTPClient(httpClient))
	mgr := session.NewManager(sess, store, api)
	policy := guard.NewPolicy(sess)

	base := []portal.Option{
		portal.WithTokenStore(store),
		portal.WithSession(sess),
		portal.WithSessionManager(mgr),
		portal.WithRoutePolicy(policy),
		portal.WithHTTPClient(httpClient),
	}
	return portal.NewClient(portal.Config{BaseURL: srv.URL}, append(base, opts...)...)
}
