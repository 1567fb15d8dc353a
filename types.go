package portal

import (
	"strings"
	"time"
)

// Role is the portal-wide user role as reported by the profile endpoint.
// The zero value means the role is not (yet) known, which is a distinct
// state from "no access": an authenticated user keeps RoleUnknown until
// the first successful profile fetch.
type Role string

const (
	RoleUnknown Role = ""
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
)

// ParseRole normalizes a raw role string from the backend. Matching is
// case-insensitive; anything outside the known set returns RoleUnknown
// and ok=false.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(RolePatient):
		return RolePatient, true
	case string(RoleDoctor):
		return RoleDoctor, true
	default:
		return RoleUnknown, false
	}
}

// Known reports whether the role has been resolved.
func (r Role) Known() bool { return r == RolePatient || r == RoleDoctor }

// Identity describes the current user. ID is decoded from the access
// token immediately after login; Username and Email arrive later with the
// profile fetch.
type Identity struct {
	ID       int64
	Username string
	Email    string
}

// CredentialPair is the token pair returned by the login endpoint and
// persisted in the token store. Both entries are set together or neither
// is set.
type CredentialPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// SessionState is an immutable snapshot of the session. Observers only
// ever see complete snapshots; partial updates are not observable.
type SessionState struct {
	Authenticated bool
	Identity      *Identity
	Role          Role
}

// Equal reports whether two snapshots are observably identical.
func (s SessionState) Equal(o SessionState) bool {
	if s.Authenticated != o.Authenticated || s.Role != o.Role {
		return false
	}
	if (s.Identity == nil) != (o.Identity == nil) {
		return false
	}
	if s.Identity != nil && *s.Identity != *o.Identity {
		return false
	}
	return true
}

// LoginRequest carries the credentials submitted to POST /login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest carries the fields submitted to POST /register/.
// Registration does not log the user in; a successful registration is
// followed by an explicit login.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// UserInfo is the nested user object of the profile payload.
type UserInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Profile is the payload of GET /profile/. Role-specific detail fields
// are optional and absent for the other role.
type Profile struct {
	User           UserInfo `json:"user"`
	Role           string   `json:"role"`
	Age            int      `json:"age,omitempty"`
	Address        string   `json:"address,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
}

// ProfileUpdate carries the editable fields for PUT /profile/.
type ProfileUpdate struct {
	Email          string `json:"email,omitempty"`
	Age            int    `json:"age,omitempty"`
	Address        string `json:"address,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

// Appointment is a booked consultation between a patient and a doctor.
type Appointment struct {
	ID          int64     `json:"id"`
	PatientName string    `json:"patient_name"`
	DoctorName  string    `json:"doctor_name"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"` // SCHEDULED, CANCELLED, COMPLETED
	Notes       string    `json:"notes,omitempty"`
}

// AppointmentRequest books a new appointment.
type AppointmentRequest struct {
	DoctorID    int64     `json:"doctor_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       string    `json:"notes,omitempty"`
}

// Vital is a single vitals reading tracked by a patient.
type Vital struct {
	ID          int64     `json:"id"`
	Systolic    int       `json:"systolic"`
	Diastolic   int       `json:"diastolic"`
	HeartRate   int       `json:"heart_rate"`
	Temperature float64   `json:"temperature"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Doctor is a listing entry from GET /doctors/.
type Doctor struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

// Patient is a listing entry from GET /doctor/patients/.
type Patient struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Route is a protected navigation target. Roles is the set of acceptable
// roles declared at route-definition time; an empty set means any
// authenticated user may enter.
type Route struct {
	Path  string
	Roles []Role
}

// Decision is the outcome of evaluating the route access policy for one
// navigation. A denied navigation always carries a concrete redirect
// target; guards never fail.
type Decision struct {
	Allowed  bool
	Redirect string
	Reason   Reason
}

// Reason explains a guard decision.
type Reason string

const (
	ReasonAuthenticated    Reason = "authenticated"
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonNoRolesDeclared  Reason = "no_roles_declared"
	ReasonRoleMatch        Reason = "role_match"
	ReasonRoleUnknown      Reason = "role_unknown"
	ReasonRoleMismatch     Reason = "role_mismatch"
)

// Well-known navigation targets used by guard redirects and forced
// logouts.
const (
	LoginPath            = "/login"
	HomePath             = "/"
	PatientDashboardPath = "/patient/dashboard"
	DoctorDashboardPath  = "/doctor/dashboard"
)

// LandingPath returns the dashboard a user of the given role is sent to
// after a denied navigation, falling back to home for unknown roles.
func LandingPath(r Role) string {
	switch r {
	case RolePatient:
		return PatientDashboardPath
	case RoleDoctor:
		return DoctorDashboardPath
	default:
		return HomePath
	}
}
