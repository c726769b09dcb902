package profile

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var (
	AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleTeacher: 20,
		RoleStudent: 10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Profile is the application-level user record, keyed by the account (auth subject) ID.
type Profile struct {
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Role      string      `json:"role" db:"role"`
	Class     null.String `json:"class" db:"class"`
	Gender    null.String `json:"gender" db:"gender"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (p Profile) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Profile) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Profile) IsStudent() bool { return p.Role == RoleStudent }

// IsStaff reports whether the profile may publish council content (admins and teachers).
func (p Profile) IsStaff() bool { return p.IsAdmin() || p.IsTeacher() }

var _ core.Person = Profile{}

func (p Profile) PersonID() string    { return p.ID }
func (p Profile) PersonName() string  { return p.Name }
func (p Profile) PersonEmail() string { return "" }

// UpdateProfile defines what a person may change on their own profile.
type UpdateProfile struct {
	Name   string  `json:"name" validate:"omitempty,max=100"`
	Class  *string `json:"class" validate:"omitempty,max=20"`
	Gender *string `json:"gender" validate:"omitempty,oneof=female male diverse"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	if up.Class != nil {
		c := core.CleanString(*up.Class)
		up.Class = &c
	}
	if up.Gender != nil {
		g := core.CleanString(*up.Gender, true /* lower */)
		up.Gender = &g
	}
	return validate.Struct(up)
}

type SetRole struct {
	Role string `json:"role" validate:"required,oneof=admin teacher student"`
}

func (sr *SetRole) Validate(validate *validator.Validate) error {
	sr.Role = core.CleanString(sr.Role, true /* lower */)
	return validate.Struct(sr)
}

type QueryFilter struct {
	Search string   `query:"search"`
	Roles  []string `query:"role"`
	Class  string   `query:"class"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Class = core.CleanString(qf.Class)
}
