// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles recognized by the API.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// EmergencyContact is who to call on a patient's behalf.
type EmergencyContact struct {
	Name         string `bson:"name,omitempty" json:"name,omitempty"`
	Relationship string `bson:"relationship,omitempty" json:"relationship,omitempty"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// MedicalInfo holds patient-specific clinical context.
type MedicalInfo struct {
	HeightCm          float64          `bson:"height_cm,omitempty" json:"height_cm,omitempty"`
	BloodType         string           `bson:"blood_type,omitempty" json:"blood_type,omitempty"`
	Allergies         []string         `bson:"allergies,omitempty" json:"allergies,omitempty"`
	ChronicConditions []string         `bson:"chronic_conditions,omitempty" json:"chronic_conditions,omitempty"`
	EmergencyContact  EmergencyContact `bson:"emergency_contact,omitempty" json:"emergency_contact,omitempty"`
}

// DoctorInfo holds doctor-specific credentials. LicenseNumber is globally
// unique among doctors (enforced by a partial unique index).
type DoctorInfo struct {
	LicenseNumber   string `bson:"license_number,omitempty" json:"license_number,omitempty"`
	Specialization  string `bson:"specialization,omitempty" json:"specialization,omitempty"`
	ExperienceYears int    `bson:"experience_years,omitempty" json:"experience_years,omitempty"`
	Hospital        string `bson:"hospital,omitempty" json:"hospital,omitempty"`
}

// User represents patients, doctors, and admins.
//
// PasswordHash is bcrypt only; the plaintext never touches a document or a
// log line. The json:"-" tag keeps it out of every serialized response.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	DateOfBirth  time.Time          `bson:"date_of_birth" json:"date_of_birth"`
	Gender       string             `bson:"gender" json:"gender"` // male | female | other
	Role         string             `bson:"role" json:"role"`     // patient | doctor | admin
	ProfilePic   string             `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`
	Active       bool               `bson:"active" json:"active"`

	MedicalInfo *MedicalInfo `bson:"medical_info,omitempty" json:"medical_info,omitempty"`
	DoctorInfo  *DoctorInfo  `bson:"doctor_info,omitempty" json:"doctor_info,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name for display.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsValidRole reports whether role is one of the recognized roles.
func IsValidRole(role string) bool {
	return role == RolePatient || role == RoleDoctor || role == RoleAdmin
}

// IsValidGender reports whether g is an accepted gender value.
func IsValidGender(g string) bool {
	return g == "male" || g == "female" || g == "other"
}
