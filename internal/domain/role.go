package domain

const (
	RoleSuperAdmin = "SuperAdmin"
	RoleAdmin      = "Admin"
	RoleTeacher    = "Teacher"
	RoleStudent    = "Student"
)

type Role struct {
	Model
	Name           string `gorm:"size:64;not null;uniqueIndex" json:"name"`
	NormalizedName string `gorm:"size:64;not null;uniqueIndex" json:"normalized_name"`
}
