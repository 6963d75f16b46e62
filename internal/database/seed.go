package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
)

type SeedReport struct {
	CreatedRoles    int  `json:"created_roles"`
	CreatedGenders  int  `json:"created_genders"`
	CreatedStatuses int  `json:"created_statuses"`
	CreatedAdmin    bool `json:"created_admin"`
	Noop            bool `json:"noop"`
}

// PasswordHasher is the slice of the security hasher the seed needs for the super admin.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

func seedRoles(cfg *config.Config) []domain.Role {
	return []domain.Role{
		{Model: domain.Model{ID: cfg.RoleSuperAdminID}, Name: domain.RoleSuperAdmin, NormalizedName: "SUPERADMIN"},
		{Model: domain.Model{ID: cfg.RoleAdminID}, Name: domain.RoleAdmin, NormalizedName: "ADMIN"},
		{Model: domain.Model{ID: cfg.RoleTeacherID}, Name: domain.RoleTeacher, NormalizedName: "TEACHER"},
		{Model: domain.Model{ID: cfg.RoleStudentID}, Name: domain.RoleStudent, NormalizedName: "STUDENT"},
	}
}

func seedGenders(cfg *config.Config) []domain.Gender {
	return []domain.Gender{
		{Lookup: domain.Lookup{Model: domain.Model{ID: cfg.GenderFemaleID}, Name: "Female", Color: "#ff69b4"}},
		{Lookup: domain.Lookup{Model: domain.Model{ID: cfg.GenderMaleID}, Name: "Male", Color: "#fa69b4"}},
		{Lookup: domain.Lookup{Model: domain.Model{ID: cfg.GenderOtherID}, Name: "Other", Color: "#ab69b4"}},
	}
}

func seedStatuses(cfg *config.Config) []domain.StatusAccount {
	return []domain.StatusAccount{
		{Lookup: domain.Lookup{Model: domain.Model{ID: cfg.StatusPendingID}, Name: "Pending", Color: "#ff69b4"}},
		{Lookup: domain.Lookup{Model: domain.Model{ID: cfg.StatusConfirmedID}, Name: "Confirmed", Color: "#fa69b4"}},
		{Lookup: domain.Lookup{Model: domain.Model{ID: cfg.StatusBannedID}, Name: "Banned", Color: "#ab69b4"}},
	}
}

// SeedPlan describes the rows Seed would ensure, without touching the database.
func SeedPlan(cfg *config.Config) []string {
	plan := make([]string, 0, 11)
	for _, r := range seedRoles(cfg) {
		plan = append(plan, fmt.Sprintf("role %s (%s)", r.Name, r.ID))
	}
	for _, g := range seedGenders(cfg) {
		plan = append(plan, fmt.Sprintf("gender %s (%s)", g.Name, g.ID))
	}
	for _, s := range seedStatuses(cfg) {
		plan = append(plan, fmt.Sprintf("status %s (%s)", s.Name, s.ID))
	}
	if cfg.SuperAdminEmail != "" {
		plan = append(plan, "super admin "+cfg.SuperAdminEmail)
	}
	return plan
}

func Seed(ctx context.Context, db *gorm.DB, cfg *config.Config, hasher PasswordHasher) error {
	_, err := SeedSync(ctx, db, cfg, hasher)
	return err
}

// SeedSync upserts the fixed-id reference rows and the super admin account. Running it
// again only inserts what is missing.
func SeedSync(ctx context.Context, db *gorm.DB, cfg *config.Config, hasher PasswordHasher) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()

	report := &SeedReport{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range seedRoles(cfg) {
			n, err := insertMissing(tx, &r)
			if err != nil {
				return fmt.Errorf("seed role %s: %w", r.Name, err)
			}
			report.CreatedRoles += n
		}
		for _, g := range seedGenders(cfg) {
			n, err := insertMissing(tx, &g)
			if err != nil {
				return fmt.Errorf("seed gender %s: %w", g.Name, err)
			}
			report.CreatedGenders += n
		}
		for _, s := range seedStatuses(cfg) {
			n, err := insertMissing(tx, &s)
			if err != nil {
				return fmt.Errorf("seed status %s: %w", s.Name, err)
			}
			report.CreatedStatuses += n
		}
		created, err := seedSuperAdmin(tx, cfg, hasher)
		if err != nil {
			return err
		}
		report.CreatedAdmin = created
		return nil
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, err
	}
	report.Noop = report.CreatedRoles == 0 && report.CreatedGenders == 0 && report.CreatedStatuses == 0 && !report.CreatedAdmin
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return report, nil
}

func insertMissing(tx *gorm.DB, row any) (int, error) {
	res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).Create(row)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func seedSuperAdmin(tx *gorm.DB, cfg *config.Config, hasher PasswordHasher) (bool, error) {
	email := strings.TrimSpace(strings.ToLower(cfg.SuperAdminEmail))
	if email == "" || hasher == nil {
		return false, nil
	}
	var existing domain.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	hash, err := hasher.Hash(cfg.SuperAdminPassword)
	if err != nil {
		return false, fmt.Errorf("hash super admin password: %w", err)
	}
	now := time.Now().UTC()
	admin := domain.User{
		Email:            email,
		PasswordHash:     hash,
		FirstName:        "Super",
		LastName:         "Admin",
		AcceptTerms:      true,
		EmailConfirmed:   true,
		EmailConfirmedAt: &now,
		GenderID:         cfg.GenderOtherID,
		StatusID:         cfg.StatusConfirmedID,
	}
	if err := tx.Omit("Roles.*").Create(&admin).Error; err != nil {
		return false, fmt.Errorf("create super admin: %w", err)
	}
	var role domain.Role
	if err := tx.Where("id = ?", cfg.RoleSuperAdminID).First(&role).Error; err != nil {
		return false, fmt.Errorf("load super admin role: %w", err)
	}
	if err := tx.Model(&admin).Association("Roles").Append(&role); err != nil {
		return false, fmt.Errorf("assign super admin role: %w", err)
	}
	return true, nil
}

// ConfirmEmail marks an account as confirmed outside of the mail flow, for local setups.
func ConfirmEmail(ctx context.Context, db *gorm.DB, cfg *config.Config, email string) error {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" {
		return fmt.Errorf("email is required")
	}
	now := time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ? AND archived_at IS NULL", normalized).
		Updates(map[string]any{
			"email_confirmed":    true,
			"email_confirmed_at": &now,
			"status_id":          cfg.StatusConfirmedID,
			"updated_at":         now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
