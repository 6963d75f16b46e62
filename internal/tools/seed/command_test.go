package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/database"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func TestApplyReportsInsertedRowsThenNoop(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:seed_apply?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := &config.Config{
		SuperAdminEmail:    "root@booking.local",
		SuperAdminPassword: "SuperPassword123!",
		RoleSuperAdminID:   uuid.MustParse(config.DefaultRoleSuperAdminID),
		RoleAdminID:        uuid.MustParse(config.DefaultRoleAdminID),
		RoleTeacherID:      uuid.MustParse(config.DefaultRoleTeacherID),
		RoleStudentID:      uuid.MustParse(config.DefaultRoleStudentID),
		GenderMaleID:       uuid.New(),
		GenderFemaleID:     uuid.New(),
		GenderOtherID:      uuid.New(),
		StatusPendingID:    uuid.New(),
		StatusConfirmedID:  uuid.New(),
		StatusBannedID:     uuid.New(),
	}

	details, err := Apply(context.Background(), db, cfg, plainHasher{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	joined := strings.Join(details, "\n")
	for _, want := range []string{"roles inserted: 4", "genders inserted: 3", "statuses inserted: 3", "super admin created: root@booking.local"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %v", want, details)
		}
	}

	details, err = Apply(context.Background(), db, cfg, plainHasher{})
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if len(details) != 1 || !strings.Contains(details[0], "nothing inserted") {
		t.Fatalf("expected noop on second run, got %v", details)
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"apply", "dry-run", "confirm-email"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("missing subcommand %s", name)
		}
	}
	if cmd.PersistentFlags().Lookup("super-admin-email") == nil {
		t.Fatal("expected super-admin-email flag")
	}
}
