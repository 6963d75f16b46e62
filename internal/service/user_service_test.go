package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

type memoryAvatarStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	putErr  error
}

func newMemoryAvatarStorage() *memoryAvatarStorage {
	return &memoryAvatarStorage{objects: map[string][]byte{}}
}

func (m *memoryAvatarStorage) PutAvatar(_ context.Context, userID uuid.UUID, body io.Reader, _ int64) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "avatars/" + userID.String() + "/" + uuid.NewString() + ".png"
	m.objects[key] = data
	return key, nil
}

func (m *memoryAvatarStorage) RemoveAvatar(_ context.Context, _ uuid.UUID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *memoryAvatarStorage) AvatarURL(_ context.Context, key string) (string, error) {
	return "https://objects.test/" + key, nil
}

func (fx *serviceFixture) newUserService(storage AvatarStorage) *UserService {
	return NewUserService(fx.cfg, fx.tx, fx.users, fx.genders, fx.statuses, fx.tokens, storage, discardLogger())
}

func ptr[T any](v T) *T { return &v }

func TestUserServiceUpdateProfile(t *testing.T) {
	fx := newServiceFixture(t)
	svc := fx.newUserService(nil)
	u := fx.createUser(t, "dana@example.com", fx.cfg.RoleStudentID)
	ctx := context.Background()

	t.Run("partial update keeps other fields", func(t *testing.T) {
		p, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{
			Title:    ptr("  Pianist "),
			GenderID: ptr(fx.cfg.GenderFemaleID),
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if p.Title != "Pianist" || p.GenderID != fx.cfg.GenderFemaleID {
			t.Fatalf("unexpected profile: title=%q gender=%s", p.Title, p.GenderID)
		}
		if p.FirstName != u.FirstName {
			t.Fatalf("first name changed to %q", p.FirstName)
		}
		if p.UpdatedAt == nil {
			t.Fatal("expected updated_at to be stamped")
		}
	})

	t.Run("blank first name rejected", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{FirstName: ptr("   ")})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown gender", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{GenderID: ptr(uuid.New())})
		if !errors.Is(err, ErrGenderNotFound) {
			t.Fatalf("expected gender not found, got %v", err)
		}
	})

	t.Run("birth date in the future", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{DateOfBirth: ptr(time.Now().Add(48 * time.Hour))})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestUserServiceSearchByFullName(t *testing.T) {
	fx := newServiceFixture(t)
	svc := fx.newUserService(nil)
	fx.createUser(t, "erin@example.com")
	fx.createUser(t, "frank@example.com")

	page, err := svc.Search(context.Background(), repository.TableState{Rows: 10, GlobalSearch: "erin tes"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Count != 1 || len(page.Items) != 1 || page.Items[0].Email != "erin@example.com" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestUserServiceArchiveRevokesSession(t *testing.T) {
	fx := newServiceFixture(t)
	svc := fx.newUserService(nil)
	u := fx.createUser(t, "gina@example.com")
	ctx := context.Background()

	issued, err := fx.tokens.RotateRefreshToken(ctx, u.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := svc.Archive(ctx, u.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := svc.Get(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected archived user to be hidden, got %v", err)
	}
	if _, err := fx.tokens.ResolveRefreshToken(ctx, issued.Value); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected refresh token revoked, got %v", err)
	}
	if err := svc.Archive(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected second archive to miss, got %v", err)
	}
}

func TestUserServiceSetRoles(t *testing.T) {
	fx := newServiceFixture(t)
	svc := fx.newUserService(nil)
	u := fx.createUser(t, "hank@example.com", fx.cfg.RoleStudentID)
	ctx := context.Background()

	updated, err := svc.SetRoles(ctx, u.ID, []uuid.UUID{fx.cfg.RoleTeacherID, fx.cfg.RoleStudentID})
	if err != nil {
		t.Fatalf("set roles: %v", err)
	}
	if !updated.HasRole("Teacher") || !updated.HasRole("Student") || len(updated.Roles) != 2 {
		t.Fatalf("unexpected roles: %v", updated.RoleNames())
	}
	if _, err := svc.SetRoles(ctx, u.ID, []uuid.UUID{uuid.New()}); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected role not found, got %v", err)
	}
	if _, err := svc.SetRoles(ctx, u.ID, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserServiceBanRevokesRefreshToken(t *testing.T) {
	fx := newServiceFixture(t)
	svc := fx.newUserService(nil)
	u := fx.createUser(t, "ivy@example.com")
	ctx := context.Background()

	issued, err := fx.tokens.RotateRefreshToken(ctx, u.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	banned, err := svc.SetStatus(ctx, u.ID, fx.cfg.StatusBannedID)
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if banned.StatusID != fx.cfg.StatusBannedID {
		t.Fatalf("status not updated: %s", banned.StatusID)
	}
	if _, err := fx.tokens.ResolveRefreshToken(ctx, issued.Value); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected refresh token revoked, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, u.ID, uuid.New()); !errors.Is(err, ErrStatusNotFound) {
		t.Fatalf("expected status not found, got %v", err)
	}
}

func TestUserServiceAvatarLifecycle(t *testing.T) {
	fx := newServiceFixture(t)
	storage := newMemoryAvatarStorage()
	svc := fx.newUserService(storage)
	u := fx.createUser(t, "jack@example.com")
	ctx := context.Background()

	first, err := svc.ReplaceAvatar(ctx, u.ID, strings.NewReader("one"), 3)
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if !strings.HasPrefix(first.AvatarURL, "https://objects.test/avatars/"+u.ID.String()) {
		t.Fatalf("unexpected avatar url %q", first.AvatarURL)
	}
	firstKey := first.AvatarKey

	second, err := svc.ReplaceAvatar(ctx, u.ID, strings.NewReader("two"), 3)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.AvatarKey == firstKey {
		t.Fatal("expected a fresh key")
	}
	if _, ok := storage.objects[firstKey]; ok {
		t.Fatal("previous avatar should be removed")
	}

	if err := svc.DeleteAvatar(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(storage.objects) != 0 {
		t.Fatalf("expected empty storage, got %d objects", len(storage.objects))
	}
	if err := svc.DeleteAvatar(ctx, u.ID); !errors.Is(err, ErrAvatarNotFound) {
		t.Fatalf("expected avatar not found, got %v", err)
	}
}

func TestUserServiceAvatarDisabled(t *testing.T) {
	fx := newServiceFixture(t)
	svc := fx.newUserService(nil)
	u := fx.createUser(t, "kate@example.com")

	if _, err := svc.ReplaceAvatar(context.Background(), u.ID, strings.NewReader("x"), 1); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("expected storage disabled, got %v", err)
	}
}
