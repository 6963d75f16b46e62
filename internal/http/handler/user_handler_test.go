package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

type stubUserService struct {
	users      map[uuid.UUID]*domain.User
	avatars    map[uuid.UUID][]byte
	rolesSet   []uuid.UUID
	statusSet  uuid.UUID
	lastUpdate service.UpdateProfileInput
}

func newStubUserService(users ...*domain.User) *stubUserService {
	s := &stubUserService{users: map[uuid.UUID]*domain.User{}, avatars: map[uuid.UUID][]byte{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubUserService) Search(context.Context, repository.TableState) (repository.Page[domain.User], error) {
	page := repository.Page[domain.User]{Count: int64(len(s.users))}
	for _, u := range s.users {
		page.Items = append(page.Items, *u)
	}
	return page, nil
}

func (s *stubUserService) Get(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUserService) Profile(ctx context.Context, id uuid.UUID) (*service.UserProfile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &service.UserProfile{User: u}
	if _, ok := s.avatars[id]; ok {
		p.AvatarURL = "http://storage.test/" + id.String()
	}
	return p, nil
}

func (s *stubUserService) UpdateProfile(ctx context.Context, id uuid.UUID, in service.UpdateProfileInput) (*service.UserProfile, error) {
	s.lastUpdate = in
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) == "" {
		return nil, errors.Join(service.ErrValidation, errors.New("first name is required"))
	}
	return s.Profile(ctx, id)
}

func (s *stubUserService) Archive(_ context.Context, id uuid.UUID) error {
	if _, ok := s.users[id]; !ok {
		return service.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *stubUserService) SetRoles(ctx context.Context, id uuid.UUID, roleIDs []uuid.UUID) (*domain.User, error) {
	s.rolesSet = roleIDs
	return s.Get(ctx, id)
}

func (s *stubUserService) SetStatus(ctx context.Context, id, statusID uuid.UUID) (*domain.User, error) {
	s.statusSet = statusID
	return s.Get(ctx, id)
}

func (s *stubUserService) ReplaceAvatar(ctx context.Context, id uuid.UUID, body io.Reader, size int64) (*service.UserProfile, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != size {
		return nil, errors.New("size mismatch")
	}
	s.avatars[id] = data
	return s.Profile(ctx, id)
}

func (s *stubUserService) DeleteAvatar(_ context.Context, id uuid.UUID) error {
	if _, ok := s.avatars[id]; !ok {
		return service.ErrAvatarNotFound
	}
	delete(s.avatars, id)
	return nil
}

func testUser() *domain.User {
	u := &domain.User{Email: "erin@example.com", FirstName: "Erin", LastName: "Test"}
	u.ID = uuid.New()
	return u
}

func avatarRequest(t *testing.T, field string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "me.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUserHandlerMeAndUpdate(t *testing.T) {
	u := testUser()
	svc := newStubUserService(u)
	h := NewUserHandler(svc, 1<<20, ErrorWriter{})

	rr := httptest.NewRecorder()
	h.Me(rr, withActor(httptest.NewRequest(http.MethodGet, "/users/me", nil), u.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); !strings.Contains(string(env.Data), "erin@example.com") {
		t.Fatalf("unexpected profile %s", env.Data)
	}

	rr = httptest.NewRecorder()
	h.UpdateMe(rr, withActor(httptest.NewRequest(http.MethodPut, "/users/me", strings.NewReader(`{"title":"Tutor"}`)), u.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if svc.lastUpdate.Title == nil || *svc.lastUpdate.Title != "Tutor" || svc.lastUpdate.FirstName != nil {
		t.Fatalf("expected only title to be set, got %+v", svc.lastUpdate)
	}

	rr = httptest.NewRecorder()
	h.UpdateMe(rr, withActor(httptest.NewRequest(http.MethodPut, "/users/me", strings.NewReader(`{"first_name":"  "}`)), u.ID))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank first name, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Me(rr, withActor(httptest.NewRequest(http.MethodGet, "/users/me", nil), uuid.New()))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for archived account, got %d", rr.Code)
	}
}

func TestUserHandlerAvatar(t *testing.T) {
	u := testUser()
	svc := newStubUserService(u)
	h := NewUserHandler(svc, 1<<20, ErrorWriter{})
	png := []byte("\x89PNG\r\n\x1a\nfake")

	rr := httptest.NewRecorder()
	h.UploadAvatar(rr, withActor(avatarRequest(t, "picture", png), u.ID))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong field, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.UploadAvatar(rr, withActor(avatarRequest(t, avatarFormField, png), u.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !bytes.Equal(svc.avatars[u.ID], png) {
		t.Fatal("avatar bytes not forwarded")
	}
	if env := decodeEnvelope(t, rr); !strings.Contains(string(env.Data), "avatar_url") {
		t.Fatalf("expected avatar url, got %s", env.Data)
	}

	rr = httptest.NewRecorder()
	h.DeleteAvatar(rr, withActor(httptest.NewRequest(http.MethodDelete, "/users/me/avatar", nil), u.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.DeleteAvatar(rr, withActor(httptest.NewRequest(http.MethodDelete, "/users/me/avatar", nil), u.ID))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without avatar, got %d", rr.Code)
	}
}

func TestUserHandlerAvatarBodyLimit(t *testing.T) {
	u := testUser()
	h := NewUserHandler(newStubUserService(u), 64, ErrorWriter{})
	req := withActor(avatarRequest(t, avatarFormField, bytes.Repeat([]byte("a"), 4096)), u.ID)
	rr := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rr, req.Body, 256)
	h.UploadAvatar(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestUserHandlerAdminOperations(t *testing.T) {
	u := testUser()
	svc := newStubUserService(u)
	h := NewUserHandler(svc, 1<<20, ErrorWriter{})
	admin := uuid.New()
	id := u.ID.String()

	rr := httptest.NewRecorder()
	h.SetRoles(rr, withURLParams(withActor(httptest.NewRequest(http.MethodPut, "/users/"+id+"/roles", strings.NewReader(`{"role_ids":[]}`)), admin, domain.RoleAdmin), "id", id))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty roles, got %d", rr.Code)
	}

	roleID := uuid.New()
	rr = httptest.NewRecorder()
	h.SetRoles(rr, withURLParams(withActor(httptest.NewRequest(http.MethodPut, "/users/"+id+"/roles", strings.NewReader(`{"role_ids":["`+roleID.String()+`"]}`)), admin, domain.RoleAdmin), "id", id))
	if rr.Code != http.StatusOK || len(svc.rolesSet) != 1 || svc.rolesSet[0] != roleID {
		t.Fatalf("roles not set: code %d, %v", rr.Code, svc.rolesSet)
	}

	statusID := uuid.New()
	rr = httptest.NewRecorder()
	h.SetStatus(rr, withURLParams(withActor(httptest.NewRequest(http.MethodPut, "/users/"+id+"/status", strings.NewReader(`{"status_id":"`+statusID.String()+`"}`)), admin, domain.RoleAdmin), "id", id))
	if rr.Code != http.StatusOK || svc.statusSet != statusID {
		t.Fatalf("status not set: code %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Search(rr, httptest.NewRequest(http.MethodPost, "/users/search", strings.NewReader(`{"global_search":"erin"}`)))
	if env := decodeEnvelope(t, rr); env.Count == nil || *env.Count != 1 {
		t.Fatalf("expected count 1, got %+v", env)
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, withURLParams(withActor(httptest.NewRequest(http.MethodDelete, "/users/"+id, nil), admin, domain.RoleAdmin), "id", id))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.Get(rr, withURLParams(httptest.NewRequest(http.MethodGet, "/users/"+id, nil), "id", id))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after archive, got %d", rr.Code)
	}
}
