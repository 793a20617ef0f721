package identity

import (
	"strings"
	"testing"
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// fakeStore is an in-memory Store used only by this test file.
type fakeStore struct {
	users      map[string]*types.User // id -> user
	byEmail    map[string]*types.User
	byName     map[string]*types.User
	identities map[string]*types.ExternalIdentity // provider|external_id -> identity
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[string]*types.User{},
		byEmail:    map[string]*types.User{},
		byName:     map[string]*types.User{},
		identities: map[string]*types.ExternalIdentity{},
	}
}

func identityKey(provider types.SourceType, externalID string) string {
	return string(provider) + "|" + externalID
}

func nameKey(first, last string) string {
	return strings.ToLower(first) + "|" + strings.ToLower(last)
}

func (s *fakeStore) GetExternalIdentity(_ tenantctx.Context, provider types.SourceType, externalUserID string) (*types.ExternalIdentity, error) {
	return s.identities[identityKey(provider, externalUserID)], nil
}

func (s *fakeStore) GetUserByEmail(_ tenantctx.Context, email string) (*types.User, error) {
	return s.byEmail[strings.ToLower(email)], nil
}

func (s *fakeStore) GetUserByName(_ tenantctx.Context, firstName, lastName string) (*types.User, error) {
	return s.byName[nameKey(firstName, lastName)], nil
}

func (s *fakeStore) GetUser(_ tenantctx.Context, userID string) (*types.User, error) {
	return s.users[userID], nil
}

func (s *fakeStore) UsernameTaken(_ tenantctx.Context, username string) (bool, error) {
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateUser(_ tenantctx.Context, u *types.User) error {
	s.nextID++
	if u.ID == "" {
		u.ID = strings.TrimSpace(u.Username)
	}
	s.users[u.ID] = u
	if u.Email != "" {
		s.byEmail[strings.ToLower(u.Email)] = u
	}
	if u.FirstName != "" || u.LastName != "" {
		s.byName[nameKey(u.FirstName, u.LastName)] = u
	}
	return nil
}

func (s *fakeStore) UpdateUserName(_ tenantctx.Context, userID, firstName, lastName string) error {
	u := s.users[userID]
	u.FirstName, u.LastName = firstName, lastName
	s.byName[nameKey(firstName, lastName)] = u
	return nil
}

func (s *fakeStore) UpsertExternalIdentity(_ tenantctx.Context, ei *types.ExternalIdentity) error {
	s.identities[identityKey(ei.Provider, ei.ExternalUserID)] = ei
	return nil
}

func testCtx() tenantctx.Context {
	return tenantctx.Context{TenantID: "tenant-1", Slug: "acme"}
}

// TestResolveFirstSightCreation covers spec scenario S4: a never-seen
// ClickUp assignee with no email gets a new inactive shadow user whose
// username follows the name.replace(" ", ".") + "@{provider}.sync" rule,
// lowercased.
func TestResolveFirstSightCreation(t *testing.T) {
	store := newFakeStore()
	r := New(store)
	r.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }

	in := Input{Provider: types.SourceClickUp, ExternalUserID: "u42", Name: "Arun Singh"}

	user, err := r.Resolve(testCtx(), in)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if user.IsActive {
		t.Error("expected shadow user to be inactive")
	}
	if user.HasUsablePassword {
		t.Error("expected shadow user to have no usable password")
	}
	if user.Username != "arun.singh@clickup.sync" {
		t.Errorf("unexpected username: %s", user.Username)
	}
	if user.FirstName != "Arun" || user.LastName != "Singh" {
		t.Errorf("unexpected name split: %q %q", user.FirstName, user.LastName)
	}

	// Second call with identical input must be idempotent (Testable Property 4).
	user2, err := r.Resolve(testCtx(), in)
	if err != nil {
		t.Fatalf("second Resolve returned error: %v", err)
	}
	if user2.ID != user.ID {
		t.Errorf("expected same user id on repeat resolution, got %s vs %s", user2.ID, user.ID)
	}
	if len(store.users) != 1 {
		t.Errorf("expected exactly one user created, got %d", len(store.users))
	}
}

func TestResolveByEmailMatchesExistingUser(t *testing.T) {
	store := newFakeStore()
	existing := &types.User{ID: "u1", Email: "jdoe@corp.com", FirstName: "Jane", LastName: "Doe"}
	store.CreateUser(testCtx(), existing) // also indexes by email

	r := New(store)
	user, err := r.Resolve(testCtx(), Input{
		Provider:       types.SourceJira,
		ExternalUserID: "acc-123",
		Email:          "JDoe@Corp.com",
		Name:           "Jane Doe",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("expected match on existing user u1, got %s", user.ID)
	}

	ident := store.identities[identityKey(types.SourceJira, "acc-123")]
	if ident == nil || ident.UserID != "u1" {
		t.Error("expected external identity to be upserted to the matched user")
	}
}

func TestResolveFillsInNameWhenPreviouslyEmpty(t *testing.T) {
	store := newFakeStore()
	existing := &types.User{ID: "u2", Email: "ghost@corp.com"}
	store.CreateUser(testCtx(), existing)

	r := New(store)
	user, err := r.Resolve(testCtx(), Input{
		Provider:       types.SourceADO,
		ExternalUserID: "desc-1",
		Email:          "ghost@corp.com",
		Name:           "Ghost Writer",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if user.FirstName != "Ghost" || user.LastName != "Writer" {
		t.Errorf("expected name backfilled, got %q %q", user.FirstName, user.LastName)
	}
}

func TestUniqueUsernameDedupesOnCollision(t *testing.T) {
	store := newFakeStore()
	store.CreateUser(testCtx(), &types.User{ID: "existing", Username: "arun.singh@clickup.sync"})

	r := New(store)
	user, err := r.Resolve(testCtx(), Input{
		Provider:       types.SourceClickUp,
		ExternalUserID: "u99",
		Name:           "Arun Singh",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if user.Username != "arun.singh@clickup.sync.1" {
		t.Errorf("expected deduped username, got %s", user.Username)
	}
}
