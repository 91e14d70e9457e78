package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/communitymapper/community-mapper/internal/domain"
	"github.com/communitymapper/community-mapper/internal/store"
)

func TestCreateAndGetPerson(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-42", "ana@example.com")

	now := time.Now()
	p := &domain.Person{
		ID:                "per-1",
		UserID:            "usr-42",
		Name:              "Ana",
		Context:           "social",
		Proximity:         "primeiro",
		Importance:        5,
		TrustLevel:        2,
		InfluenceLevel:    4,
		PoliticalParty:    "PV",
		PoliticalPosition: "centro",
		IsCandidate:       true,
		CandidateOffice:   "vereadora",
		Email:             "ana@example.org",
		Phone:             "+55 11 5555-0000",
		Address:           "Rua A, 1",
		City:              "Santos",
		Notes:             "met at the **fair**",
		PhotoRef:          "media:abc",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.CreatePerson(ctx, p); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}

	got, err := s.GetPerson(ctx, "per-1")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}

	want := *p
	want.CreatedAt = got.CreatedAt
	want.UpdatedAt = got.UpdatedAt
	if *got != want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, want)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, now)
	}
}

func TestGetPerson_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPerson(context.Background(), "per-missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePerson_UnknownUserRejected(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	p := &domain.Person{ID: "per-1", UserID: "usr-ghost", Name: "X", Context: "c", Proximity: "p",
		Importance: 3, TrustLevel: 3, InfluenceLevel: 3, CreatedAt: now, UpdatedAt: now}
	err := s.CreatePerson(context.Background(), p)
	if !errors.Is(err, store.ErrRejected) {
		t.Fatalf("expected ErrRejected for a missing owner, got %v", err)
	}
	if errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("foreign key failure must not read as a duplicate")
	}
}

func TestListPeopleForUser_OrderAndScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "one@example.com")
	mustCreateUser(t, s, "usr-2", "two@example.com")

	mustCreatePerson(t, s, "per-c", "usr-1", "carla")
	mustCreatePerson(t, s, "per-a", "usr-1", "Bruno")
	mustCreatePerson(t, s, "per-b", "usr-1", "ana")
	mustCreatePerson(t, s, "per-x", "usr-2", "Aaron")

	people, err := s.ListPeopleForUser(ctx, "usr-1")
	if err != nil {
		t.Fatalf("ListPeopleForUser: %v", err)
	}

	var names []string
	for _, p := range people {
		names = append(names, p.Name)
		if p.UserID != "usr-1" {
			t.Errorf("leaked person %s owned by %s", p.ID, p.UserID)
		}
	}
	want := []string{"ana", "Bruno", "carla"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, names[i], want[i])
		}
	}

	empty, err := s.ListPeopleForUser(ctx, "usr-nobody")
	if err != nil {
		t.Fatalf("ListPeopleForUser(empty): %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestUpdatePerson_MatchesOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-42", "a@example.com")
	mustCreateUser(t, s, "usr-99", "b@example.com")
	p := mustCreatePerson(t, s, "per-1", "usr-42", "Ana")

	hijack := *p
	hijack.UserID = "usr-99"
	hijack.Name = "Hack"
	err := s.UpdatePerson(ctx, &hijack)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong owner, got %v", err)
	}

	got, err := s.GetPerson(ctx, "per-1")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if got.Name != "Ana" || got.UserID != "usr-42" {
		t.Errorf("record changed: %+v", got)
	}

	p.Name = "Ana Maria"
	p.City = "Recife"
	p.UpdatedAt = time.Now().Add(time.Minute)
	if err := s.UpdatePerson(ctx, p); err != nil {
		t.Fatalf("UpdatePerson: %v", err)
	}
	got, _ = s.GetPerson(ctx, "per-1")
	if got.Name != "Ana Maria" || got.City != "Recife" {
		t.Errorf("update not applied: %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("expected updated_at after created_at")
	}
}

func TestUpdatePerson_NeverWritesCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "a@example.com")
	p := mustCreatePerson(t, s, "per-1", "usr-1", "Ana")
	original, _ := s.GetPerson(ctx, p.ID)

	p.CreatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.UpdatePerson(ctx, p); err != nil {
		t.Fatalf("UpdatePerson: %v", err)
	}
	got, _ := s.GetPerson(ctx, p.ID)
	if !got.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("created_at changed from %v to %v", original.CreatedAt, got.CreatedAt)
	}
}

func TestUpdatePerson_KeepsPhotoRef(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "a@example.com")
	mustCreatePerson(t, s, "per-1", "usr-1", "Ana")

	stale, err := s.GetPerson(ctx, "per-1")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if err := s.SetPersonPhoto(ctx, "per-1", "usr-1", "media:new"); err != nil {
		t.Fatalf("SetPersonPhoto: %v", err)
	}

	stale.City = "Recife"
	stale.UpdatedAt = time.Now().Add(time.Second)
	if err := s.UpdatePerson(ctx, stale); err != nil {
		t.Fatalf("UpdatePerson: %v", err)
	}

	got, _ := s.GetPerson(ctx, "per-1")
	if got.PhotoRef != "media:new" {
		t.Errorf("a stale update overwrote the photo: got %q", got.PhotoRef)
	}
	if got.City != "Recife" {
		t.Errorf("City: got %q", got.City)
	}
}

func TestUpdatePerson_ScoreOutOfRangeRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "a@example.com")
	p := mustCreatePerson(t, s, "per-1", "usr-1", "Ana")

	p.Importance = 9
	if err := s.UpdatePerson(ctx, p); !errors.Is(err, store.ErrRejected) {
		t.Fatalf("expected ErrRejected from the check constraint, got %v", err)
	}
}

func TestSetPersonPhoto(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "a@example.com")
	mustCreatePerson(t, s, "per-1", "usr-1", "Ana")

	if err := s.SetPersonPhoto(ctx, "per-1", "usr-1", "media:xyz"); err != nil {
		t.Fatalf("SetPersonPhoto: %v", err)
	}
	got, _ := s.GetPerson(ctx, "per-1")
	if got.PhotoRef != "media:xyz" {
		t.Errorf("PhotoRef: got %q", got.PhotoRef)
	}

	if err := s.SetPersonPhoto(ctx, "per-1", "usr-2", "media:evil"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for wrong owner, got %v", err)
	}
}

func TestDeletePerson_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "a@example.com")
	mustCreatePerson(t, s, "per-1", "usr-1", "Ana")
	mustCreatePerson(t, s, "per-2", "usr-1", "Bruno")
	mustCreatePerson(t, s, "per-3", "usr-1", "Carla")
	mustCreateTag(t, s, "tag-1", "usr-1", "Volunteer")

	for _, pid := range []string{"per-1", "per-2"} {
		if _, err := s.AttachTag(ctx, pid, "tag-1"); err != nil {
			t.Fatalf("AttachTag(%s): %v", pid, err)
		}
	}
	now := time.Now()
	rels := []*domain.Relationship{
		{ID: "rel-1", UserID: "usr-1", PersonAID: "per-1", PersonBID: "per-2", Strength: 3, CreatedAt: now, UpdatedAt: now},
		{ID: "rel-2", UserID: "usr-1", PersonAID: "per-2", PersonBID: "per-3", Strength: 3, CreatedAt: now, UpdatedAt: now},
	}
	for _, r := range rels {
		if err := s.CreateRelationship(ctx, r); err != nil {
			t.Fatalf("CreateRelationship(%s): %v", r.ID, err)
		}
	}

	if err := s.DeletePerson(ctx, "per-1", "usr-1"); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}

	if _, err := s.GetPerson(ctx, "per-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("person still present: %v", err)
	}
	tags, err := s.ListTagsForPerson(ctx, "per-1")
	if err != nil {
		t.Fatalf("ListTagsForPerson: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("expected no tags for deleted person, got %d", len(tags))
	}
	tags, _ = s.ListTagsForPerson(ctx, "per-2")
	if len(tags) != 1 {
		t.Errorf("other person's association must survive, got %d tags", len(tags))
	}
	if _, err := s.GetRelationship(ctx, "rel-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("relationship touching the deleted person survived: %v", err)
	}
	if _, err := s.GetRelationship(ctx, "rel-2"); err != nil {
		t.Errorf("unrelated relationship removed: %v", err)
	}
}

func TestDeletePerson_WrongOwnerIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "a@example.com")
	mustCreatePerson(t, s, "per-1", "usr-1", "Ana")
	mustCreateTag(t, s, "tag-1", "usr-1", "Volunteer")
	if _, err := s.AttachTag(ctx, "per-1", "tag-1"); err != nil {
		t.Fatalf("AttachTag: %v", err)
	}

	if err := s.DeletePerson(ctx, "per-1", "usr-2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// The transaction rolled back, so the association is still there.
	tags, _ := s.ListTagsForPerson(ctx, "per-1")
	if len(tags) != 1 {
		t.Errorf("expected association to survive a rolled back delete, got %d", len(tags))
	}
}

func TestListAllPeople(t *testing.T) {
	s := newTestStore(t)
	mustCreateUser(t, s, "usr-1", "a@example.com")
	mustCreateUser(t, s, "usr-2", "b@example.com")
	mustCreatePerson(t, s, "per-1", "usr-1", "Ana")
	mustCreatePerson(t, s, "per-2", "usr-2", "Bruno")

	people, err := s.ListAllPeople(context.Background())
	if err != nil {
		t.Fatalf("ListAllPeople: %v", err)
	}
	if len(people) != 2 {
		t.Errorf("expected 2 people, got %d", len(people))
	}
}
