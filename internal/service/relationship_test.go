package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
)

func TestRelationshipCreate(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	ana := env.person(t, "usr-42", "Ana")
	bruno := env.person(t, "usr-42", "Bruno")
	ctx := context.Background()

	// Pass the ids highest first; storage always keeps the lower id in A.
	hi, lo := ana.ID, bruno.ID
	if hi < lo {
		hi, lo = lo, hi
	}
	rel, err := env.rels.Create(ctx, "usr-42", RelationshipInput{PersonAID: hi, PersonBID: lo, Type: "friend"})
	require.NoError(t, err)
	assert.Equal(t, lo, rel.PersonAID)
	assert.Equal(t, hi, rel.PersonBID)
	assert.Equal(t, 3, rel.Strength)

	_, err = env.rels.Create(ctx, "usr-42", RelationshipInput{PersonAID: lo, PersonBID: hi, Type: "colleague"})
	requireCode(t, domainerrors.CodeAlreadyExists, err)

	rels, err := env.rels.ListForPerson(ctx, "usr-42", ana.ID)
	require.NoError(t, err)
	assert.Len(t, rels, 1, "(A,B) and (B,A) collapse to one edge")
}

func TestRelationshipCreate_Rejections(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	env.user(t, "usr-99", "other@example.com")
	ana := env.person(t, "usr-42", "Ana")
	bruno := env.person(t, "usr-42", "Bruno")
	zed := env.person(t, "usr-99", "Zed")
	ctx := context.Background()

	tests := []struct {
		name string
		in   RelationshipInput
		want domainerrors.Code
	}{
		{"self edge", RelationshipInput{PersonAID: ana.ID, PersonBID: ana.ID, Type: "friend"}, domainerrors.CodeValidation},
		{"missing type", RelationshipInput{PersonAID: ana.ID, PersonBID: bruno.ID}, domainerrors.CodeValidation},
		{"strength out of range", RelationshipInput{PersonAID: ana.ID, PersonBID: bruno.ID, Type: "friend", Strength: ptr(9)}, domainerrors.CodeValidation},
		{"missing person id", RelationshipInput{PersonAID: ana.ID, Type: "friend"}, domainerrors.CodeValidation},
		{"unknown person", RelationshipInput{PersonAID: ana.ID, PersonBID: "per-missing", Type: "friend"}, domainerrors.CodeNotFound},
		{"foreign person", RelationshipInput{PersonAID: ana.ID, PersonBID: zed.ID, Type: "friend"}, domainerrors.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.rels.Create(ctx, "usr-42", tt.in)
			requireCode(t, tt.want, err)
		})
	}

	rels, err := env.rels.ListForPerson(ctx, "usr-42", ana.ID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRelationshipUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	env.user(t, "usr-99", "other@example.com")
	ana := env.person(t, "usr-42", "Ana")
	bruno := env.person(t, "usr-42", "Bruno")
	ctx := context.Background()

	rel, err := env.rels.Create(ctx, "usr-42", RelationshipInput{PersonAID: ana.ID, PersonBID: bruno.ID, Type: "friend", Strength: ptr(2)})
	require.NoError(t, err)

	_, err = env.rels.Update(ctx, "usr-99", rel.ID, RelationshipPatch{Strength: ptr(5)})
	requireCode(t, domainerrors.CodeForbidden, err)
	_, err = env.rels.Update(ctx, "usr-42", rel.ID, RelationshipPatch{Strength: ptr(0)})
	requireCode(t, domainerrors.CodeValidation, err)

	updated, err := env.rels.Update(ctx, "usr-42", rel.ID, RelationshipPatch{Type: ptr("colleague"), Strength: ptr(5), Notes: ptr("same union")})
	require.NoError(t, err)
	assert.Equal(t, "colleague", updated.Type)
	assert.Equal(t, 5, updated.Strength)
	assert.Equal(t, "same union", updated.Notes)
	assert.Equal(t, rel.PersonAID, updated.PersonAID)

	_, err = env.rels.ListForPerson(ctx, "usr-99", ana.ID)
	requireCode(t, domainerrors.CodeForbidden, err)

	err = env.rels.Delete(ctx, "usr-99", rel.ID)
	requireCode(t, domainerrors.CodeForbidden, err)
	require.NoError(t, env.rels.Delete(ctx, "usr-42", rel.ID))
	err = env.rels.Delete(ctx, "usr-42", rel.ID)
	requireCode(t, domainerrors.CodeNotFound, err)
}
