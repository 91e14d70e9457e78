package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/communitymapper/community-mapper/internal/domain"
)

func openRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestPeople_HeaderAndRows(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	people := []*domain.Person{
		{ID: "per-1", Name: "Ana", Context: "social", Proximity: "primeiro",
			Importance: 5, TrustLevel: 4, InfluenceLevel: 3, IsCandidate: true,
			City: "Recife", CreatedAt: now, UpdatedAt: now},
		{ID: "per-2", Name: "Bruno", Context: "work", Proximity: "segundo",
			Importance: 3, TrustLevel: 3, InfluenceLevel: 3, CreatedAt: now, UpdatedAt: now},
	}
	tags := map[string][]string{"per-1": {"Donor", "Volunteer"}}

	data, err := People(people, tags)
	require.NoError(t, err)

	rows := openRows(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0][:len(Headers)])

	assert.Equal(t, "Ana", rows[1][0])
	assert.Equal(t, "5", rows[1][3])
	assert.Equal(t, "yes", rows[1][8])
	assert.Equal(t, "Recife", rows[1][13])
	assert.Equal(t, "Donor, Volunteer", rows[1][14])

	assert.Equal(t, "Bruno", rows[2][0])
	assert.Equal(t, "no", rows[2][8])
}

func TestPeople_Empty(t *testing.T) {
	data, err := People(nil, nil)
	require.NoError(t, err)

	rows := openRows(t, data)
	require.Len(t, rows, 1)
	assert.Equal(t, "Name", rows[0][0])
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "people-2024-05-01.xlsx", FileName("2024-05-01"))
}
