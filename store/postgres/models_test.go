package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/types"
)

func TestShotModelRoundTrip(t *testing.T) {
	shotID := id.NewShotID()
	e := types.Entity{
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	f := shot.Fields{Date: "2024-01-02", Brand: "Humalog", Type: "rapid", AmountMl: "abc", AmountMg: "11", Location: "arm"}

	m := toShotModel(shotID, f, e)
	assert.Equal(t, shotID.String(), m.ID)
	assert.Equal(t, "rapid", m.ShotType)

	got, err := fromShotModel(m)
	require.NoError(t, err)
	assert.Equal(t, shotID, got.ID)
	assert.Equal(t, f, got.Fields, "malformed amounts are kept as written")
	assert.Equal(t, e, got.Entity)
}

func TestFromShotModelRejectsForeignIDs(t *testing.T) {
	_, err := fromShotModel(&shotModel{ID: "plan_01h2xcejqtf2nbrexx3vqjhp41"})
	assert.ErrorIs(t, err, id.ErrInvalid)
}
