package postgres

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/types"
)

type shotModel struct {
	grove.BaseModel `grove:"table:vial_shots"`

	ID        string    `grove:"id,pk"`
	Date      string    `grove:"date"`
	Brand     string    `grove:"brand"`
	ShotType  string    `grove:"shot_type"`
	AmountMl  string    `grove:"amount_ml"`
	AmountMg  string    `grove:"amount_mg"`
	Location  string    `grove:"location"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toShotModel(shotID id.ShotID, f shot.Fields, e types.Entity) *shotModel {
	return &shotModel{
		ID:        shotID.String(),
		Date:      f.Date,
		Brand:     f.Brand,
		ShotType:  f.Type,
		AmountMl:  f.AmountMl,
		AmountMg:  f.AmountMg,
		Location:  f.Location,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func fromShotModel(m *shotModel) (*shot.Shot, error) {
	shotID, err := id.ParseShotID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("row %q: %w", m.ID, err)
	}
	return &shot.Shot{
		Entity: types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:     shotID,
		Fields: shot.Fields{
			Date:     m.Date,
			Brand:    m.Brand,
			Type:     m.ShotType,
			AmountMl: m.AmountMl,
			AmountMg: m.AmountMg,
			Location: m.Location,
		},
	}, nil
}
