package vial

import (
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
	"github.com/xraph/vial/types"
)

// Re-export common types so callers rarely need the sub-packages.

// Volume is re-exported from types package.
type Volume = types.Volume

// Shot is re-exported from shot package.
type Shot = shot.Shot

// Fields is re-exported from shot package.
type Fields = shot.Fields

// State is re-exported from supply package.
type State = supply.State

// Re-export Volume constructors
var (
	Ml          = types.Ml
	ParseVolume = types.ParseVolume
	ZeroVolume  = types.ZeroVolume
)
