package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

type signup struct {
	Kind  string `json:"kind" validate:"required,oneof=hazard risk"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(point{Lat: 45.5, Lng: 8.25}))
	assert.NoError(t, Struct(signup{Kind: "risk"}))
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(point{Lat: 91, Lng: -181})
	require.Error(t, err)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "lat", verr.Fields[0].Field)
	assert.Equal(t, "lat must be a valid latitude (-90 to 90)", verr.Fields[0].Message)
	assert.Equal(t, "lng", verr.Fields[1].Field)
	assert.Equal(t, "longitude", verr.Fields[1].Tag)
}

func TestStruct_ParamMessages(t *testing.T) {
	err := Struct(signup{Kind: "exposure", Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, "kind must be one of: hazard risk; email must be a valid email address", err.Error())
}
