package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagsFromLevelCascadesDownward(t *testing.T) {
	tests := []struct {
		level Level
		want  Flags
	}{
		{LevelNone, Flags{}},
		{LevelView, Flags{CanView: true}},
		{LevelEdit, Flags{CanView: true, CanEdit: true}},
		{LevelCreate, Flags{CanView: true, CanEdit: true, CanCreate: true}},
		{LevelDelete, AllFlags},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, FlagsFromLevel(tt.level))

			level, ok := LevelFromFlags(tt.want)
			assert.True(t, ok)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestLevelFromFlagsAmbiguous(t *testing.T) {
	cases := []Flags{
		{CanDelete: true},
		{CanEdit: true},
		{CanView: true, CanCreate: true},
		{CanView: true, CanEdit: true, CanDelete: true},
	}
	for _, f := range cases {
		_, ok := LevelFromFlags(f)
		assert.False(t, ok, "%+v", f)
	}
}

func TestInvalidLevelGrantsNothing(t *testing.T) {
	assert.False(t, Level("owner").Valid())
	assert.Equal(t, Flags{}, FlagsFromLevel("owner"))
}

func TestPagePermissionFlagsRoundTrip(t *testing.T) {
	var p PagePermission
	f := Flags{CanDelete: true, CanCreate: true}
	p.SetFlags(f)

	assert.Equal(t, f, p.Flags())
	assert.True(t, f.Any())
	assert.False(t, Flags{}.Any())
}

func TestIsCatalogPage(t *testing.T) {
	assert.True(t, IsCatalogPage("clients"))
	assert.False(t, IsCatalogPage("payroll"))
	assert.Len(t, DefaultPages, 10)
}
