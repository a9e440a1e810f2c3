// internal/models/area_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreaValid(t *testing.T) {
	assert.True(t, Area{Acres: 5, Decimals: 50}.Valid())
	assert.True(t, Area{}.Valid())
	assert.False(t, Area{Acres: 1, Decimals: 100}.Valid())
	assert.False(t, Area{Acres: -1, Decimals: 0}.Valid())
	assert.False(t, Area{Acres: 0, Decimals: -1}.Valid())
}

func TestAreaIsZero(t *testing.T) {
	assert.True(t, Area{}.IsZero())
	assert.False(t, Area{Decimals: 1}.IsZero())
	assert.False(t, Area{Acres: 1}.IsZero())
}

func TestAreaCovers(t *testing.T) {
	five := Area{Acres: 5, Decimals: 0}

	assert.True(t, five.Covers(Area{Acres: 4, Decimals: 99}))
	assert.True(t, five.Covers(five))
	assert.False(t, five.Covers(Area{Acres: 5, Decimals: 1}))
}

func TestAreaSubBorrowsDecimals(t *testing.T) {
	got := Area{Acres: 5, Decimals: 25}.Sub(Area{Acres: 2, Decimals: 75})
	assert.Equal(t, Area{Acres: 2, Decimals: 50}, got)

	got = Area{Acres: 3, Decimals: 0}.Sub(Area{Acres: 0, Decimals: 1})
	assert.Equal(t, Area{Acres: 2, Decimals: 99}, got)

	got = Area{Acres: 3, Decimals: 40}.Sub(Area{Acres: 3, Decimals: 40})
	assert.True(t, got.IsZero())
}

func TestAreaLess(t *testing.T) {
	assert.True(t, Area{Acres: 1, Decimals: 99}.Less(Area{Acres: 2, Decimals: 0}))
	assert.False(t, Area{Acres: 2, Decimals: 0}.Less(Area{Acres: 2, Decimals: 0}))
}
