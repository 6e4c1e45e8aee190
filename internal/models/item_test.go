package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-tableside/internal/models"
)

func TestLineTotalIncludesCustomizations(t *testing.T) {
	item := models.LineItem{
		UnitPrice: 90.0,
		Quantity:  3,
		Customizations: []models.Customization{
			{Name: "Add Bacon", Price: 10.0},
		},
	}
	assert.InDelta(t, 300.0, item.LineTotal(), 1e-9)

	item.Customizations = nil
	assert.InDelta(t, 270.0, item.LineTotal(), 1e-9)
}

func TestSumLineTotals(t *testing.T) {
	items := []models.LineItem{
		{ItemTotal: 180.0},
		{ItemTotal: 3.5},
	}
	assert.InDelta(t, 183.5, models.SumLineTotals(items), 1e-9)
	assert.Zero(t, models.SumLineTotals(nil))
}

func TestEffectiveStatusDefaultsToReceived(t *testing.T) {
	item := models.LineItem{}
	assert.Equal(t, models.ItemReceived, item.EffectiveStatus())

	item.Status = models.ItemCooking
	assert.Equal(t, models.ItemCooking, item.EffectiveStatus())
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, models.OrderCompleted.Terminal())
	assert.True(t, models.OrderCancelled.Terminal())
	assert.False(t, models.OrderPending.Terminal())
	assert.False(t, models.OrderReady.Terminal())
}
