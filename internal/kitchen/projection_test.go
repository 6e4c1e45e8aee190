package kitchen_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-tableside/internal/kitchen"
	"ms-tableside/internal/models"
)

type stubOrderSource struct {
	active []models.Order
}

func (s *stubOrderSource) ListActive(_ context.Context) ([]models.Order, error) {
	return s.active, nil
}

type stubTicketSource struct {
	sent []models.Ticket
	togo []models.Ticket
}

func (s *stubTicketSource) ListOpenSent(_ context.Context) ([]models.Ticket, error) {
	return s.sent, nil
}

func (s *stubTicketSource) ListOpenTogo(_ context.Context) ([]models.Ticket, error) {
	return s.togo, nil
}

func TestActiveOrdersNormalizesMissingItemStatus(t *testing.T) {
	orders := &stubOrderSource{active: []models.Order{
		{
			ID: "ord_1",
			Items: []models.LineItem{
				{ItemID: "itm_1", Status: ""},
				{ItemID: "itm_2", Status: models.ItemReady},
			},
		},
	}}
	projection := kitchen.NewProjection(orders, &stubTicketSource{})

	result, err := projection.ActiveOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)

	// Items written before status tracking read as received.
	assert.Equal(t, models.ItemReceived, result[0].Items[0].Status)
	assert.Equal(t, models.ItemReady, result[0].Items[1].Status)
}

func TestExpoAndTogoViews(t *testing.T) {
	tickets := &stubTicketSource{
		sent: []models.Ticket{{ID: "tkt_sent", Items: []models.LineItem{{ItemID: "itm_1"}}}},
		togo: []models.Ticket{{ID: "tkt_togo"}},
	}
	projection := kitchen.NewProjection(&stubOrderSource{}, tickets)

	expo, err := projection.ExpoTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, expo, 1)
	assert.Equal(t, "tkt_sent", expo[0].ID)
	assert.Equal(t, models.ItemReceived, expo[0].Items[0].Status)

	togo, err := projection.TogoTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, togo, 1)
	assert.Equal(t, "tkt_togo", togo[0].ID)
}
