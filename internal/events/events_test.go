package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routelink/internal/models"
)

func TestRiderRemovedWireShape(t *testing.T) {
	raw, err := json.Marshal(NewRiderRemoved(12, 3, "2025-03-01"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"link_deleted","id":12,"route_id":3,"date":"2025-03-01"}`, string(raw))
}

func TestRiderJoinedCarriesLink(t *testing.T) {
	e := NewRiderJoined(models.DatedLink{Link: models.Link{ID: 5, Name: "Asha"}, RouteID: 3, Date: "2025-03-01"})
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "link_created", got["type"])
	assert.NotContains(t, got, "id", "the link id lives in the link payload")
	link := got["link"].(map[string]any)
	assert.EqualValues(t, 5, link["id"])
	assert.EqualValues(t, 3, link["route_id"])
	assert.Equal(t, "2025-03-01|3", e.Key())
}
