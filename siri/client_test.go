package siri

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lily-mara/transit-kindle/fetch"
	"github.com/lily-mara/transit-kindle/snapshot"
)

const deliveryJSON = `{
  "ServiceDelivery": {
    "StopMonitoringDelivery": {
      "MonitoredStopVisit": [
        {
          "MonitoredVehicleJourney": {
            "LineRef": "14",
            "DirectionRef": "IB",
            "DestinationName": "Mission + Steuart",
            "MonitoredCall": {
              "StopPointRef": "13911",
              "ExpectedArrivalTime": "2024-05-10T12:05:00Z"
            }
          }
        },
        {
          "MonitoredVehicleJourney": {
            "LineRef": "49",
            "DirectionRef": "OB",
            "MonitoredCall": {
              "StopPointRef": "13911"
            }
          }
        },
        {
          "MonitoredVehicleJourney": {
            "LineRef": "22",
            "DirectionRef": "IB",
            "DestinationName": "Fillmore",
            "MonitoredCall": {
              "StopPointRef": "99999",
              "ExpectedArrivalTime": "2024-05-10T12:09:00Z"
            }
          }
        }
      ]
    }
  }
}`

func testServer(t *testing.T, body []byte, status int) (*httptest.Server, *http.Request) {
	t.Helper()

	captured := &http.Request{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = *r
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(server.Close)

	return server, captured
}

func testClient(server *httptest.Server) *Client {
	client := NewClient("secret")
	client.BaseURL = server.URL
	return client
}

func TestClientFetchFiltersToRequestedStops(t *testing.T) {
	// The delivery is prefixed with a UTF-8 BOM, as real agencies
	// serve it.
	body := append([]byte{0xef, 0xbb, 0xbf}, []byte(deliveryJSON)...)
	server, captured := testServer(t, body, http.StatusOK)

	records, err := testClient(server).Fetch(context.Background(), "SF", []string{"13911"})
	require.NoError(t, err)

	// The journey at stop 99999 was not requested and is discarded.
	require.Len(t, records, 2)
	assert.Equal(t, snapshot.RawArrival{
		Line:            "14",
		Direction:       "IB",
		Destination:     "Mission + Steuart",
		StopID:          "13911",
		ExpectedArrival: "2024-05-10T12:05:00Z",
	}, records[0])

	query := captured.URL.Query()
	assert.Equal(t, "secret", query.Get("api_key"))
	assert.Equal(t, "SF", query.Get("agency"))
	assert.Equal(t, "json", query.Get("format"))
}

func TestClientFetchPreservesAbsentFields(t *testing.T) {
	server, _ := testServer(t, []byte(deliveryJSON), http.StatusOK)

	records, err := testClient(server).Fetch(context.Background(), "SF", []string{"13911"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// The second journey lacks destination and arrival time; it's
	// carried through absent, not errored, and not complete.
	assert.Equal(t, "", records[1].Destination)
	assert.Equal(t, "", records[1].ExpectedArrival)
	assert.False(t, records[1].Complete())
	assert.True(t, records[0].Complete())
}

func TestClientFetchUpstreamStatus(t *testing.T) {
	server, _ := testServer(t, nil, http.StatusServiceUnavailable)

	_, err := testClient(server).Fetch(context.Background(), "SF", []string{"13911"})
	require.Error(t, err)

	var statusErr *fetch.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestClientFetchMalformedEnvelope(t *testing.T) {
	server, _ := testServer(t, []byte(`{"ServiceDelivery": []}`), http.StatusOK)

	_, err := testClient(server).Fetch(context.Background(), "SF", []string{"13911"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding stop monitoring envelope")
}

func TestClientFetchEmptyDelivery(t *testing.T) {
	server, _ := testServer(t, []byte(`{"ServiceDelivery": {}}`), http.StatusOK)

	records, err := testClient(server).Fetch(context.Background(), "SF", []string{"13911"})
	require.NoError(t, err)
	assert.Empty(t, records)
}
