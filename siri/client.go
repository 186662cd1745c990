// Package siri fetches and decodes SIRI StopMonitoring deliveries, the
// JSON flavor served by 511-style regional transit APIs.
package siri

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/spkg/bom"

	"github.com/lily-mara/transit-kindle/fetch"
	"github.com/lily-mara/transit-kindle/snapshot"
)

const (
	DefaultBaseURL = "https://api.511.org/transit/StopMonitoring"
	DefaultTimeout = 30 * time.Second
	DefaultMaxSize = 1 << 20 // 1 MB
)

// The StopMonitoring envelope. Optional journey fields decode to their
// zero value and are carried through as absent; only a structurally
// malformed envelope fails the call.
type stopMonitoringResponse struct {
	ServiceDelivery struct {
		StopMonitoringDelivery struct {
			MonitoredStopVisit []struct {
				MonitoredVehicleJourney struct {
					LineRef         string
					DirectionRef    string
					DestinationName string
					MonitoredCall   struct {
						ExpectedArrivalTime string
						StopPointRef        string
					}
				}
			}
		}
	}
}

// Client fetches stop monitoring data, one HTTP request per agency. It
// does not retry; retry policy belongs to the caller.
type Client struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	MaxSize int
	Getter  fetch.Getter
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Timeout: DefaultTimeout,
		MaxSize: DefaultMaxSize,
		Getter:  fetch.GetterFunc(fetch.HTTPGet),
	}
}

// Fetch retrieves the current stop monitoring delivery for one agency
// and returns the journeys calling at the requested stops. Agencies
// commonly return data for stops beyond those requested; anything not in
// stopIDs is discarded.
func (c *Client) Fetch(ctx context.Context, agency string, stopIDs []string) ([]snapshot.RawArrival, error) {
	query := url.Values{
		"api_key": {c.APIKey},
		"agency":  {agency},
		"format":  {"json"},
	}

	body, err := c.Getter.Get(ctx, c.BaseURL+"?"+query.Encode(), nil, fetch.Options{
		Timeout: c.Timeout,
		MaxSize: c.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching stop monitoring for %s: %w", agency, err)
	}

	// Some agencies serve the JSON with a unicode BOM prefix.
	var delivery stopMonitoringResponse
	decoder := json.NewDecoder(bom.NewReader(bytes.NewReader(body)))
	if err := decoder.Decode(&delivery); err != nil {
		return nil, fmt.Errorf("decoding stop monitoring envelope for %s: %w", agency, err)
	}

	requested := make(map[string]bool, len(stopIDs))
	for _, id := range stopIDs {
		requested[id] = true
	}

	records := []snapshot.RawArrival{}
	for _, visit := range delivery.ServiceDelivery.StopMonitoringDelivery.MonitoredStopVisit {
		journey := visit.MonitoredVehicleJourney
		if !requested[journey.MonitoredCall.StopPointRef] {
			continue
		}
		records = append(records, snapshot.RawArrival{
			Line:            journey.LineRef,
			Direction:       journey.DirectionRef,
			Destination:     journey.DestinationName,
			StopID:          journey.MonitoredCall.StopPointRef,
			ExpectedArrival: journey.MonitoredCall.ExpectedArrivalTime,
		})
	}

	return records, nil
}
