package shipment

import (
	"encoding/json"
	"fmt"
	"time"
)

// TrackingResult is the parsed view of a tracking response. Raw keeps the
// carrier payload as received.
type TrackingResult struct {
	Raw    map[string]interface{}
	Status string
	Scans  []Scan
}

type Scan struct {
	Status       string
	Location     string
	Instructions string
	ScannedAt    time.Time
}

type trackResponse struct {
	ShipmentData []struct {
		Shipment struct {
			Status ShipmentStatus `json:"Status"`
			Scans  []struct {
				ScanDetail scanDetail `json:"ScanDetail"`
			} `json:"Scans"`
		} `json:"Shipment"`
	} `json:"ShipmentData"`
}

type scanDetail struct {
	Scan         string `json:"Scan"`
	ScanDateTime string `json:"ScanDateTime"`
	ScannedLoc   string `json:"ScannedLocation"`
	Instructions string `json:"Instructions"`
}

// ShipmentStatus decodes Shipment.Status, which the carrier sends either as a
// plain string or as an object carrying a Status field. Both are valid.
type ShipmentStatus struct {
	Text         string
	Location     string
	Instructions string
	At           string
}

func (s *ShipmentStatus) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		s.Text = text
		return nil
	}
	var obj struct {
		Status         string `json:"Status"`
		StatusLocation string `json:"StatusLocation"`
		Instructions   string `json:"Instructions"`
		StatusDateTime string `json:"StatusDateTime"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("shipment status is neither string nor object: %w", err)
	}
	s.Text = obj.Status
	s.Location = obj.StatusLocation
	s.Instructions = obj.Instructions
	s.At = obj.StatusDateTime
	return nil
}

var scanLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseScanTime(s string) time.Time {
	for _, layout := range scanLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseTracking decodes a tracking payload. An empty ShipmentData yields an
// empty Status rather than an error.
func ParseTracking(raw []byte) (TrackingResult, error) {
	var res trackResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return TrackingResult{}, fmt.Errorf("decode tracking: %w", err)
	}
	var rawMap map[string]interface{}
	if err := json.Unmarshal(raw, &rawMap); err != nil {
		return TrackingResult{}, fmt.Errorf("decode tracking: %w", err)
	}

	out := TrackingResult{Raw: rawMap, Scans: []Scan{}}
	if len(res.ShipmentData) == 0 {
		return out, nil
	}

	sh := res.ShipmentData[0].Shipment
	out.Status = sh.Status.Text
	for _, s := range sh.Scans {
		out.Scans = append(out.Scans, Scan{
			Status:       s.ScanDetail.Scan,
			Location:     s.ScanDetail.ScannedLoc,
			Instructions: s.ScanDetail.Instructions,
			ScannedAt:    parseScanTime(s.ScanDetail.ScanDateTime),
		})
	}
	return out, nil
}
