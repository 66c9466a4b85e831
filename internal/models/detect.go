package models

import "encoding/json"

// Detection is one detected object as reported by the AI service.
// Conf is a pointer so a missing confidence can be told apart from 0.
type Detection struct {
	Class        string          `json:"cls"`
	Conf         *float64        `json:"conf"`
	BboxXYWH     json.RawMessage `json:"bbox_xywh,omitempty"`
	BboxXYWHNorm json.RawMessage `json:"bbox_xywh_norm,omitempty"`
	TrackID      string          `json:"track_id,omitempty"`
}

// Bbox returns the bounding box to persist: normalized coordinates when
// present, pixel coordinates otherwise, nil when the detection has neither.
func (d *Detection) Bbox() json.RawMessage {
	if len(d.BboxXYWHNorm) > 0 {
		return d.BboxXYWHNorm
	}
	if len(d.BboxXYWH) > 0 {
		return d.BboxXYWH
	}
	return nil
}

// DetectResult is the JSON body of a successful AI detect call.
type DetectResult struct {
	Model      string      `json:"model,omitempty"`
	ImgW       *int        `json:"img_w,omitempty"`
	ImgH       *int        `json:"img_h,omitempty"`
	Detections []Detection `json:"detections"`
}

// SaveParams are the request-scoped persistence parameters accepted as
// query parameters by the inference endpoints. conf and imgsz are relayed
// to the AI service; the rest only matter when save=true.
type SaveParams struct {
	Save      bool     `form:"save"`
	Latitude  *float64 `form:"latitude"`
	Longitude *float64 `form:"longitude"`
	Source    string   `form:"source"`
	SourceRef string   `form:"source_ref"`
	Yaw       *float64 `form:"yaw"`
	Conf      *float64 `form:"conf"`
	ImgSz     *int     `form:"imgsz"`
}
