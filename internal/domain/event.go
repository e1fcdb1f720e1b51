package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// EstimateRequest is the wire form of an estimate request, shared by the Kafka
// source topic, the HTTP API, and the CLI.
//
// Area is optional: when absent the image is sent to the vision analyzer, and
// when both are absent the fallback distribution is used.
type EstimateRequest struct {
	ID                string             `json:"id,omitempty" yaml:"id,omitempty"`
	Area              *AreaDistribution  `json:"area,omitempty" yaml:"area,omitempty"`
	Image             []byte             `json:"image,omitempty" yaml:"-"` // base64 in JSON
	ImageMIMEType     string             `json:"imageMimeType,omitempty" yaml:"imageMimeType,omitempty"`
	Business          BusinessParameters `json:"business" yaml:"business"`
	Screenshot        ScreenshotMetadata `json:"screenshot" yaml:"screenshot"`
	Junctions         JunctionSequence   `json:"junctions,omitempty" yaml:"junctions,omitempty"`
	CompetitorDensity CompetitorDensity  `json:"competitorDensity,omitempty" yaml:"competitorDensity,omitempty"`
}

// LocationEstimate is the enriched result published to the sink topic and
// returned by the HTTP API. The *Source fields record where each collaborator
// input came from (see the Source* constants).
type LocationEstimate struct {
	RequestID      string        `json:"requestId"`
	PlaceName      string        `json:"placeName,omitempty"`
	GeoSource      string        `json:"geoSource,omitempty"`
	AreaSource     string        `json:"areaSource"`
	JunctionSource string        `json:"junctionSource"`
	VisionProvider string        `json:"visionProvider,omitempty"`
	Metrics        MetricsResult `json:"metrics"`
	ComputedAt     time.Time     `json:"computedAt"`
}
