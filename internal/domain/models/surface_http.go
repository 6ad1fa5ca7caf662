package models

// Requests for the surface HTTP endpoints. Defined in domain so the Kafka
// handler validates payloads with the same rules.

// SampleRequest is one quote as sent by clients and on the samples topic.
type SampleRequest struct {
	Strike       *float64 `json:"strike" validate:"required,gt=0"`
	TimeToExpiry *float64 `json:"time_to_expiry" validate:"required,gt=0"`
	ImpliedVol   *float64 `json:"implied_vol" validate:"required,gte=0"`
}

// AddSamplesRequest accepts either a single sample at the top level or a
// batch under "samples". When "samples" is present the top-level fields are
// ignored.
type AddSamplesRequest struct {
	Strike       *float64        `json:"strike" validate:"required_without=Samples,omitempty,gt=0"`
	TimeToExpiry *float64        `json:"time_to_expiry" validate:"required_without=Samples,omitempty,gt=0"`
	ImpliedVol   *float64        `json:"implied_vol" validate:"required_without=Samples,omitempty,gte=0"`
	Samples      []SampleRequest `json:"samples" validate:"omitempty,max=10000,dive"`
}

// Items flattens the request into the samples to ingest.
func (r *AddSamplesRequest) Items() []SampleRequest {
	if r.Samples != nil {
		return r.Samples
	}
	return []SampleRequest{{
		Strike:       r.Strike,
		TimeToExpiry: r.TimeToExpiry,
		ImpliedVol:   r.ImpliedVol,
	}}
}

type PointRequest struct {
	Strike *float64 `query:"strike" json:"strike" validate:"required"`
	Time   *float64 `query:"time" json:"time" validate:"required"`
}

// GridRequest asks for a strike_steps × time_steps grid; zero selects the
// configured default resolution.
type GridRequest struct {
	StrikeSteps int `query:"strike_steps" json:"strike_steps" validate:"gte=0"`
	TimeSteps   int `query:"time_steps" json:"time_steps" validate:"gte=0"`
}
