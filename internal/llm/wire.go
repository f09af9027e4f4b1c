package llm

import "time"

// ExtractResponse is the success body of POST /api/extract.
type ExtractResponse struct {
	Data           DocumentFields `json:"data"`
	Model          string         `json:"model"`
	RequestedModel string         `json:"requestedModel,omitempty"`
	Cost           float64        `json:"cost"`
	ProcessingTime float64        `json:"processingTime"` // seconds
	Warnings       []string       `json:"warnings,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (r Result) Response() ExtractResponse {
	return ExtractResponse{
		Data:           r.Fields,
		Model:          r.Model,
		RequestedModel: r.RequestedModel,
		Cost:           r.Cost,
		ProcessingTime: r.ProcessingTime.Seconds(),
		Warnings:       r.Warnings,
	}
}

func (r ExtractResponse) Result() Result {
	requested := r.RequestedModel
	if requested == "" {
		requested = r.Model
	}
	return Result{
		Fields:         r.Data,
		Model:          r.Model,
		RequestedModel: requested,
		Cost:           r.Cost,
		ProcessingTime: time.Duration(r.ProcessingTime * float64(time.Second)),
		Warnings:       r.Warnings,
	}
}
