package main

import "github.com/liamcoop/homeloan/application"

// API request and response models

// PredictResponse is returned by POST /api/v1/predict
type PredictResponse struct {
	Verdict  string   `json:"verdict" example:"Eligible"`
	Warnings []string `json:"warnings,omitempty"`
}

// FieldErrorResponse describes one rejected field
type FieldErrorResponse struct {
	Field   string `json:"field" example:"ApplicantIncome"`
	Code    string `json:"code" example:"OUT_OF_RANGE"`
	Message string `json:"message"`
}

// ValidationErrorResponse is returned with 422 when an application is rejected
type ValidationErrorResponse struct {
	Error   string               `json:"error"`
	Details string               `json:"details"`
	Fields  []FieldErrorResponse `json:"fields"`
}

// FieldResponse describes one application field
type FieldResponse struct {
	Name    string   `json:"name" example:"Property_Area"`
	Kind    string   `json:"kind" example:"categorical"`
	Options []string `json:"options,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// SchemaResponse is returned by GET /api/v1/schema
type SchemaResponse struct {
	Fields []FieldResponse `json:"fields"`
}

// HealthResponse is returned by GET /api/v1/health
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Pipeline string `json:"pipeline"`
	Database string `json:"database,omitempty"`
	Errors   int64  `json:"errors"`
	Warnings int64  `json:"warnings"`
}

func newSchemaResponse() SchemaResponse {
	fields := application.Fields()
	resp := SchemaResponse{Fields: make([]FieldResponse, len(fields))}
	for i, f := range fields {
		fr := FieldResponse{Name: f.Name, Kind: f.Kind.String(), Options: f.Options}
		if f.Kind == application.Numeric {
			lo, hi := f.Min, f.Max
			fr.Min, fr.Max = &lo, &hi
		}
		resp.Fields[i] = fr
	}
	return resp
}

func newValidationErrorResponse(err *application.ValidationError) ValidationErrorResponse {
	resp := ValidationErrorResponse{
		Error:   "application rejected",
		Details: err.Error(),
		Fields:  make([]FieldErrorResponse, len(err.Problems)),
	}
	for i, p := range err.Problems {
		resp.Fields[i] = FieldErrorResponse{
			Field:   p.FieldName(),
			Code:    string(p.Code()),
			Message: p.Error(),
		}
	}
	return resp
}
