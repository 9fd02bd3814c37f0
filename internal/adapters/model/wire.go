package model

import "encoding/json"

// metadataResponse is GET /v2/models/{id}
type metadataResponse struct {
	Name       string   `json:"name"`
	Versions   []string `json:"versions,omitempty"`
	Platform   string   `json:"platform"`
	Parameters struct {
		ID2Label map[string]string `json:"id2label"`
		Device   string            `json:"device"`
	} `json:"parameters"`
}

// inferRequest is POST /v2/models/{id}/infer
type inferRequest struct {
	ID         string         `json:"id,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Inputs     []tensor       `json:"inputs"`
	Outputs    []outputSpec   `json:"outputs,omitempty"`
}

type outputSpec struct {
	Name string `json:"name"`
}

type tensor struct {
	Name       string          `json:"name"`
	Shape      []int           `json:"shape"`
	Datatype   string          `json:"datatype"`
	Parameters map[string]any  `json:"parameters,omitempty"`
	Data       json.RawMessage `json:"data"`
}

type inferResponse struct {
	ModelName string   `json:"model_name"`
	ID        string   `json:"id,omitempty"`
	Outputs   []tensor `json:"outputs"`
}

// errorResponse is the KServe error body
type errorResponse struct {
	Error string `json:"error"`
}

const (
	outLogits     = "logits"
	outAttentions = "attentions"
)
