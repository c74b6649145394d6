package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "rfdiff API",
		Version:     "v1",
		Description: "Command construction and execution for RFdiffusion protein structure generation",
		Endpoints: []endpointInfo{
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
			{"/api/v1/parameters", []string{"GET"}, "Catalog of job parameters"},
			{"/api/v1/parameters/{name}", []string{"GET"}, "Single parameter descriptor"},
			{"/api/v1/commands", []string{"POST"}, "Build the command line for a parameter set without running it"},
			{"/api/v1/runs", []string{"GET", "POST"}, "Run ledger. POST starts a run in the background"},
			{"/api/v1/runs/{id}", []string{"GET"}, "Single run record"},
		},
	})
}
