package agent

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kestrelbio/forager/pkg/models"
)

const clinicalTrialsBaseURL = "https://clinicaltrials.gov/api/v2"

// ClinicalTrialsAgent searches the ClinicalTrials.gov v2 API.
// Result order from the API is taken as the source ranking.
type ClinicalTrialsAgent struct {
	client     *http.Client
	baseURL    string
	maxResults int
}

// NewClinicalTrialsAgent creates the clinical-trials agent.
// A nil client falls back to http.DefaultClient.
func NewClinicalTrialsAgent(client *http.Client, maxResults int) *ClinicalTrialsAgent {
	if client == nil {
		client = http.DefaultClient
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &ClinicalTrialsAgent{
		client:     client,
		baseURL:    clinicalTrialsBaseURL,
		maxResults: maxResults,
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (a *ClinicalTrialsAgent) SetBaseURL(u string) {
	a.baseURL = u
}

// Name implements Agent.
func (a *ClinicalTrialsAgent) Name() string {
	return string(models.CapabilityClinicalTrials)
}

// Capability implements Agent.
func (a *ClinicalTrialsAgent) Capability() models.Capability {
	return models.CapabilityClinicalTrials
}

type ctStudiesResponse struct {
	Studies []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			StatusModule struct {
				OverallStatus string `json:"overallStatus"`
			} `json:"statusModule"`
			DesignModule struct {
				Phases []string `json:"phases"`
			} `json:"designModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

// Execute implements Agent.
func (a *ClinicalTrialsAgent) Execute(ctx context.Context, query models.Query) ([]models.Evidence, error) {
	term := query.Text
	if query.TherapeuticArea != "" {
		term = term + " " + query.TherapeuticArea
	}

	params := url.Values{
		"format":     {"json"},
		"query.term": {term},
		"pageSize":   {strconv.Itoa(a.maxResults)},
	}

	var resp ctStudiesResponse
	if err := getJSON(ctx, a.client, a.baseURL+"/studies", params, &resp); err != nil {
		return nil, NewError(a.Name(), err)
	}

	evidence := make([]models.Evidence, 0, len(resp.Studies))
	for i, study := range resp.Studies {
		ident := study.ProtocolSection.IdentificationModule
		if ident.NCTID == "" {
			continue
		}
		phase := ""
		if phases := study.ProtocolSection.DesignModule.Phases; len(phases) > 0 {
			phase = phases[0]
		}
		evidence = append(evidence, models.Evidence{
			Source:     a.Name(),
			Capability: a.Capability(),
			Key:        models.ContentKey(ident.BriefTitle, ident.NCTID),
			Title:      ident.BriefTitle,
			Rank:       i + 1,
			Payload: models.Payload{
				Kind: models.PayloadTrial,
				Trial: &models.TrialPayload{
					NCTID:  ident.NCTID,
					Status: study.ProtocolSection.StatusModule.OverallStatus,
					Phase:  phase,
					URL:    "https://clinicaltrials.gov/study/" + ident.NCTID,
				},
			},
		})
	}
	return evidence, nil
}
