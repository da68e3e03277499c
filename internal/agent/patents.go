package agent

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kestrelbio/forager/pkg/models"
)

const usptoBaseURL = "https://developer.uspto.gov/ibd-api/v1"

// PatentsAgent searches published patent applications through the USPTO
// IBD API. The API's relevance order is the source ranking.
type PatentsAgent struct {
	client     *http.Client
	baseURL    string
	maxResults int
}

// NewPatentsAgent creates the patents agent.
// A nil client falls back to http.DefaultClient.
func NewPatentsAgent(client *http.Client, maxResults int) *PatentsAgent {
	if client == nil {
		client = http.DefaultClient
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &PatentsAgent{
		client:     client,
		baseURL:    usptoBaseURL,
		maxResults: maxResults,
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (a *PatentsAgent) SetBaseURL(u string) {
	a.baseURL = u
}

// Name implements Agent.
func (a *PatentsAgent) Name() string {
	return string(models.CapabilityPatents)
}

// Capability implements Agent.
func (a *PatentsAgent) Capability() models.Capability {
	return models.CapabilityPatents
}

type usptoResponse struct {
	Response struct {
		Docs []struct {
			ApplicationNumberText string `json:"applicationNumberText"`
			InventionTitle        string `json:"inventionTitle"`
			AssigneeEntityName    string `json:"assigneeEntityName"`
		} `json:"docs"`
	} `json:"response"`
}

// Execute implements Agent.
func (a *PatentsAgent) Execute(ctx context.Context, query models.Query) ([]models.Evidence, error) {
	term := query.Text
	if query.TherapeuticArea != "" {
		term = term + " " + query.TherapeuticArea
	}

	params := url.Values{
		"searchText": {term},
		"start":      {"0"},
		"rows":       {strconv.Itoa(a.maxResults)},
	}

	var resp usptoResponse
	if err := getJSON(ctx, a.client, a.baseURL+"/patent/application", params, &resp); err != nil {
		return nil, NewError(a.Name(), err)
	}

	evidence := make([]models.Evidence, 0, len(resp.Response.Docs))
	for i, doc := range resp.Response.Docs {
		if doc.InventionTitle == "" {
			continue
		}
		evidence = append(evidence, models.Evidence{
			Source:     a.Name(),
			Capability: a.Capability(),
			Key:        models.ContentKey(doc.InventionTitle, doc.ApplicationNumberText),
			Title:      doc.InventionTitle,
			Rank:       i + 1,
			Payload: models.Payload{
				Kind: models.PayloadPatent,
				Patent: &models.PatentPayload{
					ApplicationNumber: doc.ApplicationNumberText,
					Assignee:          doc.AssigneeEntityName,
				},
			},
		})
	}
	return evidence, nil
}
