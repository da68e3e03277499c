package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kestrelbio/forager/pkg/models"
)

const pubmedBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubMedAgent searches biomedical literature through the PubMed
// E-utilities. esearch supplies the ranked PMID list; esummary fills in
// titles and journals. The esearch order is the source ranking.
type PubMedAgent struct {
	client     *http.Client
	baseURL    string
	maxResults int
}

// NewPubMedAgent creates the literature agent.
// A nil client falls back to http.DefaultClient.
func NewPubMedAgent(client *http.Client, maxResults int) *PubMedAgent {
	if client == nil {
		client = http.DefaultClient
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &PubMedAgent{
		client:     client,
		baseURL:    pubmedBaseURL,
		maxResults: maxResults,
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (a *PubMedAgent) SetBaseURL(u string) {
	a.baseURL = u
}

// Name implements Agent.
func (a *PubMedAgent) Name() string {
	return string(models.CapabilityLiterature)
}

// Capability implements Agent.
func (a *PubMedAgent) Capability() models.Capability {
	return models.CapabilityLiterature
}

type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedSummaryResponse struct {
	// Result maps each PMID to its summary document; the "uids" entry is
	// an array and is skipped during per-id decoding.
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedSummary struct {
	Title       string `json:"title"`
	FullJournal string `json:"fulljournalname"`
}

// Execute implements Agent.
func (a *PubMedAgent) Execute(ctx context.Context, query models.Query) ([]models.Evidence, error) {
	term := query.Text
	if query.TherapeuticArea != "" {
		term = term + " AND " + query.TherapeuticArea
	}

	var search pubmedSearchResponse
	err := getJSON(ctx, a.client, a.baseURL+"/esearch.fcgi", url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmax":  {strconv.Itoa(a.maxResults)},
		"sort":    {"relevance"},
		"retmode": {"json"},
	}, &search)
	if err != nil {
		return nil, NewError(a.Name(), err)
	}

	pmids := search.ESearchResult.IDList
	if len(pmids) == 0 {
		return []models.Evidence{}, nil
	}

	var summaries pubmedSummaryResponse
	err = getJSON(ctx, a.client, a.baseURL+"/esummary.fcgi", url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"json"},
	}, &summaries)
	if err != nil {
		return nil, NewError(a.Name(), err)
	}

	evidence := make([]models.Evidence, 0, len(pmids))
	for i, pmid := range pmids {
		raw, ok := summaries.Result[pmid]
		if !ok {
			continue
		}
		var s pubmedSummary
		if err := json.Unmarshal(raw, &s); err != nil || s.Title == "" {
			continue
		}
		evidence = append(evidence, models.Evidence{
			Source:     a.Name(),
			Capability: a.Capability(),
			Key:        models.ContentKey(s.Title, pmid),
			Title:      s.Title,
			Rank:       i + 1,
			Payload: models.Payload{
				Kind: models.PayloadArticle,
				Article: &models.ArticlePayload{
					PMID:    pmid,
					Journal: s.FullJournal,
					URL:     "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
				},
			},
		})
	}
	return evidence, nil
}
