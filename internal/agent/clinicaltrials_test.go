package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kestrelbio/forager/pkg/models"
)

const ctFixture = `{
  "studies": [
    {"protocolSection": {
      "identificationModule": {"nctId": "NCT00000001", "briefTitle": "Trastuzumab in HER2+ Breast Cancer"},
      "statusModule": {"overallStatus": "RECRUITING"},
      "designModule": {"phases": ["PHASE3"]}
    }},
    {"protocolSection": {
      "identificationModule": {"nctId": "NCT00000002", "briefTitle": "Pertuzumab Combination Study"},
      "statusModule": {"overallStatus": "COMPLETED"},
      "designModule": {}
    }}
  ]
}`

func TestClinicalTrialsAgent_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/studies" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("query.term"); got == "" {
			t.Error("query.term should be set")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(ctFixture))
	}))
	defer srv.Close()

	a := NewClinicalTrialsAgent(srv.Client(), 10)
	a.SetBaseURL(srv.URL)

	evidence, err := a.Execute(context.Background(), models.Query{Text: "HER2 breast cancer"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(evidence) != 2 {
		t.Fatalf("got %d evidence items, want 2", len(evidence))
	}
	if evidence[0].Rank != 1 || evidence[1].Rank != 2 {
		t.Errorf("ranks = %d,%d, want 1,2", evidence[0].Rank, evidence[1].Rank)
	}
	if evidence[0].Payload.Kind != models.PayloadTrial {
		t.Errorf("payload kind = %q, want trial", evidence[0].Payload.Kind)
	}
	if evidence[0].Payload.Trial.NCTID != "NCT00000001" {
		t.Errorf("nct id = %q", evidence[0].Payload.Trial.NCTID)
	}
	if evidence[0].Payload.Trial.Phase != "PHASE3" {
		t.Errorf("phase = %q, want PHASE3", evidence[0].Payload.Trial.Phase)
	}
}

func TestClinicalTrialsAgent_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewClinicalTrialsAgent(srv.Client(), 10)
	a.SetBaseURL(srv.URL)

	_, err := a.Execute(context.Background(), models.Query{Text: "x"})
	if err == nil {
		t.Fatal("expected error on 502")
	}
	if Kind(err) != KindFailure {
		t.Errorf("Kind = %q, want failure", Kind(err))
	}
}

func TestClinicalTrialsAgent_HonorsContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	a := NewClinicalTrialsAgent(srv.Client(), 10)
	a.SetBaseURL(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Execute(ctx, models.Query{Text: "x"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if Kind(err) != KindTimeout {
		t.Errorf("Kind = %q, want timeout", Kind(err))
	}
}
