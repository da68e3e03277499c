// Package models contains the shared data types for forager.
// Types here are plain data with no behavior beyond validation and
// normalization; they are safe to share across packages and processes.
package models

import "strings"

// Capability identifies a research domain a worker agent can serve.
type Capability string

const (
	// CapabilityClinicalTrials covers clinical development pipeline and trial status.
	CapabilityClinicalTrials Capability = "clinical-trials"
	// CapabilityLiterature covers scientific publications and biomedical literature.
	CapabilityLiterature Capability = "literature"
	// CapabilityPatents covers IP monitoring and patent landscape.
	CapabilityPatents Capability = "patents"
	// CapabilityDeepResearch covers multi-step LLM-backed research.
	CapabilityDeepResearch Capability = "deep-research"
)

// Valid returns true if the capability is a known value.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityClinicalTrials, CapabilityLiterature, CapabilityPatents, CapabilityDeepResearch:
		return true
	default:
		return false
	}
}

// PayloadKind discriminates the closed set of evidence payload variants.
type PayloadKind string

const (
	// PayloadTrial is a clinical trial record.
	PayloadTrial PayloadKind = "trial"
	// PayloadArticle is a literature citation.
	PayloadArticle PayloadKind = "article"
	// PayloadPatent is a patent application record.
	PayloadPatent PayloadKind = "patent"
	// PayloadText is the generic fallback for free-form findings.
	PayloadText PayloadKind = "text"
)

// TrialPayload holds the structured fields of a clinical trial finding.
type TrialPayload struct {
	// NCTID is the ClinicalTrials.gov registry identifier.
	NCTID string `json:"nct_id"`
	// Status is the overall trial status (e.g., "RECRUITING").
	Status string `json:"status,omitempty"`
	// Phase is the trial phase, if reported.
	Phase string `json:"phase,omitempty"`
	// URL links to the public study page.
	URL string `json:"url,omitempty"`
}

// ArticlePayload holds the structured fields of a literature finding.
type ArticlePayload struct {
	// PMID is the PubMed identifier.
	PMID string `json:"pmid"`
	// Journal is the publication venue, if reported.
	Journal string `json:"journal,omitempty"`
	// URL links to the public abstract page.
	URL string `json:"url,omitempty"`
}

// PatentPayload holds the structured fields of a patent finding.
type PatentPayload struct {
	// ApplicationNumber is the patent application number.
	ApplicationNumber string `json:"application_number"`
	// Assignee is the named assignee, if reported.
	Assignee string `json:"assignee,omitempty"`
}

// Payload is a closed tagged variant carrying capability-specific detail.
// Exactly one variant field matching Kind is set; Text is the generic
// fallback used by agents without a structured schema.
type Payload struct {
	// Kind selects the variant.
	Kind PayloadKind `json:"kind"`
	// Trial is set when Kind is PayloadTrial.
	Trial *TrialPayload `json:"trial,omitempty"`
	// Article is set when Kind is PayloadArticle.
	Article *ArticlePayload `json:"article,omitempty"`
	// Patent is set when Kind is PayloadPatent.
	Patent *PatentPayload `json:"patent,omitempty"`
	// Text is set when Kind is PayloadText.
	Text string `json:"text,omitempty"`
}

// Evidence is one atomic finding produced by a worker agent.
// Evidence is immutable once emitted; the fusion engine combines
// entries but never mutates them.
type Evidence struct {
	// Source identifies the agent that produced this finding.
	Source string `json:"source"`
	// Capability is the research domain the finding belongs to.
	Capability Capability `json:"capability"`
	// Key is the stable content key used for cross-source deduplication.
	Key string `json:"key"`
	// Title is the human-readable one-line description.
	Title string `json:"title"`
	// Rank is this finding's 1-based position in its source's ordering.
	// Lower is more relevant per that source.
	Rank int `json:"rank"`
	// Confidence is the source's own confidence in [0,1], when supplied.
	Confidence *float64 `json:"confidence,omitempty"`
	// Payload carries capability-specific detail.
	Payload Payload `json:"payload"`
}

// ContentKey derives the deduplication key for a finding from its title
// and external reference. Normalization keeps the key stable across
// agents that report the same finding with cosmetic differences.
func ContentKey(title, ref string) string {
	k := normalize(title)
	if ref != "" {
		r := normalize(ref)
		if k == "" {
			return r
		}
		k = k + "|" + r
	}
	return k
}

// normalize lowercases and collapses internal whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Query is the immutable input to one research round.
type Query struct {
	// Text is the user's question, never mutated after creation.
	Text string `json:"text"`
	// TherapeuticArea optionally narrows the search domain.
	TherapeuticArea string `json:"therapeutic_area,omitempty"`
}
