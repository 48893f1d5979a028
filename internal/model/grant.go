// Package model defines the shared data types for the grants assistant.
package model

import "encoding/json"

// Grant represents one funding opportunity from the static dataset.
//
// OpportunityID is the unique key; records without one are dropped at load
// time. The core only interprets ID, Title, Description, Category, and Link —
// everything else is carried opaquely and serialized into prompt context
// as-is.
type Grant struct {
	OpportunityID         string   `json:"opportunityID"`
	OpportunityTitle      string   `json:"opportunityTitle"`
	OpportunityNumber     *string  `json:"opportunityNumber"`
	AgencyName            *string  `json:"agencyName"`
	Description           string   `json:"description"`
	PostDate              *string  `json:"postDate"`
	CloseDate             *string  `json:"closeDate"`
	CloseDateExplanation  *string  `json:"closeDateExplanation"`
	EstimatedFunding      *string  `json:"estimatedFunding"`
	AwardCeiling          *string  `json:"awardCeiling"`
	AwardFloor            *string  `json:"awardFloor"`
	EligibilityCodes      []string `json:"eligibilityCodes"`
	EligibilityDesc       *string  `json:"eligibilityDesc"`
	CFDANumbers           *string  `json:"cfdaNumbers"`
	OpportunityCategory   string   `json:"opportunityCategory"`
	FundingInstrumentType *string  `json:"fundingInstrumentType"`
	OpportunityStatus     *string  `json:"opportunityStatus"`
	AdditionalInfoURL     *string  `json:"additionalInfoUrl"`
	ExpectedAwards        *string  `json:"expectedAwards"`
	Link                  string   `json:"link,omitempty"`
}

// FinancialContext is the district's internal budget/financial document.
// It is loaded once at startup and passed through to prompts without any
// interpretation of its internal structure.
type FinancialContext = json.RawMessage
