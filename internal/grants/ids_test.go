package grants

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/springfield-isd/grants-assistant/internal/model"
)

func TestFindOpportunityID_FirstKnownMatchWins(t *testing.T) {
	s := testStore(
		model.Grant{OpportunityID: "123456"},
		model.Grant{OpportunityID: "654321"},
	)

	id, ok := s.FindOpportunityID("compare 123456 with 654321 please")
	assert.True(t, ok)
	assert.Equal(t, "123456", id)
}

func TestFindOpportunityID_SkipsUnknownIDs(t *testing.T) {
	s := testStore(model.Grant{OpportunityID: "654321"})

	// 999999 looks like an ID but is not in the dataset; scanning continues.
	id, ok := s.FindOpportunityID("is 999999 the same as 654321?")
	assert.True(t, ok)
	assert.Equal(t, "654321", id)
}

func TestFindOpportunityID_NeverReturnsAbsentID(t *testing.T) {
	s := testStore(model.Grant{OpportunityID: "123456"})

	_, ok := s.FindOpportunityID("tell me about 999999")
	assert.False(t, ok)
}

func TestFindOpportunityID_RequiresSixToSevenDigits(t *testing.T) {
	s := testStore(
		model.Grant{OpportunityID: "12345"},
		model.Grant{OpportunityID: "1234567"},
	)

	// Five digits never match even when the dataset holds such a key.
	_, ok := s.FindOpportunityID("grant 12345")
	assert.False(t, ok)

	id, ok := s.FindOpportunityID("grant 1234567")
	assert.True(t, ok)
	assert.Equal(t, "1234567", id)

	// Eight consecutive digits are not a 6-7 digit token.
	_, ok = s.FindOpportunityID("grant 12345678")
	assert.False(t, ok)
}

func TestFindOpportunityID_NoDigits(t *testing.T) {
	s := testStore(model.Grant{OpportunityID: "123456"})

	_, ok := s.FindOpportunityID("what STEM grants are available?")
	assert.False(t, ok)
}
