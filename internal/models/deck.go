package models

// DefaultCopyLimit is how many copies of an unrestricted card a deck may hold.
const DefaultCopyLimit = 3

// DeckEntry is one line of a submitted deck list.
type DeckEntry struct {
	CardID   string `json:"cardId" binding:"required"`
	Quantity int    `json:"quantity"`
}

type DeckValidationRequest struct {
	Format Format      `json:"format" binding:"required"`
	Cards  []DeckEntry `json:"cards" binding:"required"`
}

// DeckViolation describes a card whose copies exceed what the ban list allows.
// Copies of a base card and its alternates are counted together.
type DeckViolation struct {
	BaseID   string   `json:"baseId"`
	Name     string   `json:"name,omitempty"`
	Quantity int      `json:"quantity"`
	Allowed  int      `json:"allowed"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

type DeckValidationResponse struct {
	Format         Format          `json:"format"`
	Legal          bool            `json:"legal"`
	TotalCards     int             `json:"totalCards"`
	Violations     []DeckViolation `json:"violations"`
	UnknownCards   []string        `json:"unknownCards,omitempty"`
	CatalogVersion uint64          `json:"catalogVersion"`
}
