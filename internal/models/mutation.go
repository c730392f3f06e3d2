package models

// BanListUpdate is one requested ban-list change.
type BanListUpdate struct {
	CardID string   `json:"cardId"`
	Format Format   `json:"format"`
	Value  Severity `json:"value"`
}

// BanListBatchRequest is the PUT /api/admin/ban-list/batch body
type BanListBatchRequest struct {
	Updates []BanListUpdate `json:"updates" binding:"required"`
}

// MutationResult reports the outcome of a single requested update.
type MutationResult struct {
	CardID   string   `json:"cardId"`
	BaseID   string   `json:"baseId,omitempty"`
	Format   Format   `json:"format"`
	Value    Severity `json:"value"`
	Success  bool     `json:"success"`
	Affected int64    `json:"affected,omitempty"` // rows touched, base plus alternates
	Error    string   `json:"error,omitempty"`
}

type MutationSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BanListBatchResponse is the batch endpoint response
type BanListBatchResponse struct {
	Success bool             `json:"success"`
	BatchID string           `json:"batchId"`
	Version uint64           `json:"version"`
	Results []MutationResult `json:"results"`
	Summary MutationSummary  `json:"summary"`
}

// AttributeUpdateResponse is returned by PATCH /api/admin/cards/:id
type AttributeUpdateResponse struct {
	BaseID   string `json:"baseId"`
	Affected int64  `json:"affected"`
	Version  uint64 `json:"version"`
}
