package domain

// CatalogCard is a reference row of the shared card catalog.
type CatalogCard struct {
	CatalogID       string   `json:"catalog_id"`
	Name            string   `json:"name"`
	SetCode         string   `json:"set_code"`
	CollectorNumber string   `json:"collector_number"`
	TypeLine        string   `json:"type_line"`
	Rarity          string   `json:"rarity"`
	Colors          []string `json:"colors"`
}

// Identity builds a stack identity for the card in the given finish.
func (c *CatalogCard) Identity(finish Finish) StackIdentity {
	if finish == "" {
		finish = FinishNonfoil
	}
	return StackIdentity{
		CatalogID:       c.CatalogID,
		Name:            c.Name,
		SetCode:         c.SetCode,
		CollectorNumber: c.CollectorNumber,
		Finish:          finish,
	}
}

// Attributes returns the typed grouping attributes.
func (c *CatalogCard) Attributes() CardAttributes {
	return CardAttributes{TypeLine: c.TypeLine, Rarity: c.Rarity, Colors: c.Colors}
}
