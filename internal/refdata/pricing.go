package refdata

import (
	"context"
	"net/http"
	"net/url"
)

// Pricing talks to the price-comparison service.
type Pricing struct {
	httpClient
}

var _ ProductCatalog = (*Pricing)(nil)

func NewPricing(baseURL string, client *http.Client) *Pricing {
	return &Pricing{newHTTPClient(baseURL, client)}
}

// ProductsByOrganizationNumber lists the contracts a balance supplier has
// registered with the price-comparison service.
func (p *Pricing) ProductsByOrganizationNumber(ctx context.Context, orgNumber string) ([]Product, error) {
	var out []Product
	path := "/organizations/" + url.PathEscape(orgNumber) + "/products"
	if err := p.doJSON(ctx, "pricing.productsByOrgNumber", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
