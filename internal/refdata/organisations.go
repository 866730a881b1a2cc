package refdata

import (
	"context"
	"net/http"
	"net/url"
)

// Organisations talks to the organisation registry.
type Organisations struct {
	httpClient
}

var _ OrganisationDirectory = (*Organisations)(nil)

func NewOrganisations(baseURL string, client *http.Client) *Organisations {
	return &Organisations{newHTTPClient(baseURL, client)}
}

// PartyByIDAndType fetches a market party by its identifier and party type
// (organization number or GLN).
func (o *Organisations) PartyByIDAndType(ctx context.Context, id, partyType string) (OrganisationParty, error) {
	var out OrganisationParty
	path := "/parties/" + url.PathEscape(id) + "?type=" + url.QueryEscape(partyType)
	if err := o.doJSON(ctx, "organisations.partyByIdAndType", http.MethodGet, path, nil, &out); err != nil {
		return OrganisationParty{}, err
	}
	return out, nil
}
