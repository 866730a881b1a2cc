package refdata

import (
	"context"
	"net/http"
)

// Persons talks to the person registry.
type Persons struct {
	httpClient
}

var _ PersonDirectory = (*Persons)(nil)

// NewPersons creates a person registry client. A nil http.Client gets
// a bounded default timeout.
func NewPersons(baseURL string, client *http.Client) *Persons {
	return &Persons{newHTTPClient(baseURL, client)}
}

// FindOrCreateByNin resolves a national identity number to an internal person
// id, registering the person on first sight. The registry owns the
// find-or-create semantics; this call is idempotent.
func (p *Persons) FindOrCreateByNin(ctx context.Context, nin string) (Person, error) {
	var out Person
	err := p.doJSON(ctx, "persons.findOrCreate", http.MethodPost, "/persons", map[string]string{"nin": nin}, &out)
	if err != nil {
		return Person{}, err
	}
	return out, nil
}
