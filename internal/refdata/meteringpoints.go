package refdata

import (
	"context"
	"net/http"
	"net/url"
)

// MeteringPoints talks to the metering point registry.
type MeteringPoints struct {
	httpClient
}

var _ MeteringPointDirectory = (*MeteringPoints)(nil)

func NewMeteringPoints(baseURL string, client *http.Client) *MeteringPoints {
	return &MeteringPoints{newHTTPClient(baseURL, client)}
}

// ByIDAndElhubInternalID fetches a metering point scoped to the resolved end
// user, so the registry can attach the end-user relationship to the snapshot.
func (m *MeteringPoints) ByIDAndElhubInternalID(ctx context.Context, id, elhubInternalID string) (MeteringPoint, error) {
	var out MeteringPoint
	path := "/metering-points/" + url.PathEscape(id) + "?elhubInternalId=" + url.QueryEscape(elhubInternalID)
	if err := m.doJSON(ctx, "meteringpoints.byIdAndInternalId", http.MethodGet, path, nil, &out); err != nil {
		return MeteringPoint{}, err
	}
	return out, nil
}
