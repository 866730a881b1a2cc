// Package process validates incoming account-change models against the rules
// of each energy-market flow and turns them into normalized commands for the
// authorization core.
package process

import (
	"time"

	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
)

// Model is the raw, untrusted input for one account-change process.
// RequestedFrom and RequestedTo carry national identity numbers; RequestedBy
// carries the balance supplier's GLN.
type Model struct {
	Process              authorization.ProcessType `json:"process"`
	RequestedFromName    string                    `json:"requestedFromName"`
	BalanceSupplierName  string                    `json:"balanceSupplierName"`
	ContractName         string                    `json:"contractName"`
	MeteringPointID      string                    `json:"meteringPointId"`
	MeteringPointAddress string                    `json:"meteringPointAddress"`
	RequestedBy          string                    `json:"requestedBy"`
	RequestedFrom        string                    `json:"requestedFrom"`
	RequestedTo          string                    `json:"requestedTo"`
	StartDate            *time.Time                `json:"startDate,omitempty"`
}

// Property keys carried on the resulting command.
const (
	PropRequestedFromName    = "requestedFromName"
	PropBalanceSupplierName  = "balanceSupplierName"
	PropContractName         = "contractName"
	PropMeteringPointAddress = "meteringPointAddress"
	PropMeterNumber          = "meterNumber"
	PropStartDate            = "startDate"
)
