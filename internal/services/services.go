// internal/services/services.go
package services

import (
	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/templates"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

// Services bundles the engine components sharing one store and clock.
type Services struct {
	Negotiations *NegotiationService
	Contracts    *ContractService
	Workflows    *WorkflowService
	Revenue      *RevenueService
	Disputes     *DisputeService
}

type Options struct {
	Store     repository.Store
	Templates *templates.Registry
	Licensing config.LicensingConfig
	Documents DocumentLocator
	Gateway   SettlementGateway
	Clock     utils.Clock
	Logger    *logrus.Logger
}

func New(opts Options) *Services {
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	negotiations := NewNegotiationService(opts.Store, opts.Licensing, opts.Clock, opts.Logger)
	contracts := NewContractService(opts.Store, negotiations, opts.Documents, opts.Licensing, opts.Clock, opts.Logger)
	disputes := NewDisputeService(opts.Store, opts.Clock, opts.Logger)

	return &Services{
		Negotiations: negotiations,
		Contracts:    contracts,
		Workflows:    NewWorkflowService(opts.Store, contracts, opts.Templates, opts.Licensing, opts.Clock, opts.Logger),
		Revenue:      NewRevenueService(opts.Store, disputes, opts.Gateway, opts.Clock, opts.Logger),
		Disputes:     disputes,
	}
}
