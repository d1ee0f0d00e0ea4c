package http

import (
	"github.com/nats-io/nats.go"

	natsadapter "github.com/gemfoundation/exposure/internal/adapters/nats"
	"github.com/gemfoundation/exposure/internal/adapters/postgres"
	"github.com/gemfoundation/exposure/internal/adapters/valkey"
	"github.com/gemfoundation/exposure/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Exports      *usecases.ExportService
	Forms        *usecases.FormService
	Calculations *usecases.CalculationService
	Auth         *Authenticator
	NATS         *nats.Conn
	Broker       *natsadapter.Publisher
	DB           *postgres.DB
	Cache        *valkey.Cache
}
