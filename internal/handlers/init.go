package handlers

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pringgosatmoko/Creativestudio/internal/generate"
	"github.com/pringgosatmoko/Creativestudio/internal/keypool"
	"github.com/pringgosatmoko/Creativestudio/internal/ledger"
	"github.com/pringgosatmoko/Creativestudio/internal/pricing"
	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
	"github.com/pringgosatmoko/Creativestudio/pkg/monitoring"
)

var (
	db          *sql.DB
	logger      logging.Logger
	store       *ledger.Store
	prices      *pricing.Service
	coordinator *generate.Coordinator
	pool        *keypool.Pool
	metrics     *BursarMetrics
)

// BursarMetrics tracks generation and billing activity.
type BursarMetrics struct {
	GenerationsTotal  *prometheus.CounterVec
	CreditsSpentTotal *prometheus.CounterVec
	RotationsTotal    *prometheus.CounterVec
	TopupsTotal       *prometheus.CounterVec
}

// NewBursarMetrics registers the service metrics on the shared collector.
func NewBursarMetrics(mc *monitoring.MetricsCollector) *BursarMetrics {
	return &BursarMetrics{
		GenerationsTotal: mc.NewCounter(
			"generations_total",
			"Generation requests by kind and outcome",
			[]string{"kind", "outcome"},
		),
		CreditsSpentTotal: mc.NewCounter(
			"credits_spent_total",
			"Credits debited from member balances by kind",
			[]string{"kind"},
		),
		RotationsTotal: mc.NewCounter(
			"credential_rotations_total",
			"Credential rotations performed while serving requests",
			[]string{"kind"},
		),
		TopupsTotal: mc.NewCounter(
			"topups_total",
			"Topup requests by decision",
			[]string{"decision"},
		),
	}
}

// Init wires the handlers with their dependencies.
func Init(database *sql.DB, log logging.Logger, ledgerStore *ledger.Store, priceService *pricing.Service, coord *generate.Coordinator, keyPool *keypool.Pool, m *BursarMetrics) {
	db = database
	logger = log
	store = ledgerStore
	prices = priceService
	coordinator = coord
	pool = keyPool
	metrics = m
}
