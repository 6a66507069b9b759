package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultIntegrationErrorLimit caps a seller's integration error log
const DefaultIntegrationErrorLimit = 100

// TaxService identifies the tax provider a seller uses for a country.
type TaxService string

const (
	TaxServiceTaxJar   TaxService = "TaxJar"
	TaxServiceAvalara  TaxService = "Avalara"
	TaxServiceQuaderno TaxService = "Quaderno"
	TaxServiceNone     TaxService = "none"
)

// ParseTaxService returns the matching TaxService, falling back to none.
func ParseTaxService(s string) TaxService {
	for _, ts := range []TaxService{TaxServiceTaxJar, TaxServiceAvalara, TaxServiceQuaderno} {
		if strings.EqualFold(s, string(ts)) {
			return ts
		}
	}
	return TaxServiceNone
}

// SellerMetrics holds the aggregate counters kept on a seller
type SellerMetrics struct {
	Revenue       float64   `bson:"revenue" json:"revenue"`
	Views         int64     `bson:"views" json:"views"`
	Customers     int64     `bson:"customers" json:"customers"`
	Orders        int64     `bson:"orders" json:"orders"`
	OutOfStock    int64     `bson:"outOfStock" json:"outOfStock"`
	LastUpdatedAt time.Time `bson:"lastUpdatedAt,omitempty" json:"lastUpdatedAt,omitempty"`
}

// MetricsDelta is an additive change to the seller counters
type MetricsDelta struct {
	Revenue   float64
	Views     int64
	Customers int64
	Orders    int64
}

// TaxSetting is the per-country tax configuration
type TaxSetting struct {
	Country   string     `bson:"country" json:"country"`
	Service   TaxService `bson:"service" json:"service"`
	Rate      float64    `bson:"rate,omitempty" json:"rate,omitempty"`
	Nexus     bool       `bson:"nexus" json:"nexus"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// ProviderConnection is the connection metadata a seller holds for a provider
type ProviderConnection struct {
	Provider   string         `bson:"provider" json:"provider"`
	ExternalID string         `bson:"externalId,omitempty" json:"externalId,omitempty"`
	Status     string         `bson:"status,omitempty" json:"status,omitempty"`
	LastEvent  string         `bson:"lastEvent,omitempty" json:"lastEvent,omitempty"`
	Metadata   map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	UpdatedAt  time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// IntegrationError is one entry of a seller's integration error log
type IntegrationError struct {
	Provider  string    `bson:"provider" json:"provider"`
	Event     string    `bson:"event,omitempty" json:"event,omitempty"`
	Code      ErrorCode `bson:"code" json:"code"`
	Message   string    `bson:"message" json:"message"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// LedgerEntryKind distinguishes ledger history entries
type LedgerEntryKind string

const (
	LedgerEntryWithdrawal  LedgerEntryKind = "withdrawal"
	LedgerEntryTransaction LedgerEntryKind = "transaction"
)

// LedgerEntry is a withdrawal or transaction recorded against the seller.
type LedgerEntry struct {
	Kind       LedgerEntryKind `bson:"kind" json:"kind"`
	Reference  string          `bson:"reference" json:"reference"`
	Provider   string          `bson:"provider" json:"provider"`
	Amount     float64         `bson:"amount" json:"amount"`
	Currency   string          `bson:"currency,omitempty" json:"currency,omitempty"`
	Status     string          `bson:"status,omitempty" json:"status,omitempty"`
	RecordedAt time.Time       `bson:"recordedAt" json:"recordedAt"`
	UpdatedAt  time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Seller is the tenant aggregate. The seller's core identity is owned elsewhere;
// this service only mutates the fields below.
type Seller struct {
	ID                primitive.ObjectID            `bson:"_id,omitempty" json:"-"`
	SellerID          string                        `bson:"sellerId" json:"sellerId"`
	Name              string                        `bson:"name,omitempty" json:"name,omitempty"`
	Metrics           SellerMetrics                 `bson:"metrics" json:"metrics"`
	TaxSettings       map[string]TaxSetting         `bson:"taxSettings,omitempty" json:"taxSettings,omitempty"`
	Connections       map[string]ProviderConnection `bson:"connections,omitempty" json:"connections,omitempty"`
	IntegrationErrors []IntegrationError            `bson:"integrationErrors,omitempty" json:"integrationErrors,omitempty"`
	Ledger            []LedgerEntry                 `bson:"ledger,omitempty" json:"ledger,omitempty"`
	CreatedAt         time.Time                     `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time                     `bson:"updatedAt" json:"updatedAt"`
}

func (s *Seller) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// ApplyMetricsDelta adds the delta to the current counters
func (s *Seller) ApplyMetricsDelta(d MetricsDelta) {
	s.Metrics.Revenue = addMoney(s.Metrics.Revenue, d.Revenue)
	s.Metrics.Views += d.Views
	s.Metrics.Customers += d.Customers
	s.Metrics.Orders += d.Orders
	s.Metrics.LastUpdatedAt = time.Now().UTC()
	s.touch()
}

// ReplaceMetrics overwrites the counters, used for full resyncs from analytics providers.
func (s *Seller) ReplaceMetrics(m SellerMetrics) {
	m.LastUpdatedAt = time.Now().UTC()
	s.Metrics = m
	s.touch()
}

// SetOutOfStockCount replaces the out-of-stock counter
func (s *Seller) SetOutOfStockCount(n int64) {
	if n < 0 {
		n = 0
	}
	s.Metrics.OutOfStock = n
	s.Metrics.LastUpdatedAt = time.Now().UTC()
	s.touch()
}

// SetTaxSetting replaces the tax configuration for a country
func (s *Seller) SetTaxSetting(country string, service string, rate float64, nexus bool) TaxSetting {
	country = strings.ToUpper(strings.TrimSpace(country))
	if s.TaxSettings == nil {
		s.TaxSettings = make(map[string]TaxSetting)
	}
	setting := TaxSetting{
		Country:   country,
		Service:   ParseTaxService(service),
		Rate:      rate,
		Nexus:     nexus,
		UpdatedAt: time.Now().UTC(),
	}
	s.TaxSettings[country] = setting
	s.touch()
	return setting
}

// SetConnection replaces the connection metadata held for a provider
func (s *Seller) SetConnection(conn ProviderConnection) {
	if s.Connections == nil {
		s.Connections = make(map[string]ProviderConnection)
	}
	conn.UpdatedAt = time.Now().UTC()
	s.Connections[conn.Provider] = conn
	s.touch()
}

// RecordConnectionEvent stamps the last event seen from a provider, creating the connection if needed.
func (s *Seller) RecordConnectionEvent(provider string, event EventName) {
	conn, ok := s.Connections[provider]
	if !ok {
		conn = ProviderConnection{Provider: provider}
	}
	conn.LastEvent = string(event)
	s.SetConnection(conn)
}

// RecordIntegrationError appends to the error log, evicting the oldest entries
// beyond limit. It returns the number of evicted entries.
func (s *Seller) RecordIntegrationError(entry IntegrationError, limit int) int {
	if limit <= 0 {
		limit = DefaultIntegrationErrorLimit
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.IntegrationErrors = append(s.IntegrationErrors, entry)
	evicted := 0
	if over := len(s.IntegrationErrors) - limit; over > 0 {
		s.IntegrationErrors = append([]IntegrationError(nil), s.IntegrationErrors[over:]...)
		evicted = over
	}
	s.touch()
	return evicted
}

// AppendLedgerEntry records a withdrawal or transaction
func (s *Seller) AppendLedgerEntry(entry LedgerEntry) {
	now := time.Now().UTC()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = now
	}
	entry.UpdatedAt = now
	s.Ledger = append(s.Ledger, entry)
	s.touch()
}

// UpdateLedgerStatus changes the status of the most recent entry with the given reference.
func (s *Seller) UpdateLedgerStatus(kind LedgerEntryKind, reference, status string) error {
	for i := len(s.Ledger) - 1; i >= 0; i-- {
		if s.Ledger[i].Kind == kind && s.Ledger[i].Reference == reference {
			s.Ledger[i].Status = status
			s.Ledger[i].UpdatedAt = time.Now().UTC()
			s.touch()
			return nil
		}
	}
	return ErrLedgerNotFound
}

func addMoney(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}
