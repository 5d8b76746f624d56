package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InstrumentsConfig is the venue-symbol mapping, contract-size table,
// and step-size table of spec §3. One mapping table drives all three
// per {base, venue, market_type}.
type InstrumentsConfig struct {
	Instruments []InstrumentEntry `yaml:"instruments"`
}

// InstrumentEntry is one {base, venue, market_type} → venue_symbol
// mapping plus its contract multiplier and step size.
type InstrumentEntry struct {
	Base              string  `yaml:"base"`
	Venue             string  `yaml:"venue"`
	MarketType        string  `yaml:"market_type"` // "perp" | "spot"
	VenueSymbol       string  `yaml:"venue_symbol"`
	ContractMultiplier float64 `yaml:"contract_multiplier"` // defaults to 1.0 when absent/zero
	StepSize          float64 `yaml:"step_size"`
}

// LoadInstrumentsConfig reads the instrument mapping table from YAML.
func LoadInstrumentsConfig(path string) (*InstrumentsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruments config: %w", err)
	}
	var cfg InstrumentsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse instruments config: %w", err)
	}
	for i := range cfg.Instruments {
		if cfg.Instruments[i].ContractMultiplier <= 0 {
			cfg.Instruments[i].ContractMultiplier = 1.0
		}
	}
	return &cfg, nil
}

// Table is the resolved lookup structure built from InstrumentsConfig,
// keyed by {base, venue}.
type Table struct {
	byKey map[instrumentKey]InstrumentEntry
}

type instrumentKey struct {
	base  string
	venue string
}

func (c *InstrumentsConfig) BuildTable() *Table {
	t := &Table{byKey: make(map[instrumentKey]InstrumentEntry, len(c.Instruments))}
	for _, e := range c.Instruments {
		t.byKey[instrumentKey{base: e.Base, venue: e.Venue}] = e
	}
	return t
}

// VenueSymbol resolves the venue-native symbol for a base.
func (t *Table) VenueSymbol(base, venue string) (string, bool) {
	e, ok := t.byKey[instrumentKey{base: base, venue: venue}]
	return e.VenueSymbol, ok
}

// ContractMultiplier resolves {venue, base} → multiplier, defaulting to
// 1.0 when the pair is not configured (spec §3 invariant).
func (t *Table) ContractMultiplier(base, venue string) float64 {
	e, ok := t.byKey[instrumentKey{base: base, venue: venue}]
	if !ok || e.ContractMultiplier <= 0 {
		return 1.0
	}
	return e.ContractMultiplier
}

// BaseForSymbol reverse-resolves a venue-native symbol back to its
// canonical base, used by the CLI surface when a pair is specified as
// venue:symbol rather than by base (spec §6 md-aggregator --pairs flag).
func (t *Table) BaseForSymbol(venue, symbol string) (string, bool) {
	for k, e := range t.byKey {
		if k.venue == venue && e.VenueSymbol == symbol {
			return e.Base, true
		}
	}
	return "", false
}

// StepSize resolves {venue, base} → step size.
func (t *Table) StepSize(base, venue string) float64 {
	e, ok := t.byKey[instrumentKey{base: base, venue: venue}]
	if !ok {
		return 0
	}
	return e.StepSize
}
