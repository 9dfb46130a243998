package ibclient

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tradingboat/tbot/src/eventmodels"
)

// RoutingTable decides which exchange an order is routed to. The built-in
// defaults cover the common case; a YAML file can override routing per
// ticker for venues like NASDAQ-only symbols.
type RoutingTable struct {
	Defaults  map[string]string `yaml:"defaults"`
	Overrides []RoutingOverride `yaml:"overrides"`
	byTicker  map[string]string
}

type RoutingOverride struct {
	Ticker   string `yaml:"ticker"`
	Exchange string `yaml:"exchange"`
}

func DefaultRoutingTable() *RoutingTable {
	t := &RoutingTable{
		Defaults: map[string]string{
			string(eventmodels.ContractStock):  "SMART",
			string(eventmodels.ContractForex):  "IDEALPRO",
			string(eventmodels.ContractCrypto): "PAXOS",
		},
	}

	t.index()
	return t
}

// LoadRoutingTable reads overrides from a YAML file. An empty path returns
// the defaults.
func LoadRoutingTable(path string) (*RoutingTable, error) {
	table := DefaultRoutingTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRoutingTable: %w", err)
	}

	if err := yaml.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("LoadRoutingTable: parse %s: %w", path, err)
	}

	for kind, def := range DefaultRoutingTable().Defaults {
		if _, ok := table.Defaults[kind]; !ok {
			if table.Defaults == nil {
				table.Defaults = make(map[string]string)
			}
			table.Defaults[kind] = def
		}
	}

	table.index()
	return table, nil
}

func (t *RoutingTable) index() {
	t.byTicker = make(map[string]string, len(t.Overrides))
	for _, o := range t.Overrides {
		t.byTicker[o.Ticker] = o.Exchange
	}
}

func (t *RoutingTable) Exchange(kind eventmodels.ContractKind, ticker string) string {
	if exchange, ok := t.byTicker[ticker]; ok {
		return exchange
	}

	return t.Defaults[string(kind)]
}
