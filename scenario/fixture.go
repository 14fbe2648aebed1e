package scenario

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v2"

	mathutil "github.com/michaelpento.lv/flashswap/utils/math"
)

// Outcome labels a fixture can expect besides an abort kind
const ExpectCommitted = "committed"

// Fixture describes a market, an executor and one flash swap route
type Fixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Tokens []Token `yaml:"tokens"`
	Pools  []Pool  `yaml:"pools"`

	Executor string            `yaml:"executor"`
	Funding  map[string]string `yaml:"funding"`

	Route  Route  `yaml:"route"`
	Expect string `yaml:"expect"`
}

// Token is an ERC20 known to the fixture
type Token struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
}

// Pool is a pool created through the factory and funded with reserves
type Pool struct {
	Name     string            `yaml:"name"`
	Pair     []string          `yaml:"pair"`
	Fee      uint32            `yaml:"fee"`
	Reserves map[string]string `yaml:"reserves"`
}

// Route is the flash swap to run. Minimums are either both given, in units
// of the token they apply to, or both omitted so that they are planned from
// quotes with SlippageBps tolerance.
type Route struct {
	LendingPool  string `yaml:"lending_pool"`
	SwapPool     string `yaml:"swap_pool"`
	Borrow       string `yaml:"borrow"`
	Intermediate string `yaml:"intermediate"`
	Amount       string `yaml:"amount"`
	MinOutLeg1   string `yaml:"min_out_leg1"`
	MinOutLeg2   string `yaml:"min_out_leg2"`
	SlippageBps  uint32 `yaml:"slippage_bps"`
}

// Planned reports whether the minimums are left to the planner
func (r *Route) Planned() bool {
	return r.MinOutLeg1 == "" && r.MinOutLeg2 == ""
}

// Load reads a fixture file
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML fixture
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every reference in the fixture resolves
func (f *Fixture) Validate() error {
	var errs []string

	tokens := make(map[string]bool, len(f.Tokens))
	for _, t := range f.Tokens {
		if t.Symbol == "" {
			errs = append(errs, "token without symbol")
			continue
		}
		if tokens[t.Symbol] {
			errs = append(errs, fmt.Sprintf("duplicate token %s", t.Symbol))
		}
		if !common.IsHexAddress(t.Address) {
			errs = append(errs, fmt.Sprintf("token %s: invalid address %q", t.Symbol, t.Address))
		}
		tokens[t.Symbol] = true
	}

	pools := make(map[string]bool, len(f.Pools))
	for _, p := range f.Pools {
		if pools[p.Name] {
			errs = append(errs, fmt.Sprintf("duplicate pool %s", p.Name))
		}
		pools[p.Name] = true
		if len(p.Pair) != 2 {
			errs = append(errs, fmt.Sprintf("pool %s: pair needs exactly two tokens", p.Name))
			continue
		}
		for _, sym := range p.Pair {
			if !tokens[sym] {
				errs = append(errs, fmt.Sprintf("pool %s: unknown token %q", p.Name, sym))
			}
		}
		for sym := range p.Reserves {
			if sym != p.Pair[0] && sym != p.Pair[1] {
				errs = append(errs, fmt.Sprintf("pool %s: reserve for %s outside the pair", p.Name, sym))
			}
		}
	}

	if f.Executor != "" && !common.IsHexAddress(f.Executor) {
		errs = append(errs, fmt.Sprintf("invalid executor address %q", f.Executor))
	}
	for sym := range f.Funding {
		if !tokens[sym] {
			errs = append(errs, fmt.Sprintf("funding: unknown token %q", sym))
		}
	}

	r := f.Route
	if !pools[r.LendingPool] {
		errs = append(errs, fmt.Sprintf("route: unknown lending pool %q", r.LendingPool))
	}
	if !pools[r.SwapPool] {
		errs = append(errs, fmt.Sprintf("route: unknown swap pool %q", r.SwapPool))
	}
	if !tokens[r.Borrow] || !tokens[r.Intermediate] {
		errs = append(errs, "route: borrow and intermediate must be known tokens")
	}
	if r.Amount == "" {
		errs = append(errs, "route: amount is required")
	}
	if (r.MinOutLeg1 == "") != (r.MinOutLeg2 == "") {
		errs = append(errs, "route: give both minimums or neither")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid fixture %q: %s", f.Name, strings.Join(errs, "; "))
	}
	return nil
}

func (f *Fixture) token(symbol string) (Token, error) {
	for _, t := range f.Tokens {
		if t.Symbol == symbol {
			return t, nil
		}
	}
	return Token{}, fmt.Errorf("unknown token %q", symbol)
}

func (f *Fixture) pool(name string) (Pool, error) {
	for _, p := range f.Pools {
		if p.Name == name {
			return p, nil
		}
	}
	return Pool{}, fmt.Errorf("unknown pool %q", name)
}

// amount parses value in units of the token named symbol
func (f *Fixture) amount(symbol, value string) (*uint256.Int, error) {
	t, err := f.token(symbol)
	if err != nil {
		return nil, err
	}
	amount, err := mathutil.ParseUnits(value, t.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%s amount %q: %w", symbol, value, err)
	}
	return amount, nil
}
