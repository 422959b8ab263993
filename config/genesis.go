package config

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"meridian/crypto"
	"meridian/native/governance"
	"meridian/native/params"
	"meridian/native/rewardpool"
	"meridian/native/vault"
)

// Genesis is the YAML policy document applied once at ledger start. It
// defines the token set, initial holdings and roles, the vault risk
// settings, the reward pool emission rates, the governance policy, and the
// oracle price seeds. After genesis the parameter values change only
// through executed proposals.
type Genesis struct {
	GenesisTime string              `yaml:"genesis_time"`
	Tokens      []TokenGenesis      `yaml:"tokens"`
	Accounts    []AccountGenesis    `yaml:"accounts"`
	Roles       map[string][]string `yaml:"roles"`
	Vault       VaultGenesis        `yaml:"vault"`
	Pools       []PoolGenesis       `yaml:"pools"`
	Governance  GovernanceGenesis   `yaml:"governance"`
	Oracle      OracleGenesis       `yaml:"oracle"`

	genesisTimestamp time.Time
	roleGrants       map[string][]crypto.Address
	emissions        map[string]params.PoolEmission
	prices           map[string]*big.Int
}

// TokenGenesis declares one token of the ledger. The mint authority is
// optional; the vault liability asset and the reward asset always end up
// owned by their module accounts regardless of what the document says.
type TokenGenesis struct {
	Symbol        string `yaml:"symbol"`
	Name          string `yaml:"name"`
	Decimals      uint8  `yaml:"decimals"`
	Checkpointed  bool   `yaml:"checkpointed"`
	MintPaused    bool   `yaml:"mint_paused"`
	MintAuthority string `yaml:"mint_authority"`

	authority crypto.Address
}

// Authority returns the configured post-genesis mint authority, if any.
func (t TokenGenesis) Authority() (crypto.Address, bool) {
	if t.authority.IsZero() {
		return crypto.Address{}, false
	}
	return t.authority, true
}

// AccountGenesis funds one account. Balances map token symbols to decimal
// base-unit amounts.
type AccountGenesis struct {
	Address  string            `yaml:"address"`
	Balances map[string]string `yaml:"balances"`

	addr    crypto.Address
	amounts map[string]*big.Int
}

// AccountAddress returns the parsed bech32 address.
func (a AccountGenesis) AccountAddress() crypto.Address { return a.addr }

// Amounts returns a copy of the parsed balance allocations.
func (a AccountGenesis) Amounts() map[string]*big.Int {
	out := make(map[string]*big.Int, len(a.amounts))
	for symbol, amount := range a.amounts {
		out[symbol] = new(big.Int).Set(amount)
	}
	return out
}

// VaultGenesis seeds the vault engine: the governed risk settings and the
// initial collateral registry.
type VaultGenesis struct {
	Risk       RiskGenesis `yaml:"risk"`
	Collateral []string    `yaml:"collateral"`
}

// RiskGenesis mirrors params.VaultRisk in YAML form.
type RiskGenesis struct {
	MinCollateralRatio   uint64 `yaml:"min_collateral_ratio"`
	LiquidationThreshold uint64 `yaml:"liquidation_threshold"`
	StabilityFeeBps      uint64 `yaml:"stability_fee_bps"`
	LiquidationPenalty   uint64 `yaml:"liquidation_penalty"`
}

// PoolGenesis overrides the emission rate for one reward program.
type PoolGenesis struct {
	ID               string `yaml:"id"`
	RewardRatePerDay string `yaml:"reward_rate_per_day"`

	rate *big.Int
}

// GovernanceGenesis fixes the proposal policy. QuorumBps is a pointer so an
// absent value falls back to the default while an explicit zero stays zero.
type GovernanceGenesis struct {
	ProposalThreshold     string   `yaml:"proposal_threshold"`
	VotingDelaySeconds    uint64   `yaml:"voting_delay_seconds"`
	VotingPeriodSeconds   uint64   `yaml:"voting_period_seconds"`
	ExecutionGraceSeconds uint64   `yaml:"execution_grace_seconds"`
	QuorumBps             *uint64  `yaml:"quorum_bps"`
	AllowedParams         []string `yaml:"allowed_params"`

	threshold *big.Int
}

// OracleGenesis seeds the manual price oracle, symbol to 18-decimal price.
type OracleGenesis struct {
	Prices map[string]string `yaml:"prices"`
}

const (
	defaultQuorumBps             = uint64(2_000)
	defaultVotingDelaySeconds    = uint64(86_400)
	defaultVotingPeriodSeconds   = uint64(259_200)
	defaultExecutionGraceSeconds = uint64(604_800)
)

var (
	defaultRisk = RiskGenesis{
		MinCollateralRatio:   150,
		LiquidationThreshold: 120,
		StabilityFeeBps:      200,
		LiquidationPenalty:   130,
	}

	// Default emission rates in base units per day: 100 MDN for staking,
	// 200 MDN for liquidity mining.
	defaultStakingRate  = mustAmount("100000000000000000000")
	defaultLPMiningRate = mustAmount("200000000000000000000")
)

// LoadGenesis reads and validates the genesis document at path.
func LoadGenesis(path string) (*Genesis, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis %q: %w", path, err)
	}
	gen, err := ParseGenesis(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis %q: %w", path, err)
	}
	return gen, nil
}

// ParseGenesis decodes a YAML genesis document. Unknown fields are rejected
// so typos cannot silently drop policy.
func ParseGenesis(raw []byte) (*Genesis, error) {
	gen := &Genesis{}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(gen); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	gen.normalize()
	if err := gen.validate(); err != nil {
		return nil, err
	}
	return gen, nil
}

// DefaultGenesis returns a complete local-development document: the three
// canonical tokens, default risk and emission settings, and a governance
// policy with a one-day delay and a three-day voting window. Callers add
// accounts, roles, collateral, and prices on top before applying it.
func DefaultGenesis() *Genesis {
	gen := &Genesis{
		GenesisTime: "2026-01-01T00:00:00Z",
		Tokens: []TokenGenesis{
			{Symbol: vault.DefaultLiabilityAsset, Name: "Meridian USD", Decimals: 18},
			{Symbol: governance.DefaultVotingAsset, Name: "Meridian", Decimals: 18, Checkpointed: true},
			{Symbol: rewardpool.LPMiningProgram().PrincipalAsset, Name: "Meridian LP Share", Decimals: 18},
		},
		Vault: VaultGenesis{Risk: defaultRisk},
		Governance: GovernanceGenesis{
			ProposalThreshold:     "1000000000000000000",
			VotingDelaySeconds:    defaultVotingDelaySeconds,
			VotingPeriodSeconds:   defaultVotingPeriodSeconds,
			ExecutionGraceSeconds: defaultExecutionGraceSeconds,
		},
	}
	gen.normalize()
	if err := gen.validate(); err != nil {
		panic(fmt.Sprintf("config: default genesis invalid: %v", err))
	}
	return gen
}

// Timestamp returns the parsed genesis time.
func (g *Genesis) Timestamp() time.Time { return g.genesisTimestamp }

// RoleGrants returns the parsed role memberships.
func (g *Genesis) RoleGrants() map[string][]crypto.Address {
	out := make(map[string][]crypto.Address, len(g.roleGrants))
	for role, members := range g.roleGrants {
		out[role] = append([]crypto.Address(nil), members...)
	}
	return out
}

// VaultRisk returns the risk settings as the engine parameter struct.
func (g *Genesis) VaultRisk() params.VaultRisk {
	return params.VaultRisk{
		MinCollateralRatio:   g.Vault.Risk.MinCollateralRatio,
		LiquidationThreshold: g.Vault.Risk.LiquidationThreshold,
		StabilityFeeBps:      g.Vault.Risk.StabilityFeeBps,
		LiquidationPenalty:   g.Vault.Risk.LiquidationPenalty,
	}
}

// CollateralAssets returns the normalized initial registry entries.
func (g *Genesis) CollateralAssets() []string {
	return append([]string(nil), g.Vault.Collateral...)
}

// PoolEmissions returns the emission settings per program id. Programs the
// document does not mention run at their default rates.
func (g *Genesis) PoolEmissions() map[string]params.PoolEmission {
	out := make(map[string]params.PoolEmission, len(g.emissions))
	for id, emission := range g.emissions {
		out[id] = params.PoolEmission{RewardRatePerDay: new(big.Int).Set(emission.RewardRatePerDay)}
	}
	return out
}

// GovernancePolicy returns the proposal policy for the governance engine.
func (g *Genesis) GovernancePolicy() governance.Policy {
	quorum := defaultQuorumBps
	if g.Governance.QuorumBps != nil {
		quorum = *g.Governance.QuorumBps
	}
	return governance.Policy{
		ProposalThreshold:     new(big.Int).Set(g.Governance.threshold),
		VotingDelaySeconds:    g.Governance.VotingDelaySeconds,
		VotingPeriodSeconds:   g.Governance.VotingPeriodSeconds,
		ExecutionGraceSeconds: g.Governance.ExecutionGraceSeconds,
		QuorumBps:             quorum,
		AllowedParams:         append([]string(nil), g.Governance.AllowedParams...),
	}
}

// OraclePrices returns the parsed price seeds.
func (g *Genesis) OraclePrices() map[string]*big.Int {
	out := make(map[string]*big.Int, len(g.prices))
	for symbol, price := range g.prices {
		out[symbol] = new(big.Int).Set(price)
	}
	return out
}

func (g *Genesis) normalize() {
	if g == nil {
		return
	}
	g.GenesisTime = strings.TrimSpace(g.GenesisTime)
	for i := range g.Tokens {
		token := &g.Tokens[i]
		token.Symbol = strings.ToUpper(strings.TrimSpace(token.Symbol))
		token.Name = strings.TrimSpace(token.Name)
		token.MintAuthority = strings.TrimSpace(token.MintAuthority)
	}
	for i := range g.Accounts {
		account := &g.Accounts[i]
		account.Address = strings.TrimSpace(account.Address)
		balances := make(map[string]string, len(account.Balances))
		for symbol, amount := range account.Balances {
			balances[strings.ToUpper(strings.TrimSpace(symbol))] = strings.TrimSpace(amount)
		}
		account.Balances = balances
	}
	if g.Vault.Risk == (RiskGenesis{}) {
		g.Vault.Risk = defaultRisk
	}
	collateral := make([]string, 0, len(g.Vault.Collateral))
	for _, symbol := range g.Vault.Collateral {
		if trimmed := strings.ToUpper(strings.TrimSpace(symbol)); trimmed != "" {
			collateral = append(collateral, trimmed)
		}
	}
	g.Vault.Collateral = collateral
	for i := range g.Pools {
		pool := &g.Pools[i]
		pool.ID = strings.ToLower(strings.TrimSpace(pool.ID))
		pool.RewardRatePerDay = strings.TrimSpace(pool.RewardRatePerDay)
	}
	g.Governance.ProposalThreshold = strings.TrimSpace(g.Governance.ProposalThreshold)
	if len(g.Governance.AllowedParams) == 0 {
		g.Governance.AllowedParams = params.Keys()
	} else {
		allowed := make([]string, 0, len(g.Governance.AllowedParams))
		for _, name := range g.Governance.AllowedParams {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				allowed = append(allowed, trimmed)
			}
		}
		g.Governance.AllowedParams = allowed
	}
	prices := make(map[string]string, len(g.Oracle.Prices))
	for symbol, price := range g.Oracle.Prices {
		prices[strings.ToUpper(strings.TrimSpace(symbol))] = strings.TrimSpace(price)
	}
	g.Oracle.Prices = prices
}

func (g *Genesis) validate() error {
	parsedTime, err := parseGenesisTime(g.GenesisTime)
	if err != nil {
		return err
	}
	g.genesisTimestamp = parsedTime

	tokenSymbols := make(map[string]struct{}, len(g.Tokens))
	for i := range g.Tokens {
		token := &g.Tokens[i]
		if err := token.validate(); err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		if _, exists := tokenSymbols[token.Symbol]; exists {
			return fmt.Errorf("tokens[%d]: duplicate symbol %q", i, token.Symbol)
		}
		tokenSymbols[token.Symbol] = struct{}{}
	}
	for _, required := range []string{
		vault.DefaultLiabilityAsset,
		governance.DefaultVotingAsset,
		rewardpool.LPMiningProgram().PrincipalAsset,
	} {
		if _, ok := tokenSymbols[required]; !ok {
			return fmt.Errorf("tokens: required token %s is missing", required)
		}
	}
	for i := range g.Tokens {
		token := g.Tokens[i]
		if token.Symbol == governance.DefaultVotingAsset && !token.Checkpointed {
			return fmt.Errorf("tokens[%d]: %s must be checkpointed for snapshot voting", i, token.Symbol)
		}
	}

	seenAccounts := make(map[string]struct{}, len(g.Accounts))
	for i := range g.Accounts {
		account := &g.Accounts[i]
		if err := account.validate(tokenSymbols); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		key := string(account.addr.Bytes())
		if _, exists := seenAccounts[key]; exists {
			return fmt.Errorf("accounts[%d]: duplicate address %q", i, account.Address)
		}
		seenAccounts[key] = struct{}{}
	}

	g.roleGrants = make(map[string][]crypto.Address, len(g.Roles))
	for role, members := range g.Roles {
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("roles: role name must be provided")
		}
		grants := make([]crypto.Address, 0, len(members))
		for i, member := range members {
			addr, err := crypto.DecodeAddress(strings.TrimSpace(member))
			if err != nil {
				return fmt.Errorf("roles[%q][%d]: %w", role, i, err)
			}
			grants = append(grants, addr)
		}
		g.roleGrants[role] = grants
	}

	if err := g.VaultRisk().Validate(); err != nil {
		return fmt.Errorf("vault.risk: %w", err)
	}
	seenCollateral := make(map[string]struct{}, len(g.Vault.Collateral))
	for i, symbol := range g.Vault.Collateral {
		if _, ok := tokenSymbols[symbol]; !ok {
			return fmt.Errorf("vault.collateral[%d]: undefined token %q", i, symbol)
		}
		if _, dup := seenCollateral[symbol]; dup {
			return fmt.Errorf("vault.collateral[%d]: duplicate token %q", i, symbol)
		}
		seenCollateral[symbol] = struct{}{}
	}

	g.emissions = map[string]params.PoolEmission{
		rewardpool.PoolStaking:  {RewardRatePerDay: new(big.Int).Set(defaultStakingRate)},
		rewardpool.PoolLPMining: {RewardRatePerDay: new(big.Int).Set(defaultLPMiningRate)},
	}
	seenPools := make(map[string]struct{}, len(g.Pools))
	for i := range g.Pools {
		pool := &g.Pools[i]
		if pool.ID != rewardpool.PoolStaking && pool.ID != rewardpool.PoolLPMining {
			return fmt.Errorf("pools[%d]: unknown program %q", i, pool.ID)
		}
		if _, dup := seenPools[pool.ID]; dup {
			return fmt.Errorf("pools[%d]: duplicate program %q", i, pool.ID)
		}
		seenPools[pool.ID] = struct{}{}
		rate, err := parseAmount(pool.RewardRatePerDay)
		if err != nil {
			return fmt.Errorf("pools[%d]: reward_rate_per_day: %w", i, err)
		}
		pool.rate = rate
		g.emissions[pool.ID] = params.PoolEmission{RewardRatePerDay: rate}
	}
	for id, emission := range g.emissions {
		if err := emission.Validate(); err != nil {
			return fmt.Errorf("pools[%s]: %w", id, err)
		}
	}

	threshold, err := parseAmount(g.Governance.ProposalThreshold)
	if err != nil {
		return fmt.Errorf("governance.proposal_threshold: %w", err)
	}
	g.Governance.threshold = threshold
	if g.Governance.ExecutionGraceSeconds == 0 {
		return fmt.Errorf("governance.execution_grace_seconds must be positive")
	}
	for i, name := range g.Governance.AllowedParams {
		known := false
		for _, key := range params.Keys() {
			if key == name {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("governance.allowed_params[%d]: unknown parameter %q", i, name)
		}
	}
	if err := g.GovernancePolicy().Validate(); err != nil {
		return fmt.Errorf("governance: %w", err)
	}

	g.prices = make(map[string]*big.Int, len(g.Oracle.Prices))
	for symbol, raw := range g.Oracle.Prices {
		if _, ok := tokenSymbols[symbol]; !ok {
			return fmt.Errorf("oracle.prices[%q]: undefined token", symbol)
		}
		price, err := parseAmount(raw)
		if err != nil {
			return fmt.Errorf("oracle.prices[%q]: %w", symbol, err)
		}
		if price.Sign() <= 0 {
			return fmt.Errorf("oracle.prices[%q]: price must be positive", symbol)
		}
		g.prices[symbol] = price
	}

	return nil
}

func (t *TokenGenesis) validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("symbol must be provided")
	}
	if t.Name == "" {
		return fmt.Errorf("name must be provided")
	}
	if t.Decimals > 18 {
		return fmt.Errorf("decimals must be 18 or fewer")
	}
	if t.MintAuthority != "" {
		addr, err := crypto.DecodeAddress(t.MintAuthority)
		if err != nil {
			return fmt.Errorf("mint_authority: %w", err)
		}
		t.authority = addr
	}
	return nil
}

func (a *AccountGenesis) validate(tokenSymbols map[string]struct{}) error {
	if a.Address == "" {
		return fmt.Errorf("address must be provided")
	}
	addr, err := crypto.DecodeAddress(a.Address)
	if err != nil {
		return err
	}
	a.addr = addr
	a.amounts = make(map[string]*big.Int, len(a.Balances))
	for symbol, raw := range a.Balances {
		if _, ok := tokenSymbols[symbol]; !ok {
			return fmt.Errorf("balance for undefined token %q", symbol)
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return fmt.Errorf("balance[%q]: %w", symbol, err)
		}
		a.amounts[symbol] = amount
	}
	return nil
}

// parseAmount parses a non-negative decimal base-unit amount. Empty means
// zero.
func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("genesis_time must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesis_time %q", value)
}

func mustAmount(value string) *big.Int {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic(fmt.Sprintf("config: invalid amount literal %q", value))
	}
	return amount
}
