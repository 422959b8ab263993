package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"meridian/config"
	"meridian/core/state"
	"meridian/native/params"
	"meridian/native/rewardpool"
	"meridian/native/vault"
)

// ErrNilGenesis rejects a genesis application without a document.
var ErrNilGenesis = errors.New("core: genesis document required")

// ApplyGenesis seeds a fresh ledger from the validated document: token
// registrations, mint authorities, initial holdings, role grants, the
// collateral registry, the parameter store, and the engines' live settings.
// The whole application is one atomic unit; any failure leaves the trie and
// the engines untouched.
//
// The clock is pinned to the document's genesis time for the duration, so
// every node applying the same document produces the same state root no
// matter when it starts.
func (l *Ledger) ApplyGenesis(ctx context.Context, gen *config.Genesis) error {
	if l == nil || l.trie == nil {
		return errNotInitialised
	}
	if gen == nil {
		return ErrNilGenesis
	}
	return l.run(ctx, "genesis.apply", func() error {
		saved := l.nowFn
		at := gen.Timestamp()
		l.SetNowFunc(func() time.Time { return at })
		defer l.SetNowFunc(saved)
		return l.applyGenesis(gen)
	})
}

func (l *Ledger) applyGenesis(gen *config.Genesis) error {
	if err := l.manager.SetSchemaVersion(state.SchemaVersion); err != nil {
		return err
	}

	authorities := make(map[string][]byte, len(gen.Tokens))
	for _, token := range gen.Tokens {
		if err := l.manager.RegisterToken(token.Symbol, token.Name, token.Decimals); err != nil {
			return fmt.Errorf("register token %s: %w", token.Symbol, err)
		}
		if token.Checkpointed {
			if err := l.manager.SetTokenCheckpointed(token.Symbol, true); err != nil {
				return err
			}
		}
		if authority, ok := token.Authority(); ok {
			authorities[token.Symbol] = authority.Bytes()
		}
	}

	// The liability and reward assets always belong to their module
	// accounts; a configured authority cannot take over those mints.
	authorities[l.vault.LiabilityAsset()] = vault.ModuleAddress().Bytes()
	authorities[rewardpool.DefaultRewardAsset] = rewardpool.RewardAuthority().Bytes()
	for symbol, authority := range authorities {
		if err := l.manager.SetTokenMintAuthority(symbol, authority); err != nil {
			return err
		}
	}

	for _, account := range gen.Accounts {
		to := account.AccountAddress().Bytes()
		amounts := account.Amounts()
		symbols := make([]string, 0, len(amounts))
		for symbol := range amounts {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			amount := amounts[symbol]
			if amount.Sign() == 0 {
				continue
			}
			authority, ok := authorities[symbol]
			if !ok {
				return fmt.Errorf("token %s carries genesis balances but has no mint authority", symbol)
			}
			if err := l.manager.Mint(authority, to, symbol, amount); err != nil {
				return fmt.Errorf("fund %s with %s: %w", account.Address, symbol, err)
			}
		}
	}

	// Pause flags apply only after funding so an initially halted token
	// still ships its genesis allocation.
	for _, token := range gen.Tokens {
		if token.MintPaused {
			if err := l.manager.SetTokenMintPaused(token.Symbol, true); err != nil {
				return err
			}
		}
	}

	for role, members := range gen.RoleGrants() {
		for _, member := range members {
			if err := l.manager.SetRole(role, member.Bytes()); err != nil {
				return fmt.Errorf("grant %s: %w", role, err)
			}
		}
	}

	for _, symbol := range gen.CollateralAssets() {
		if err := l.manager.VaultAddCollateralAsset(symbol); err != nil {
			return fmt.Errorf("list collateral %s: %w", symbol, err)
		}
	}

	risk := gen.VaultRisk()
	emissions := gen.PoolEmissions()
	if err := l.paramStore.SetVaultRisk(risk); err != nil {
		return err
	}
	if err := l.paramStore.SetEmission(params.KeyStakingEmission, emissions[rewardpool.PoolStaking]); err != nil {
		return err
	}
	if err := l.paramStore.SetEmission(params.KeyLPMiningEmission, emissions[rewardpool.PoolLPMining]); err != nil {
		return err
	}

	// In-memory wiring runs after every trie write has succeeded so a
	// failed genesis leaves the engines untouched too.
	if err := l.vault.SetRiskParams(risk); err != nil {
		return err
	}
	if err := l.pools[rewardpool.PoolStaking].SetEmission(emissions[rewardpool.PoolStaking]); err != nil {
		return err
	}
	if err := l.pools[rewardpool.PoolLPMining].SetEmission(emissions[rewardpool.PoolLPMining]); err != nil {
		return err
	}
	if err := l.governance.SetPolicy(gen.GovernancePolicy()); err != nil {
		return err
	}
	for symbol, price := range gen.OraclePrices() {
		if err := l.oracle.SetPrice(symbol, price); err != nil {
			return err
		}
	}

	l.log.Info("genesis applied",
		"tokens", len(gen.Tokens),
		"accounts", len(gen.Accounts),
		"collateral", len(gen.CollateralAssets()),
	)
	return nil
}

// hydrate restores the engines' in-memory settings after a restart. Governed
// values come from the parameter store since proposals may have moved them
// past the genesis numbers; the fixed governance policy and the oracle seeds
// come from the document.
func (l *Ledger) hydrate(gen *config.Genesis) error {
	risk, ok, err := l.paramStore.VaultRisk()
	if err != nil {
		return err
	}
	if !ok && gen != nil {
		risk, ok = gen.VaultRisk(), true
	}
	if ok {
		if err := l.vault.SetRiskParams(risk); err != nil {
			return err
		}
	}

	var genesisEmissions map[string]params.PoolEmission
	if gen != nil {
		genesisEmissions = gen.PoolEmissions()
	}
	poolKeys := map[string]string{
		rewardpool.PoolStaking:  params.KeyStakingEmission,
		rewardpool.PoolLPMining: params.KeyLPMiningEmission,
	}
	for id, key := range poolKeys {
		emission, ok, err := l.paramStore.Emission(key)
		if err != nil {
			return err
		}
		if !ok {
			if genesisEmissions == nil {
				continue
			}
			emission = genesisEmissions[id]
		}
		if err := l.pools[id].SetEmission(emission); err != nil {
			return err
		}
	}

	if gen != nil {
		if err := l.governance.SetPolicy(gen.GovernancePolicy()); err != nil {
			return err
		}
		for symbol, price := range gen.OraclePrices() {
			if err := l.oracle.SetPrice(symbol, price); err != nil {
				return err
			}
		}
	}
	return nil
}
