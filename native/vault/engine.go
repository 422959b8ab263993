package vault

import (
	"errors"
	"math/big"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"meridian/core/events"
	"meridian/crypto"
	nativecommon "meridian/native/common"
	"meridian/native/oracle"
	"meridian/native/params"
	"meridian/observability/metrics"
)

var (
	ErrInvalidAmount                 = errors.New("vault: amount must be positive")
	ErrVaultNotFound                 = errors.New("vault: vault not found")
	ErrCollateralMismatch            = errors.New("vault: collateral asset mismatch")
	ErrUnsupportedCollateral         = errors.New("vault: collateral asset not supported")
	ErrInsufficientCollateralRatio   = errors.New("vault: insufficient collateral ratio")
	ErrRepayExceedsDebt              = errors.New("vault: repay amount exceeds outstanding debt")
	ErrInsufficientCollateral        = errors.New("vault: withdrawal exceeds collateral")
	ErrWouldBreachRatio              = errors.New("vault: withdrawal would breach collateral ratio")
	ErrNotLiquidatable               = errors.New("vault: vault not eligible for liquidation")
	ErrDebtExceedsOutstanding        = errors.New("vault: debt to cover exceeds outstanding debt")
	ErrInsufficientCollateralToSeize = errors.New("vault: seizure exceeds vault collateral")
	ErrUnauthorized                  = errors.New("vault: caller lacks registry authority")
	ErrAssetAlreadyListed            = errors.New("vault: collateral asset already listed")
	ErrAssetNotListed                = errors.New("vault: collateral asset not listed")
)

var errNilState = errors.New("vault: state not configured")

const (
	// RoleCollateralAdmin gates collateral registry updates.
	RoleCollateralAdmin = "ROLE_COLLATERAL_ADMIN"

	// DefaultLiabilityAsset is the stable token minted against collateral.
	DefaultLiabilityAsset = "MUSD"

	moduleName     = "vault"
	secondsPerYear = 31_536_000
	feeDenominator = 10_000
)

var (
	pricePrecision = big.NewInt(1_000_000_000_000_000_000)
	ratioPercent   = big.NewInt(100)
)

// ModuleAddress returns the deterministic custody account holding all vault
// collateral. The same account is the mint and burn authority for the
// liability asset.
func ModuleAddress() crypto.Address {
	hash := ethcrypto.Keccak256([]byte("meridian/module/vault"))
	return crypto.NewAddress(hash[12:])
}

type engineState interface {
	VaultGet(addr []byte) (*Vault, error)
	VaultPut(addr []byte, vault *Vault) error
	VaultCollateralSupported(symbol string) (bool, error)
	VaultAddCollateralAsset(symbol string) error
	VaultRemoveCollateralAsset(symbol string) error
	VaultCollateralAssets() ([]string, error)
	Transfer(from, to []byte, symbol string, amount *big.Int) error
	Mint(authority, to []byte, symbol string, amount *big.Int) error
	Burn(authority, from []byte, symbol string, amount *big.Int) error
	HasRole(role string, addr []byte) bool
}

// Engine owns every vault row and the collateral registry. All mutating
// operations settle the stability fee before touching balances and emit one
// event after state is final.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	locks     *nativecommon.Locks
	oracle    oracle.PriceOracle
	params    params.VaultRisk
	liability string
	nowFn     func() time.Time
	telemetry *metrics.VaultMetrics
}

func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		liability: DefaultLiabilityAsset,
		nowFn:     time.Now,
		telemetry: metrics.Vault(),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) SetLocks(l *nativecommon.Locks) {
	if e == nil {
		return
	}
	e.locks = l
}

// SetOracle wires the price feed consulted for ratio checks and seizures.
func (e *Engine) SetOracle(o oracle.PriceOracle) {
	if e == nil {
		return
	}
	e.oracle = o
}

// SetNowFunc overrides the clock, primarily for tests. Passing nil restores
// the wall clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if e == nil {
		return
	}
	if now == nil {
		now = time.Now
	}
	e.nowFn = now
}

// SetRiskParams swaps in a new governed parameter set after validating it.
func (e *Engine) SetRiskParams(p params.VaultRisk) error {
	if e == nil {
		return nil
	}
	if err := p.Validate(); err != nil {
		return err
	}
	e.params = p
	return nil
}

// RiskParams returns the currently active risk parameters.
func (e *Engine) RiskParams() params.VaultRisk {
	if e == nil {
		return params.VaultRisk{}
	}
	return e.params
}

// SetLiabilityAsset overrides the liability token symbol minted against
// collateral.
func (e *Engine) SetLiabilityAsset(symbol string) {
	if e == nil {
		return
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return
	}
	e.liability = symbol
}

// LiabilityAsset returns the stable token symbol the engine mints and burns.
func (e *Engine) LiabilityAsset() string {
	if e == nil {
		return ""
	}
	return e.liability
}

// CreateOrIncrease opens a vault or grows an existing one. It pulls
// collateral into custody, checks the resulting position against the minimum
// ratio, and mints the drawn debt to the owner. Both deltas must be positive.
func (e *Engine) CreateOrIncrease(owner [20]byte, asset string, collateralDelta, debtDelta *big.Int) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if collateralDelta == nil || collateralDelta.Sign() <= 0 || debtDelta == nil || debtDelta.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	asset = normalizeAsset(asset)
	release, err := e.locks.Acquire(moduleName, owner)
	if err != nil {
		return nil, err
	}
	defer release()

	supported, err := e.state.VaultCollateralSupported(asset)
	if err != nil {
		return nil, err
	}
	if !supported {
		return nil, ErrUnsupportedCollateral
	}

	vault, err := e.loadVault(owner)
	if err != nil {
		return nil, err
	}
	created := vault == nil || vault.Dormant()
	if vault == nil {
		vault = (&Vault{CollateralAsset: asset}).withDefaults()
	}
	if vault.CollateralAsset != asset {
		if !vault.Dormant() {
			return nil, ErrCollateralMismatch
		}
		vault.CollateralAsset = asset
	}

	now := e.nowUnix()
	fee := e.settleFee(vault, now)

	price, err := e.oraclePrice(asset)
	if err != nil {
		return nil, err
	}
	newCollateral := new(big.Int).Add(vault.CollateralAmount, collateralDelta)
	newDebt := new(big.Int).Add(vault.DebtAmount, debtDelta)
	value := collateralValue(price, newCollateral)
	if !ratioHolds(value, newDebt, e.params.MinCollateralRatio) {
		return nil, ErrInsufficientCollateralRatio
	}

	moduleAddr := ModuleAddress().Bytes()
	if err := e.state.Transfer(owner[:], moduleAddr, asset, collateralDelta); err != nil {
		return nil, err
	}
	if err := e.state.Mint(moduleAddr, owner[:], e.liability, debtDelta); err != nil {
		return nil, err
	}

	vault.CollateralAmount = newCollateral
	vault.DebtAmount = newDebt
	if err := e.state.VaultPut(owner[:], vault); err != nil {
		return nil, err
	}

	e.telemetry.AddStabilityFee(amountToFloat(fee))
	e.telemetry.AddDebtMinted(amountToFloat(debtDelta))
	if created {
		e.telemetry.ObserveOperation("create")
		e.emitter.Emit(events.VaultCreated{
			Account:    owner,
			Asset:      asset,
			Collateral: new(big.Int).Set(vault.CollateralAmount),
			Debt:       new(big.Int).Set(vault.DebtAmount),
		})
	} else {
		e.telemetry.ObserveOperation("increase")
		e.emitter.Emit(events.VaultModified{
			Account:         owner,
			Asset:           asset,
			CollateralAdded: new(big.Int).Set(collateralDelta),
			DebtDrawn:       new(big.Int).Set(debtDelta),
			Collateral:      new(big.Int).Set(vault.CollateralAmount),
			Debt:            new(big.Int).Set(vault.DebtAmount),
		})
	}
	return vault.Clone(), nil
}

// AddCollateral strengthens an existing position without drawing debt. The
// accrual clock keeps running so no fee window is forgiven.
func (e *Engine) AddCollateral(owner [20]byte, asset string, amount *big.Int) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	asset = normalizeAsset(asset)
	release, err := e.locks.Acquire(moduleName, owner)
	if err != nil {
		return nil, err
	}
	defer release()

	supported, err := e.state.VaultCollateralSupported(asset)
	if err != nil {
		return nil, err
	}
	if !supported {
		return nil, ErrUnsupportedCollateral
	}

	vault, err := e.loadVault(owner)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, ErrVaultNotFound
	}
	if vault.CollateralAsset != asset {
		return nil, ErrCollateralMismatch
	}

	if err := e.state.Transfer(owner[:], ModuleAddress().Bytes(), asset, amount); err != nil {
		return nil, err
	}
	vault.CollateralAmount = new(big.Int).Add(vault.CollateralAmount, amount)
	if err := e.state.VaultPut(owner[:], vault); err != nil {
		return nil, err
	}

	e.telemetry.ObserveOperation("addCollateral")
	e.emitter.Emit(events.VaultModified{
		Account:         owner,
		Asset:           asset,
		CollateralAdded: new(big.Int).Set(amount),
		DebtDrawn:       big.NewInt(0),
		Collateral:      new(big.Int).Set(vault.CollateralAmount),
		Debt:            new(big.Int).Set(vault.DebtAmount),
	})
	return vault.Clone(), nil
}

// Repay burns repayAmount plus the accrued stability fee from the owner and
// reduces debt by repayAmount alone. A positive withdrawAmount additionally
// releases collateral when the remaining position stays above the minimum
// ratio or carries no debt.
func (e *Engine) Repay(owner [20]byte, asset string, repayAmount, withdrawAmount *big.Int) (*Vault, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	repayAmount = orZero(repayAmount)
	withdrawAmount = orZero(withdrawAmount)
	if repayAmount.Sign() < 0 || withdrawAmount.Sign() < 0 {
		return nil, nil, ErrInvalidAmount
	}
	if repayAmount.Sign() == 0 && withdrawAmount.Sign() == 0 {
		return nil, nil, ErrInvalidAmount
	}
	asset = normalizeAsset(asset)
	release, err := e.locks.Acquire(moduleName, owner)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	vault, err := e.loadVault(owner)
	if err != nil {
		return nil, nil, err
	}
	if vault == nil {
		return nil, nil, ErrVaultNotFound
	}
	if vault.CollateralAsset != asset {
		return nil, nil, ErrCollateralMismatch
	}
	if repayAmount.Cmp(vault.DebtAmount) > 0 {
		return nil, nil, ErrRepayExceedsDebt
	}

	// The fee is a pure cost settled in cash on top of the repayment. Debt
	// shrinks by the repaid amount only.
	now := e.nowUnix()
	fee := stabilityFee(vault.DebtAmount, e.params.StabilityFeeBps, elapsedSeconds(vault.LastAccrualTime, now))
	vault.LastAccrualTime = now

	remainingDebt := new(big.Int).Sub(vault.DebtAmount, repayAmount)
	remainingCollateral := new(big.Int).Set(vault.CollateralAmount)
	if withdrawAmount.Sign() > 0 {
		if withdrawAmount.Cmp(vault.CollateralAmount) > 0 {
			return nil, nil, ErrInsufficientCollateral
		}
		remainingCollateral.Sub(remainingCollateral, withdrawAmount)
		if remainingDebt.Sign() > 0 {
			price, err := e.oraclePrice(asset)
			if err != nil {
				return nil, nil, err
			}
			value := collateralValue(price, remainingCollateral)
			if !ratioHolds(value, remainingDebt, e.params.MinCollateralRatio) {
				return nil, nil, ErrWouldBreachRatio
			}
		}
	}

	moduleAddr := ModuleAddress().Bytes()
	burned := new(big.Int).Add(repayAmount, fee)
	if burned.Sign() > 0 {
		if err := e.state.Burn(moduleAddr, owner[:], e.liability, burned); err != nil {
			return nil, nil, err
		}
	}
	if withdrawAmount.Sign() > 0 {
		if err := e.state.Transfer(moduleAddr, owner[:], asset, withdrawAmount); err != nil {
			return nil, nil, err
		}
	}

	vault.DebtAmount = remainingDebt
	vault.CollateralAmount = remainingCollateral
	if err := e.state.VaultPut(owner[:], vault); err != nil {
		return nil, nil, err
	}

	e.telemetry.ObserveOperation("repay")
	e.telemetry.AddStabilityFee(amountToFloat(fee))
	e.telemetry.AddDebtRetired(amountToFloat(burned))
	e.emitter.Emit(events.VaultRepaid{
		Account:    owner,
		Asset:      asset,
		Repaid:     new(big.Int).Set(repayAmount),
		Fee:        new(big.Int).Set(fee),
		Withdrawn:  new(big.Int).Set(withdrawAmount),
		Collateral: new(big.Int).Set(vault.CollateralAmount),
		Debt:       new(big.Int).Set(vault.DebtAmount),
	})
	return vault.Clone(), fee, nil
}

// Liquidate lets a third party burn debtToCover of the liability asset
// against an unhealthy vault and seize collateral worth the covered debt
// plus the penalty margin. The vault may remain below the threshold
// afterwards; repeated partial liquidations are the healing mechanism.
func (e *Engine) Liquidate(liquidator, owner [20]byte, asset string, debtToCover *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if debtToCover == nil || debtToCover.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	asset = normalizeAsset(asset)
	release, err := e.locks.Acquire(moduleName, owner)
	if err != nil {
		return nil, err
	}
	defer release()

	vault, err := e.loadVault(owner)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, ErrVaultNotFound
	}
	if vault.CollateralAsset != asset {
		return nil, ErrCollateralMismatch
	}

	now := e.nowUnix()
	fee := e.settleFee(vault, now)
	if vault.DebtAmount.Sign() == 0 {
		return nil, ErrNotLiquidatable
	}

	price, err := e.oraclePrice(asset)
	if err != nil {
		return nil, err
	}
	value := collateralValue(price, vault.CollateralAmount)
	if ratioHolds(value, vault.DebtAmount, e.params.LiquidationThreshold) {
		return nil, ErrNotLiquidatable
	}
	if debtToCover.Cmp(vault.DebtAmount) > 0 {
		return nil, ErrDebtExceedsOutstanding
	}

	seized := seizedCollateral(debtToCover, price, e.params.LiquidationPenalty)
	if seized.Cmp(vault.CollateralAmount) > 0 {
		return nil, ErrInsufficientCollateralToSeize
	}

	moduleAddr := ModuleAddress().Bytes()
	if err := e.state.Burn(moduleAddr, liquidator[:], e.liability, debtToCover); err != nil {
		return nil, err
	}
	if seized.Sign() > 0 {
		if err := e.state.Transfer(moduleAddr, liquidator[:], asset, seized); err != nil {
			return nil, err
		}
	}

	vault.DebtAmount = new(big.Int).Sub(vault.DebtAmount, debtToCover)
	vault.CollateralAmount = new(big.Int).Sub(vault.CollateralAmount, seized)
	if err := e.state.VaultPut(owner[:], vault); err != nil {
		return nil, err
	}

	e.telemetry.ObserveOperation("liquidate")
	e.telemetry.AddStabilityFee(amountToFloat(fee))
	e.telemetry.AddDebtRetired(amountToFloat(debtToCover))
	e.telemetry.AddSeizedCollateral(asset, amountToFloat(seized))
	e.emitter.Emit(events.VaultLiquidated{
		Liquidator:  liquidator,
		Owner:       owner,
		Asset:       asset,
		DebtCovered: new(big.Int).Set(debtToCover),
		Seized:      new(big.Int).Set(seized),
		Collateral:  new(big.Int).Set(vault.CollateralAmount),
		Debt:        new(big.Int).Set(vault.DebtAmount),
	})
	return new(big.Int).Set(seized), nil
}

// ListCollateralAsset admits an asset into the registry. Only holders of the
// collateral admin role may call it.
func (e *Engine) ListCollateralAsset(caller [20]byte, asset string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	asset = normalizeAsset(asset)
	if asset == "" {
		return ErrUnsupportedCollateral
	}
	if !e.state.HasRole(RoleCollateralAdmin, caller[:]) {
		return ErrUnauthorized
	}
	supported, err := e.state.VaultCollateralSupported(asset)
	if err != nil {
		return err
	}
	if supported {
		return ErrAssetAlreadyListed
	}
	if err := e.state.VaultAddCollateralAsset(asset); err != nil {
		return err
	}
	e.telemetry.ObserveOperation("listCollateral")
	e.emitter.Emit(events.CollateralListed{Asset: asset, Authority: caller})
	return nil
}

// DelistCollateralAsset removes an asset from the registry. Open positions
// keep working; only exposure-growing operations check the registry.
func (e *Engine) DelistCollateralAsset(caller [20]byte, asset string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	asset = normalizeAsset(asset)
	if asset == "" {
		return ErrUnsupportedCollateral
	}
	if !e.state.HasRole(RoleCollateralAdmin, caller[:]) {
		return ErrUnauthorized
	}
	supported, err := e.state.VaultCollateralSupported(asset)
	if err != nil {
		return err
	}
	if !supported {
		return ErrAssetNotListed
	}
	if err := e.state.VaultRemoveCollateralAsset(asset); err != nil {
		return err
	}
	e.telemetry.ObserveOperation("delistCollateral")
	e.emitter.Emit(events.CollateralDelisted{Asset: asset, Authority: caller})
	return nil
}

// Vault returns a copy of the owner's position.
func (e *Engine) Vault(owner [20]byte) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	vault, err := e.loadVault(owner)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, ErrVaultNotFound
	}
	return vault.Clone(), nil
}

// AccruedDebt projects the owner's debt including the stability fee accrued
// up to now, without mutating state.
func (e *Engine) AccruedDebt(owner [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	vault, err := e.loadVault(owner)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, ErrVaultNotFound
	}
	fee := stabilityFee(vault.DebtAmount, e.params.StabilityFeeBps, elapsedSeconds(vault.LastAccrualTime, e.nowUnix()))
	return new(big.Int).Add(vault.DebtAmount, fee), nil
}

// SupportedAssets lists the registry contents in sorted order.
func (e *Engine) SupportedAssets() ([]string, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.VaultCollateralAssets()
}

func (e *Engine) loadVault(owner [20]byte) (*Vault, error) {
	vault, err := e.state.VaultGet(owner[:])
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, nil
	}
	return vault.withDefaults(), nil
}

func (e *Engine) oraclePrice(asset string) (*big.Int, error) {
	if e.oracle == nil {
		return nil, oracle.ErrPriceUnavailable
	}
	price, err := e.oracle.Price(asset)
	if err != nil {
		return nil, err
	}
	if price == nil || price.Sign() <= 0 {
		return nil, oracle.ErrInvalidPrice
	}
	return price, nil
}

// settleFee folds the fee accrued since the last touch into the debt and
// stamps the accrual clock. Used where the caller supplies no cash.
func (e *Engine) settleFee(vault *Vault, now uint64) *big.Int {
	fee := stabilityFee(vault.DebtAmount, e.params.StabilityFeeBps, elapsedSeconds(vault.LastAccrualTime, now))
	if fee.Sign() > 0 {
		vault.DebtAmount = new(big.Int).Add(vault.DebtAmount, fee)
	}
	vault.LastAccrualTime = now
	return fee
}

func (e *Engine) nowUnix() uint64 {
	nowFn := time.Now
	if e != nil && e.nowFn != nil {
		nowFn = e.nowFn
	}
	ts := nowFn().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// collateralValue converts a collateral amount into liability terms using an
// 18-decimal fixed point price, flooring the division.
func collateralValue(price, amount *big.Int) *big.Int {
	if price == nil || amount == nil {
		return big.NewInt(0)
	}
	value := new(big.Int).Mul(price, amount)
	return value.Quo(value, pricePrecision)
}

// ratioHolds reports whether value*100 >= debt*ratioPct. A zero debt passes
// trivially.
func ratioHolds(value, debt *big.Int, ratioPct uint64) bool {
	if debt == nil || debt.Sign() == 0 {
		return true
	}
	if value == nil {
		return false
	}
	lhs := new(big.Int).Mul(value, ratioPercent)
	rhs := new(big.Int).Mul(debt, new(big.Int).SetUint64(ratioPct))
	return lhs.Cmp(rhs) >= 0
}

// stabilityFee computes debt * feeBps * elapsed / (secondsPerYear * 10000)
// with floor division. Rounding loss lands in the protocol's favor.
func stabilityFee(debt *big.Int, feeBps uint64, elapsed uint64) *big.Int {
	if debt == nil || debt.Sign() == 0 || feeBps == 0 || elapsed == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(debt, new(big.Int).SetUint64(feeBps))
	fee.Mul(fee, new(big.Int).SetUint64(elapsed))
	return fee.Quo(fee, big.NewInt(secondsPerYear*feeDenominator))
}

// seizedCollateral computes debtToCover * penaltyPct * 1e18 / (price * 100)
// with floor division. Rounding loss lands against the liquidator.
func seizedCollateral(debtToCover, price *big.Int, penaltyPct uint64) *big.Int {
	if debtToCover == nil || price == nil || price.Sign() <= 0 {
		return big.NewInt(0)
	}
	seized := new(big.Int).Mul(debtToCover, new(big.Int).SetUint64(penaltyPct))
	seized.Mul(seized, pricePrecision)
	den := new(big.Int).Mul(price, ratioPercent)
	return seized.Quo(seized, den)
}

func elapsedSeconds(last, now uint64) uint64 {
	if now <= last {
		return 0
	}
	return now - last
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

func orZero(amount *big.Int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return amount
}

func amountToFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f
}
