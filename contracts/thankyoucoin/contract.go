package thankyoucoin

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/settlement"
	"go.uber.org/zap"
)

type (
	// Token holds all token info.
	Token struct {
		// Human-readable name
		Name string
		// Ticker symbol
		Symbol string
		// Amount of decimals
		Decimals int
		// Storage key for circulation value
		CirculationKey string
	}

	// Account structure stores metadata of each ThankYouCoin holder.
	Account struct {
		// Active balance
		Balance int64
	}
)

const (
	name        = "ThankYouCoin"
	symbol      = "TYC"
	circulation = "TotalSupply"
	versionKey  = "Version"

	accPrefix       = 'a'
	allowancePrefix = 'l'
)

const (
	// Decimals is the precision of ThankYouCoin amounts.
	Decimals = 6

	// InitialSupply is the amount issued to the owner on the first deployment,
	// 1024 whole coins.
	InitialSupply = 1024 * 1_000_000

	// EventTransfer is the name of the balance movement notification.
	EventTransfer = "Transfer"
	// EventApproval is the name of the spend ceiling notification.
	EventApproval = "Approval"
)

var token = Token{
	Name:           name,
	Symbol:         symbol,
	Decimals:       Decimals,
	CirculationKey: circulation,
}

// ToStackItem implements stackitem.Convertible.
func (a *Account) ToStackItem() (stackitem.Item, error) {
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewBigInteger(big.NewInt(a.Balance)),
	}), nil
}

// FromStackItem implements stackitem.Convertible.
func (a *Account) FromStackItem(item stackitem.Item) error {
	fields, ok := item.Value().([]stackitem.Item)
	if !ok || len(fields) != 1 {
		return errors.New("invalid account structure")
	}

	b, err := fields[0].TryInteger()
	if err != nil || !b.IsInt64() {
		return errors.New("invalid account balance")
	}
	a.Balance = b.Int64()

	return nil
}

// Prm groups ThankYouCoin parameters.
type Prm struct {
	// Receives the initial supply.
	Owner util.Uint160

	// Capability checked by Mint. Only direct calls of the Owner are allowed
	// if not set.
	Minter common.Authorizer

	// Amount issued to the Owner on the first deployment.
	InitialSupply int64

	Logger *zap.Logger
}

// Contract is the ThankYouCoin contract. Its methods must be called within
// the contract frame of a settlement invocation.
type Contract struct {
	token         Token
	owner         util.Uint160
	minter        common.Authorizer
	initialSupply int64
	log           *zap.Logger
}

// New creates ThankYouCoin contract from Prm.
func New(prm Prm) (*Contract, error) {
	if prm.InitialSupply < 0 {
		return nil, fmt.Errorf("negative initial supply %d", prm.InitialSupply)
	}
	if prm.InitialSupply > 0 && prm.Owner.Equals(util.Uint160{}) {
		return nil, errors.New("initial supply without owner")
	}

	c := &Contract{
		token:         token,
		owner:         prm.Owner,
		minter:        prm.Minter,
		initialSupply: prm.InitialSupply,
		log:           prm.Logger,
	}

	if c.minter == nil {
		c.minter = common.OwnerWitness(prm.Owner)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}

	return c, nil
}

// OnDeploy implements settlement.Deployer. The initial supply is issued on
// the first deployment only.
func (c *Contract) OnDeploy(ic *settlement.Context, isUpdate bool) error {
	st := ic.Storage()

	if isUpdate {
		stored := common.GetInt(st, []byte(versionKey))
		if err := common.CheckVersion(int(stored)); err != nil {
			return err
		}

		common.PutInt(st, []byte(versionKey), common.Version)
		c.log.Debug("thankyoucoin contract updated",
			zap.String("from", common.VersionString(int(stored))))

		return nil
	}

	common.PutInt(st, []byte(versionKey), common.Version)

	if c.initialSupply > 0 {
		if err := c.mint(ic, c.owner, c.initialSupply); err != nil {
			return err
		}
	}

	c.log.Debug("thankyoucoin contract initialized",
		zap.String("owner", address.Uint160ToString(c.owner)),
		zap.Int64("supply", c.initialSupply))

	return nil
}

// Name returns human-readable name of the token.
func (c *Contract) Name() string {
	return c.token.Name
}

// Symbol returns ticker symbol of the token.
func (c *Contract) Symbol() string {
	return c.token.Symbol
}

// Decimals returns precision of ThankYouCoin balances.
func (c *Contract) Decimals() int {
	return c.token.Decimals
}

// Owner returns the account receiving the initial supply.
func (c *Contract) Owner() util.Uint160 {
	return c.owner
}

// Version returns the version of the contract.
func (c *Contract) Version() int {
	return common.Version
}

// TotalSupply returns total amount of issued tokens.
func (c *Contract) TotalSupply(ic *settlement.Context) int64 {
	return c.token.getSupply(ic.Storage())
}

// BalanceOf returns token balance of the account.
func (c *Contract) BalanceOf(ic *settlement.Context, account util.Uint160) int64 {
	return c.token.balanceOf(ic.Storage(), account)
}

// Allowance returns amount the spender is still allowed to move out of the
// owner's balance.
func (c *Contract) Allowance(ic *settlement.Context, owner, spender util.Uint160) int64 {
	return common.GetInt(ic.Storage(), allowanceKey(owner, spender))
}

// Mint issues amount of new tokens to the account. It can be invoked only by
// callers passing the minter capability.
//
// It produces Transfer notification with Null sender.
func (c *Contract) Mint(ic *settlement.Context, to util.Uint160, amount int64) error {
	if err := c.minter.Authorize(ic); err != nil {
		return err
	}
	if err := checkTransferArgs(to, amount); err != nil {
		return err
	}

	err := c.mint(ic, to, amount)
	if err != nil {
		return err
	}

	ic.Logger().Debug("assets were minted",
		zap.String("to", address.Uint160ToString(to)),
		zap.Int64("amount", amount))

	return nil
}

// Approve sets amount the spender is allowed to move out of the caller's
// balance. The previous ceiling is replaced.
//
// It produces Approval notification.
func (c *Contract) Approve(ic *settlement.Context, spender util.Uint160, amount int64) error {
	if err := checkTransferArgs(spender, amount); err != nil {
		return err
	}

	owner := ic.CallingScriptHash()

	common.PutInt(ic.Storage(), allowanceKey(owner, spender), amount)
	ic.Notify(EventApproval, owner, spender, amount)

	return nil
}

// Transfer moves amount of tokens from the caller's balance to the account.
//
// It produces Transfer notification.
func (c *Contract) Transfer(ic *settlement.Context, to util.Uint160, amount int64) error {
	if err := checkTransferArgs(to, amount); err != nil {
		return err
	}

	return c.token.transfer(ic, ic.CallingScriptHash(), to, amount)
}

// TransferFrom moves amount of tokens from the owner's balance to the account
// on behalf of the caller. The caller's allowance is decreased by amount.
// Allowance is checked before the balance.
//
// It produces Transfer notification.
func (c *Contract) TransferFrom(ic *settlement.Context, from, to util.Uint160, amount int64) error {
	if err := checkTransferArgs(to, amount); err != nil {
		return err
	}
	if from.Equals(util.Uint160{}) {
		return common.ErrInvalidArgument.WithCause(errors.New("zero sender"))
	}

	var (
		st      = ic.Storage()
		spender = ic.CallingScriptHash()
		key     = allowanceKey(from, spender)
		allowed = common.GetInt(st, key)
	)

	if allowed < amount {
		return common.ErrInsufficientAllowance.WithCause(
			fmt.Errorf("%s allowed %d, %d required", address.Uint160ToString(spender), allowed, amount))
	}

	err := c.token.transfer(ic, from, to, amount)
	if err != nil {
		return err
	}

	common.PutInt(st, key, allowed-amount)

	return nil
}

// getSupply gets the token totalSupply value from the storage.
func (t Token) getSupply(st common.KV) int64 {
	return common.GetInt(st, []byte(t.CirculationKey))
}

// balanceOf gets the token balance of a specific address.
func (t Token) balanceOf(st common.KV, holder util.Uint160) int64 {
	return getAccount(st, holder).Balance
}

// transfer moves tokens between two non-zero accounts.
func (t Token) transfer(ic *settlement.Context, from, to util.Uint160, amount int64) error {
	st := ic.Storage()

	amountFrom, err := t.canTransfer(st, from, amount)
	if err != nil {
		return err
	}

	if !from.Equals(to) {
		fromKey := accountKey(from)
		if amountFrom.Balance == amount {
			st.Delete(fromKey)
		} else {
			amountFrom.Balance -= amount
			putAccount(st, fromKey, amountFrom)
		}

		amountTo := getAccount(st, to)
		amountTo.Balance += amount
		putAccount(st, accountKey(to), amountTo)
	}

	ic.Notify(EventTransfer, from, to, amount)

	return nil
}

// canTransfer returns the sender account if it can transfer the amount.
func (t Token) canTransfer(st common.KV, from util.Uint160, amount int64) (Account, error) {
	amountFrom := getAccount(st, from)
	if amountFrom.Balance < amount {
		return Account{}, common.ErrInsufficientBalance.WithCause(
			fmt.Errorf("%s has %d, %d required", address.Uint160ToString(from), amountFrom.Balance, amount))
	}

	return amountFrom, nil
}

// mint increases supply and credits the account.
func (c *Contract) mint(ic *settlement.Context, to util.Uint160, amount int64) error {
	st := ic.Storage()

	supply := c.token.getSupply(st)
	if supply > math.MaxInt64-amount {
		return common.ErrInvalidArgument.WithCause(errors.New("total supply overflow"))
	}

	acc := getAccount(st, to)
	acc.Balance += amount
	putAccount(st, accountKey(to), acc)

	common.PutInt(st, []byte(c.token.CirculationKey), supply+amount)
	ic.Notify(EventTransfer, nil, to, amount)

	return nil
}

func checkTransferArgs(to util.Uint160, amount int64) error {
	if amount < 0 {
		return common.ErrInvalidArgument.WithCause(fmt.Errorf("negative amount %d", amount))
	}
	if to.Equals(util.Uint160{}) {
		return common.ErrInvalidArgument.WithCause(errors.New("zero account"))
	}
	return nil
}

func accountKey(h util.Uint160) []byte {
	return append([]byte{accPrefix}, h.BytesBE()...)
}

func allowanceKey(owner, spender util.Uint160) []byte {
	key := make([]byte, 0, 1+2*util.Uint160Size)
	key = append(key, allowancePrefix)
	key = append(key, owner.BytesBE()...)
	return append(key, spender.BytesBE()...)
}

// getAccount gets account from the storage, missing account has zero balance.
func getAccount(st common.KV, h util.Uint160) Account {
	var acc Account

	ok, err := common.GetSerialized(st, accountKey(h), &acc)
	if err != nil {
		panic(fmt.Errorf("corrupted account %s: %w", address.Uint160ToString(h), err))
	}
	if !ok {
		return Account{}
	}

	return acc
}

func putAccount(st common.KV, key []byte, acc Account) {
	if err := common.SetSerialized(st, key, &acc); err != nil {
		panic(fmt.Errorf("serialize account: %w", err))
	}
}
