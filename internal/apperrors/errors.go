package apperrors

import "errors"

// Domain entity errors represent missing entities in the system.
var (
	// ErrUserNotFound indicates that no user matches the given name or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrAssetNotFound indicates that an asset with the given ID does not
	// exist or is not owned by the requesting user.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrSymbolNotFound indicates that a symbol lookup returned no results.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrSettingNotFound indicates that a settings key has never been stored.
	ErrSettingNotFound = errors.New("setting not found")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrDuplicateUsername indicates that registration collided with an
	// existing account.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates that a bearer token failed verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidPeriod indicates an unsupported totals period.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidAssetType indicates a missing asset type.
	ErrInvalidAssetType = errors.New("asset type required")

	// ErrUnsupportedCrypto indicates a crypto asset other than BTC.
	ErrUnsupportedCrypto = errors.New("only BTC is supported")

	// ErrInvalidQuantity indicates a zero or negative quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidLookupType indicates a lookup for a type without a name feed.
	ErrInvalidLookupType = errors.New("asset_type must be 'stock' or 'kr_stock'")
)

// Operation failure errors represent failures against external collaborators.
var (
	// ErrPriceFetchFailed indicates that every configured price source
	// failed for a symbol.
	ErrPriceFetchFailed = errors.New("price fetch failed")

	// ErrExchangeRateFailed indicates that no FX source produced a USD/KRW rate.
	ErrExchangeRateFailed = errors.New("exchange rate fetch failed")
)
