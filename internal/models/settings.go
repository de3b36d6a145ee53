package models

import "time"

// Well-known app_settings keys. Arbitrary keys (theming, support contact)
// are also allowed; these are the ones the backend itself reads.
const (
	SettingWalletAddress = "wallet_address"
	SettingRateMixed     = "usdt_rate_mixed"
	SettingRateStock     = "usdt_rate_stock"
	SettingRateGame      = "usdt_rate_game"
)

// RateSettingKey maps a USDT category to its rate setting key.
func RateSettingKey(t UsdtType) string {
	return "usdt_rate_" + string(t)
}

// AppSetting is a global key/value configuration entry.
// Writes are last-write-wins; there is no version counter.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     *string   `json:"value"`
	UpdatedBy *string   `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}
