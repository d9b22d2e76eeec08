// Package pricing computes the monetary breakdown of an order: delivery fee,
// loyalty redemption and loyalty accrual. All amounts are rupees.
package pricing

import "github.com/shopspring/decimal"

var (
	// FreeDeliveryThreshold is the subtotal from which delivery is free.
	FreeDeliveryThreshold = decimal.NewFromInt(300)
	// DeliveryFee is charged below FreeDeliveryThreshold.
	DeliveryFee = decimal.NewFromInt(40)
	// LoyaltyMinimumBalance is the balance an account needs before it may redeem.
	LoyaltyMinimumBalance = decimal.NewFromInt(300)
	// LoyaltyRedeemRatio caps redemption at this share of the subtotal.
	LoyaltyRedeemRatio = decimal.New(5, -1)
	// FirstOrderBonus is credited for a first order that reaches FreeDeliveryThreshold.
	FirstOrderBonus = decimal.NewFromInt(100)
	// AccrualRate is the share of the subtotal credited back on every other order.
	AccrualRate = decimal.New(1, -1)
)

// Line is one priced cart entry.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Result struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	RedeemableCap   decimal.Decimal `json:"redeemable_cap"`
	LoyaltyDiscount decimal.Decimal `json:"loyalty_discount"`
	Total           decimal.Decimal `json:"total"`
	LoyaltyEarned   decimal.Decimal `json:"loyalty_earned"`
}

// Subtotal sums quantity times unit price over lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Compute prices an order. subtotal must be non-negative.
func Compute(subtotal, loyaltyBalance decimal.Decimal, useLoyalty, isFirstOrder bool) Result {
	r := Result{
		Subtotal:        subtotal,
		DeliveryFee:     DeliveryFeeFor(subtotal),
		RedeemableCap:   RedeemableCap(subtotal, loyaltyBalance),
		LoyaltyDiscount: decimal.Zero,
		LoyaltyEarned:   Accrual(subtotal, isFirstOrder),
	}
	if useLoyalty {
		r.LoyaltyDiscount = r.RedeemableCap
	}
	r.Total = subtotal.Add(r.DeliveryFee).Sub(r.LoyaltyDiscount)
	if r.Total.IsNegative() {
		r.Total = decimal.Zero
	}
	return r
}

func DeliveryFeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThan(FreeDeliveryThreshold) {
		return DeliveryFee
	}
	return decimal.Zero
}

// LoyaltyEligible reports whether balance is large enough to redeem.
func LoyaltyEligible(balance decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(LoyaltyMinimumBalance)
}

// RedeemableCap is the most loyalty credit one order may use.
func RedeemableCap(subtotal, balance decimal.Decimal) decimal.Decimal {
	if !LoyaltyEligible(balance) {
		return decimal.Zero
	}
	return decimal.Min(balance, subtotal.Mul(LoyaltyRedeemRatio))
}

// Accrual is the loyalty credit earned by an order, floored to whole rupees.
func Accrual(subtotal decimal.Decimal, isFirstOrder bool) decimal.Decimal {
	if isFirstOrder && subtotal.GreaterThanOrEqual(FreeDeliveryThreshold) {
		return FirstOrderBonus
	}
	return subtotal.Mul(AccrualRate).Floor()
}

// FreeDeliveryShortfall is what the customer still has to add for free delivery.
func FreeDeliveryShortfall(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return FreeDeliveryThreshold.Sub(subtotal)
}
