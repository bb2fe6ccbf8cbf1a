package services

import "context"

// RewardNotice tells a customer that an order earned them free drinks.
type RewardNotice struct {
	OrderID      int64  `json:"order_id"`
	CustomerTgID int64  `json:"customer_tg_id"`
	Earned       int    `json:"earned"`
	CoffeesFree  int    `json:"coffees_free"`
	Language     string `json:"language,omitempty"`
}

type RewardNotifier interface {
	NotifyReward(ctx context.Context, n RewardNotice) error
}

// RewardNotifierFunc adapts a function to RewardNotifier.
type RewardNotifierFunc func(ctx context.Context, n RewardNotice) error

func (f RewardNotifierFunc) NotifyReward(ctx context.Context, n RewardNotice) error {
	return f(ctx, n)
}
