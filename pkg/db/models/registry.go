package models

// All lists every persisted model in dependency order. It feeds AutoMigrate for SQLite runs.
func All() []any {
	return []any{
		&User{},
		&Address{},
		&Seller{},
		&Product{},
		&Cart{},
		&CartItem{},
		&PaymentOrder{},
		&Order{},
		&OrderItem{},
		&Coupon{},
		&CouponUsage{},
		&SubscriptionPlan{},
		&SellerSubscription{},
		&SellerReport{},
		&Transaction{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
