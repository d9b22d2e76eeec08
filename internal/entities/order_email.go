package entities

type OrderEmailItem struct {
	Name     string
	Weight   string
	Quantity int
	Amount   string
}

type OrderEmailData struct {
	CustomerName  string
	OrderID       string
	Headline      string
	Status        string
	DeliveryDate  string
	TimeSlot      string
	Address       string
	Items         []OrderEmailItem
	Subtotal      string
	DeliveryFee   string
	LoyaltyUsed   string
	Total         string
	LoyaltyEarned string
	PaymentMethod string
	CurrentYear   int
}
