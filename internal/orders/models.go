package orders

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog snapshot taken when an order is created.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// MaxItemQuantity bounds a line item; order_items.quantity is an INTEGER column.
const MaxItemQuantity = math.MaxInt32

type LineItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	CustomerName string     `json:"customerName"`
	OrderDate    time.Time  `json:"orderDate"`
	Items        []LineItem `json:"items"`
	Canceled     bool       `json:"isCanceled"`
}

// TotalAmount is always recomputed from the items.
func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.Amount())
	}
	return total
}

func (o *Order) Status() Status {
	if o.Canceled {
		return StatusCanceled
	}
	return StatusActive
}

// MarshalJSON emits the read representation, including the derived total.
// A totalAmount present in the input is ignored on decode.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		TotalAmount decimal.Decimal `json:"totalAmount"`
	}{plain(o), o.TotalAmount()})
}
