package checkout

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/dukapoint/storefront/internal/fault"
)

// Phone numbers follow the regional mobile pattern, international or local form.
var phonePattern = regexp.MustCompile(`^(?:\+2547\d{8}|07\d{8})$`)

// CartLine is one (product, quantity, unit price) tuple submitted for purchase.
// All amounts are integer minor units.
type CartLine struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice int64
}

// Customer is the identity resolved from the bearer credential.
type Customer struct {
	ID    int64
	Email string
}

// Order is a committed purchase. Immutable once written, except through the
// explicit admin override endpoints.
type Order struct {
	ID          string
	UserID      *int64
	TotalAmount int64
	CreatedAt   time.Time
}

// OrderLine is one purchased line, owned by its order and never mutated
// after creation. UnitPrice is the price at purchase time.
type OrderLine struct {
	OrderID   string
	ProductID int64
	Quantity  int
	UnitPrice int64
}

// Receipt is what a successful checkout returns to the caller.
type Receipt struct {
	OrderID     string
	TotalAmount int64
}

// NewOrder builds an order and its lines from a validated cart. The total is
// always computed from the lines, never taken from the client.
func NewOrder(customerID int64, lines []CartLine) (*Order, []OrderLine) {
	order := &Order{
		ID:          uuid.New().String(),
		UserID:      &customerID,
		TotalAmount: CartTotal(lines),
		CreatedAt:   time.Now(),
	}

	orderLines := make([]OrderLine, 0, len(lines))
	for _, line := range lines {
		orderLines = append(orderLines, OrderLine{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return order, orderLines
}

// CartTotal sums quantity × unit price over the cart.
func CartTotal(lines []CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += int64(line.Quantity) * line.UnitPrice
	}
	return total
}

// ValidatePhone checks the contact number against the mobile pattern.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return &fault.ValidationError{
			Reason: "Valid Kenyan phone number is required (e.g., +2547XXXXXXXX or 07XXXXXXXX)",
		}
	}
	return nil
}

// ValidateLines checks the cart shape: non-empty, positive quantities,
// plausible ids and prices.
func ValidateLines(lines []CartLine) error {
	if len(lines) == 0 {
		return &fault.ValidationError{Reason: "Cart is empty or invalid"}
	}
	for _, line := range lines {
		if line.ProductID <= 0 || line.Quantity <= 0 {
			return &fault.ValidationError{Reason: "Invalid cart item"}
		}
		if line.UnitPrice < 0 {
			return &fault.ValidationError{
				Reason: fmt.Sprintf("Invalid price for product %d", line.ProductID),
			}
		}
	}
	return nil
}
