package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukapoint/storefront/internal/fault"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+254712345678", true},
		{"0712345678", true},
		{"12345", false},
		{"", false},
		{"+254812345678", false},
		{"07123456789", false},
		{"+2547123456", false},
	}

	for _, tt := range tests {
		err := ValidatePhone(tt.phone)
		if tt.valid {
			assert.NoError(t, err, "expected %q to be valid", tt.phone)
		} else {
			var validation *fault.ValidationError
			assert.ErrorAs(t, err, &validation, "expected %q to be rejected", tt.phone)
		}
	}
}

func TestValidateLines(t *testing.T) {
	assert.Error(t, ValidateLines(nil))
	assert.Error(t, ValidateLines([]CartLine{}))
	assert.Error(t, ValidateLines([]CartLine{{ProductID: 1, Quantity: 0, UnitPrice: 100}}))
	assert.Error(t, ValidateLines([]CartLine{{ProductID: 0, Quantity: 1, UnitPrice: 100}}))
	assert.Error(t, ValidateLines([]CartLine{{ProductID: 1, Quantity: 1, UnitPrice: -1}}))
	assert.NoError(t, ValidateLines([]CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 100}}))
}

func TestCartTotal(t *testing.T) {
	lines := []CartLine{
		{ProductID: 1, Quantity: 2, UnitPrice: 50},
		{ProductID: 2, Quantity: 3, UnitPrice: 1000},
	}
	assert.Equal(t, int64(2*50+3*1000), CartTotal(lines))
}

func TestNewOrder(t *testing.T) {
	lines := []CartLine{
		{ProductID: 1, Name: "Widget", Quantity: 2, UnitPrice: 50},
		{ProductID: 7, Name: "Gadget", Quantity: 1, UnitPrice: 300},
	}

	order, orderLines := NewOrder(42, lines)

	require.NotEmpty(t, order.ID)
	require.NotNil(t, order.UserID)
	assert.Equal(t, int64(42), *order.UserID)
	assert.Equal(t, int64(400), order.TotalAmount)
	assert.False(t, order.CreatedAt.IsZero())

	require.Len(t, orderLines, 2)
	var sum int64
	for i, line := range orderLines {
		assert.Equal(t, order.ID, line.OrderID)
		assert.Equal(t, lines[i].ProductID, line.ProductID)
		assert.Equal(t, lines[i].Quantity, line.Quantity)
		assert.Equal(t, lines[i].UnitPrice, line.UnitPrice)
		sum += int64(line.Quantity) * line.UnitPrice
	}
	// The stored total always equals the sum over the stored lines.
	assert.Equal(t, order.TotalAmount, sum)
}
