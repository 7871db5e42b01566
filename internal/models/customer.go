package models

import "time"

// Customer is a read-mostly view of a customer account from the consumer app.
type Customer struct {
	ID          string    `json:"id" db:"id"`
	FullName    string    `json:"fullName" db:"full_name"`
	PhoneNumber string    `json:"phoneNumber" db:"phone_number"`
	Email       string    `json:"email" db:"email"`
	Address     string    `json:"address,omitempty" db:"address"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Order statuses used by the consumer app.
const (
	OrderStatusPending    = "pending"
	OrderStatusInProgress = "in_progress"
	OrderStatusDelivered  = "delivered"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Order is a delivery order placed by a customer.
type Order struct {
	ID            string    `json:"id" db:"id"`
	CustomerID    string    `json:"customerId" db:"customer_id"`
	CustomerName  string    `json:"customerName" db:"customer_name"`
	CustomerPhone string    `json:"customerPhone" db:"customer_phone"`
	Pickup        string    `json:"pickup" db:"pickup"`
	Dropoff       string    `json:"dropoff" db:"dropoff"`
	Details       string    `json:"details,omitempty" db:"details"`
	Status        string    `json:"status" db:"status"`
	BasePrice     float64   `json:"basePrice" db:"base_price"`
	Tip           float64   `json:"tip" db:"tip"`
	Total         float64   `json:"total" db:"total"`
	RiderPhone    string    `json:"riderPhone,omitempty" db:"rider_phone"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// Statistics aggregates order figures for the dashboard. The platform keeps a
// configurable percentage of the delivered base price.
type Statistics struct {
	TotalOrders            int            `json:"totalOrders"`
	StatusBreakdown        map[string]int `json:"statusBreakdown"`
	DeliveredOrders        int            `json:"deliveredOrders"`
	DeliveredBasePrice     float64        `json:"deliveredBasePrice"`
	PlatformDeductionRate  float64        `json:"platformDeductionRate"`
	PlatformDeduction      float64        `json:"platformDeduction"`
	NetAfterDeduction      float64        `json:"netAfterDeduction"`
	TotalRiders            int            `json:"totalRiders"`
	SuspendedRiders        int            `json:"suspendedRiders"`
	PendingApplications    int            `json:"pendingApplications"`
	PendingCreditRequests  int            `json:"pendingCreditRequests"`
	OutstandingRiderCredit float64        `json:"outstandingRiderCredit"`
}
