package models

import (
	"math"
	"time"
)

type BidStatus string // Статус предложения

const (
	BidPending   BidStatus = "PENDING"   // Предложение ожидает решения клиента
	BidAccepted  BidStatus = "ACCEPTED"  // Предложение принято
	BidRejected  BidStatus = "REJECTED"  // Предложение отклонено
	BidWithdrawn BidStatus = "WITHDRAWN" // Предложение отозвано исполнителем
	BidExpired   BidStatus = "EXPIRED"   // Заявка истекла без выбора
)

// bidTransitions перечисляет все допустимые переходы предложения.
var bidTransitions = map[BidStatus][]BidStatus{
	BidPending:   {BidAccepted, BidRejected, BidWithdrawn, BidExpired},
	BidWithdrawn: {BidRejected},
}

// BidItem - строка сметы.
type BidItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
}

// Bid представляет модель предложения исполнителя. Суммы хранятся в копейках.
type Bid struct {
	ID               string    `json:"id"`
	ServiceRequestID string    `json:"serviceRequestId"`
	ProviderID       string    `json:"providerId"`
	Status           BidStatus `json:"status"`
	TotalAmount      int64     `json:"totalAmount"`
	Items            []BidItem `json:"items"`
	Message          string    `json:"message,omitempty"`
	EstimatedHours   int       `json:"estimatedHours,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// BidInput представляет структуру запроса для создания предложения.
type BidInput struct {
	ServiceRequestID string    `json:"serviceRequestId"`
	TotalAmount      int64     `json:"totalAmount"`
	Items            []BidItem `json:"items"`
	Message          string    `json:"message"`
	EstimatedHours   int       `json:"estimatedHours"`
}

// BidPatch содержит изменяемые поля предложения.
type BidPatch struct {
	TotalAmount    *int64     `json:"totalAmount"`
	Items          *[]BidItem `json:"items"`
	Message        *string    `json:"message"`
	EstimatedHours *int       `json:"estimatedHours"`
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p BidPatch) IsEmpty() bool {
	return p.TotalAmount == nil && p.Items == nil && p.Message == nil && p.EstimatedHours == nil
}

// ItemsTotal возвращает сумму сметы. Строки должны пройти ValidateItems.
func ItemsTotal(items []BidItem) int64 {
	var total int64
	for _, it := range items {
		total += int64(it.Quantity) * it.UnitPrice
	}
	return total
}

// ValidateItems проверяет строки сметы. Сумма сметы должна помещаться в int64.
func ValidateItems(items []BidItem) error {
	var total int64
	for _, it := range items {
		if it.Description == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			return Invalid("each item needs a description, a positive quantity and a non-negative unit price")
		}
		if it.UnitPrice > 0 && int64(it.Quantity) > math.MaxInt64/it.UnitPrice {
			return Invalid("item amount is too large")
		}
		line := int64(it.Quantity) * it.UnitPrice
		if total > math.MaxInt64-line {
			return Invalid("items total is too large")
		}
		total += line
	}
	return nil
}

// ResolveTotal возвращает итоговую сумму: явную или рассчитанную по смете.
func ResolveTotal(total int64, items []BidItem) int64 {
	if total == 0 && len(items) > 0 {
		return ItemsTotal(items)
	}
	return total
}

// CanTransition сообщает, разрешен ли переход предложения s -> to.
func (s BidStatus) CanTransition(to BidStatus) bool {
	for _, next := range bidTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Deletable - предложение можно удалить.
func (s BidStatus) Deletable() bool {
	return s == BidPending || s == BidWithdrawn
}
