package models

import "time"

type (
	ServiceType   string // Вид работ по заявке
	RequestStatus string // Статус заявки
)

const (
	Repair      ServiceType = "Repair"
	Maintenance ServiceType = "Maintenance"
	Diagnostics ServiceType = "Diagnostics"
	Bodywork    ServiceType = "Bodywork"
	Parts       ServiceType = "Parts"

	RequestPending       RequestStatus = "PENDING"        // Заявка создана, предложений нет
	RequestReceivingBids RequestStatus = "RECEIVING_BIDS" // Получено хотя бы одно предложение
	RequestBidAccepted   RequestStatus = "BID_ACCEPTED"   // Клиент выбрал предложение
	RequestInProgress    RequestStatus = "IN_PROGRESS"    // Работы начаты
	RequestCompleted     RequestStatus = "COMPLETED"      // Работы завершены
	RequestCancelled     RequestStatus = "CANCELLED"      // Заявка отменена или истекла
)

// RequestTTL - срок приема предложений по умолчанию.
const RequestTTL = 7 * 24 * time.Hour

// requestTransitions перечисляет все допустимые переходы заявки.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:       {RequestReceivingBids, RequestBidAccepted, RequestCancelled},
	RequestReceivingBids: {RequestBidAccepted, RequestCancelled},
	RequestBidAccepted:   {RequestInProgress},
	RequestInProgress:    {RequestCompleted},
	// COMPLETED и CANCELLED - конечные статусы
}

// ServiceRequest представляет заявку владельца автомобиля на ремонт.
type ServiceRequest struct {
	ID            string        `json:"id"`
	ClientID      string        `json:"clientId"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	ServiceType   ServiceType   `json:"serviceType"`
	VehicleMake   string        `json:"vehicleMake,omitempty"`
	VehicleModel  string        `json:"vehicleModel,omitempty"`
	VehicleYear   int           `json:"vehicleYear,omitempty"`
	Location      string        `json:"location,omitempty"`
	Status        RequestStatus `json:"status"`
	BidsCount     int           `json:"bidsCount"`
	AcceptedBidID *string       `json:"acceptedBidId"`
	ExpiresAt     time.Time     `json:"expiresAt"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// ServiceRequestInput представляет структуру запроса для создания заявки.
type ServiceRequestInput struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	ServiceType  ServiceType `json:"serviceType"`
	VehicleMake  string      `json:"vehicleMake"`
	VehicleModel string      `json:"vehicleModel"`
	VehicleYear  int         `json:"vehicleYear"`
	Location     string      `json:"location"`
}

// ServiceRequestPatch содержит изменяемые поля заявки. nil - поле не меняется.
type ServiceRequestPatch struct {
	Title        *string      `json:"title"`
	Description  *string      `json:"description"`
	ServiceType  *ServiceType `json:"serviceType"`
	VehicleMake  *string      `json:"vehicleMake"`
	VehicleModel *string      `json:"vehicleModel"`
	VehicleYear  *int         `json:"vehicleYear"`
	Location     *string      `json:"location"`
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p ServiceRequestPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.ServiceType == nil &&
		p.VehicleMake == nil && p.VehicleModel == nil && p.VehicleYear == nil && p.Location == nil
}

// Apply переносит заданные поля патча в заявку.
func (p ServiceRequestPatch) Apply(req *ServiceRequest) {
	if p.Title != nil {
		req.Title = *p.Title
	}
	if p.Description != nil {
		req.Description = *p.Description
	}
	if p.ServiceType != nil {
		req.ServiceType = *p.ServiceType
	}
	if p.VehicleMake != nil {
		req.VehicleMake = *p.VehicleMake
	}
	if p.VehicleModel != nil {
		req.VehicleModel = *p.VehicleModel
	}
	if p.VehicleYear != nil {
		req.VehicleYear = *p.VehicleYear
	}
	if p.Location != nil {
		req.Location = *p.Location
	}
}

// ValidServiceType проверяет, что вид работ поддерживается.
func ValidServiceType(t ServiceType) bool {
	switch t {
	case Repair, Maintenance, Diagnostics, Bodywork, Parts:
		return true
	}
	return false
}

// ParseRequestStatus переводит строку в RequestStatus.
func ParseRequestStatus(s string) (RequestStatus, bool) {
	st := RequestStatus(s)
	switch st {
	case RequestPending, RequestReceivingBids, RequestBidAccepted, RequestInProgress, RequestCompleted, RequestCancelled:
		return st, true
	}
	return "", false
}

// CanTransition сообщает, разрешен ли переход заявки s -> to.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	for _, next := range requestTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// AcceptsBids - заявка открыта для новых предложений.
func (s RequestStatus) AcceptsBids() bool {
	return s == RequestPending || s == RequestReceivingBids
}

// Editable - заявку еще можно редактировать.
func (s RequestStatus) Editable() bool {
	return s != RequestInProgress && s != RequestCompleted
}

// Deletable - заявку можно удалить.
func (s RequestStatus) Deletable() bool {
	return s == RequestPending || s == RequestCancelled
}

// IsExpired - срок приема предложений истек.
func (r *ServiceRequest) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// AvailableStatuses - статусы, в которых заявка видна исполнителям.
func AvailableStatuses() []RequestStatus {
	return []RequestStatus{RequestPending, RequestReceivingBids}
}
