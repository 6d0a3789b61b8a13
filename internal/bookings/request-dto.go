package bookings

type CreateReservationRequest struct {
	TripID string `json:"trip_id" validate:"required,uuid"`
}

type RejectReservationRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type IssueTicketRequest struct {
	BoardingPointID string   `json:"boarding_point_id" validate:"required,uuid"`
	SeatCount       int      `json:"seat_count" validate:"max=60"`
	SeatLabels      []string `json:"seat_labels" validate:"omitempty,max=60,dive,required,max=8,excludes=0x2C"`
}

type ListQueryRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=pending accepted rejected cancelled confirmed completed"`
	Page   int    `form:"page" validate:"omitempty,min=1"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}
