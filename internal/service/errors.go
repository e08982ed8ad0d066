package service

import "errors"

// 服务层通用错误
var (
	ErrNotFound            = errors.New("record not found")
	ErrInvalidParam        = errors.New("invalid parameter")
	ErrServiceUnavailable  = errors.New("service unavailable")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicatePhone      = errors.New("phone already registered")
	ErrAffiliateNotPending = errors.New("affiliate is not pending review")
	ErrAffiliateNotActive  = errors.New("affiliate is not active")
	ErrAlreadyPaidTier     = errors.New("affiliate already on paid tier")
	ErrSelfParent          = errors.New("affiliate cannot be its own parent")
	ErrSlotOccupied        = errors.New("tree slot already occupied")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrPayoutNotPending    = errors.New("payout request is not pending")
	ErrPayoutBelowMinimum  = errors.New("payout amount below minimum")
	ErrPayoutInFlight      = errors.New("another payout request is pending")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrOrderNotFound       = errors.New("order not found")
)
