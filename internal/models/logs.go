package models

import (
	"fmt"
	"strings"
	"time"
)

type DeliveryStatus string

const (
	StatusPending    DeliveryStatus = "pending"
	StatusProcessing DeliveryStatus = "processing"
	StatusSent       DeliveryStatus = "sent"
	StatusFailed     DeliveryStatus = "failed"
)

// ParseDeliveryStatus is case insensitive, the backend is not consistent about it
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	status := DeliveryStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown delivery status %q", value)
	}
}

// Terminal reports whether the status can still change
func (s DeliveryStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

type LogMessage struct {
	ID          int            `json:"id"`
	MessageID   string         `json:"messageId"`
	Service     Channel        `json:"service"`
	Destination string         `json:"destination"`
	Message     string         `json:"message"`
	Status      DeliveryStatus `json:"status"`
	Attempts    int            `json:"attempts"`
	MessageDate time.Time      `json:"messageDate"`
}

type DeliveryStatusResponse struct {
	ID             int            `json:"id"`
	DeliveryStatus DeliveryStatus `json:"deliveryStatus"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

type LogPage struct {
	Items      []LogMessage
	Pagination Pagination
}
