package handlers

import "resvalidator/internal/services"

type ScanRequest struct {
	RawText string `json:"raw_text" binding:"required"`
}

type AuditRequest struct {
	Prefix string `json:"prefix" binding:"required"`
}

type ASNRequest struct {
	ASN string `json:"asn" binding:"required"`
}

type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	State      services.SessionState `json:"state"`
	Privileged bool                  `json:"privileged"`
}
