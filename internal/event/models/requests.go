package models

import (
	"time"

	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

// Sub-entity transitions mirror the parent event's Can/Apply split so the
// service layer can run them inside the store's Execute callback.

func (c *Correction) CanResolve() error {
	if c.Status != RequestPending {
		return dErrors.New(dErrors.CodeInvalidState, "correction has already been resolved")
	}
	return nil
}

func (c *Correction) ApplyApproval(resolver domain.UserID, response string, now time.Time) {
	c.Status = RequestApproved
	c.Response = response
	c.ResolvedBy = &resolver
	c.ResolvedAt = &now
}

// CanReject additionally requires a response message explaining the rejection.
func (c *Correction) CanReject(response string) error {
	if err := c.CanResolve(); err != nil {
		return err
	}
	if response == "" {
		return dErrors.New(dErrors.CodeBadRequest, "rejecting a correction requires a response")
	}
	return nil
}

func (c *Correction) ApplyRejection(resolver domain.UserID, response string, now time.Time) {
	c.Status = RequestRejected
	c.Response = response
	c.ResolvedBy = &resolver
	c.ResolvedAt = &now
}

func (r *CertificateRequest) CanResolve() error {
	if r.Status != RequestPending {
		return dErrors.New(dErrors.CodeInvalidState, "certificate request has already been resolved")
	}
	return nil
}

func (r *CertificateRequest) ApplyApproval(resolver domain.UserID, now time.Time) {
	r.Status = RequestApproved
	r.ResolvedBy = &resolver
	r.ResolvedAt = &now
}

// CanReject requires a reason, matching the parent event's rejection rule.
func (r *CertificateRequest) CanReject(reason string) error {
	if err := r.CanResolve(); err != nil {
		return err
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeBadRequest, "rejecting a certificate request requires a reason")
	}
	return nil
}

func (r *CertificateRequest) ApplyRejection(resolver domain.UserID, reason string, now time.Time) {
	r.Status = RequestRejected
	r.RejectionReason = reason
	r.ResolvedBy = &resolver
	r.ResolvedAt = &now
}
